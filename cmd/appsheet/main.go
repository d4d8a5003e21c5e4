package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// Context represents the global context for commands
type Context struct {
	Schema  string
	Verbose bool
	Quiet   bool
}

// CLI represents the command-line interface
var CLI struct {
	Schema   string      `help:"Schema file path" default:"appsheet.yaml"`
	Verbose  bool        `help:"Enable verbose output" short:"v"`
	Quiet    bool        `help:"Suppress output" short:"q"`
	Init     InitCmd     `cmd:"" help:"Scaffold a new schema file"`
	Inspect  InspectCmd  `cmd:"" help:"Sample a live app and emit an inferred schema"`
	Validate ValidateCmd `cmd:"" help:"Validate the schema file structurally"`
	AddTable AddTableCmd `cmd:"" name:"add-table" help:"Inspect one table and append it to the schema file"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Println("appsheet v0.1.0")
	return nil
}

func main() {
	ctx := kong.Parse(&CLI)

	appCtx := &Context{
		Schema:  CLI.Schema,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
