package main

import (
	"fmt"

	"github.com/fatih/color"

	appsheet "github.com/shibukawa/appsheet"
)

// ValidateCmd represents the validate command
type ValidateCmd struct{}

func (v *ValidateCmd) Run(ctx *Context) error {
	if ctx.Verbose {
		color.Blue("Validating schema: %s", ctx.Schema)
	}

	schema, err := appsheet.LoadSchema(ctx.Schema)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	result := appsheet.ValidateSchema(schema)
	if !result.Valid {
		for _, msg := range result.Errors {
			color.Red("  %s", msg)
		}

		return result.Err()
	}

	if !ctx.Quiet {
		color.Green("Schema is valid: %d connection(s)", len(schema.Connections))
	}

	return nil
}
