package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	appsheet "github.com/shibukawa/appsheet"
	"github.com/shibukawa/appsheet/client"
	"github.com/shibukawa/appsheet/inspect"
)

// Sentinel errors
var (
	ErrNoTablesSelected   = errors.New("no tables to inspect: pass --tables or --auto-discover")
	ErrNothingInspected   = errors.New("no table could be inspected")
	ErrNoDiscoveredTables = errors.New("auto-discover found no table names in the schema file")
)

// InspectCmd represents the inspect command
type InspectCmd struct {
	AppID        string   `name:"app-id" help:"AppSheet application ID" required:""`
	AccessKey    string   `name:"access-key" help:"Application access key" required:""`
	BaseURL      string   `name:"base-url" help:"API base URL override"`
	Tables       []string `help:"Table names to inspect"`
	AutoDiscover bool     `name:"auto-discover" help:"Probe the table names already present in the schema file"`
	SampleSize   int      `name:"sample-size" help:"Rows sampled per table" default:"50"`
	Output       string   `short:"o" help:"Output file (default: stdout)" type:"path"`
	Connection   string   `help:"Connection name used in the emitted fragment" default:"default"`
}

func (c *InspectCmd) Run(ctx *Context) error {
	tables := c.Tables

	if c.AutoDiscover {
		discovered, err := discoverTables(ctx.Schema)
		if err != nil {
			return err
		}

		tables = append(tables, discovered...)
	}

	if len(tables) == 0 {
		return ErrNoTablesSelected
	}

	sort.Strings(tables)

	var clientOpts []client.Option
	if c.BaseURL != "" {
		clientOpts = append(clientOpts, client.WithBaseURL(c.BaseURL))
	}

	api := client.New(c.AppID, c.AccessKey, clientOpts...)
	inspector := inspect.New(inspect.NewClientSampler(api), inspect.WithSampleSize(c.SampleSize))

	defs, errs := inspector.InspectTables(context.Background(), tables, nil)
	for _, err := range errs {
		if !ctx.Quiet {
			color.Yellow("  %v", err)
		}
	}

	if len(defs) == 0 {
		return ErrNothingInspected
	}

	fragment := schemaFragment(c.Connection, c.AppID, defs)

	data, err := yaml.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("failed to marshal schema fragment: %w", err)
	}

	if c.Output == "" {
		fmt.Print(string(data))
		return nil
	}

	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if !ctx.Quiet {
		color.Green("Inferred %d table(s) into %s", len(defs), c.Output)
	}

	return nil
}

// schemaFragment wraps inferred tables in a full schema document so the
// output can be used as a schema file directly. The access key is emitted
// as a placeholder, never as the literal credential.
func schemaFragment(connection, appID string, defs map[string]appsheet.TableDefinition) *appsheet.SchemaConfig {
	return &appsheet.SchemaConfig{
		Connections: map[string]appsheet.ConnectionDefinition{
			connection: {
				AppID:                appID,
				ApplicationAccessKey: "${APPSHEET_ACCESS_KEY}",
				Tables:               defs,
			},
		},
	}
}

// discoverTables collects the physical table names referenced by an
// existing schema file. The API has no table-listing endpoint, so this is
// the only discovery source available.
func discoverTables(schemaPath string) ([]string, error) {
	schema, err := appsheet.LoadSchema(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("auto-discover needs a loadable schema file: %w", err)
	}

	seen := make(map[string]struct{})

	for _, conn := range schema.Connections {
		for _, table := range conn.Tables {
			if table.TableName != "" {
				seen[table.TableName] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return nil, ErrNoDiscoveredTables
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}
