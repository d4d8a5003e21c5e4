package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	appsheet "github.com/shibukawa/appsheet"
	"github.com/shibukawa/appsheet/client"
	"github.com/shibukawa/appsheet/inspect"
)

var ErrTableAlreadyDefined = errors.New("table is already defined in the schema")

// AddTableCmd represents the add-table command
type AddTableCmd struct {
	Connection string `arg:"" help:"Connection name in the schema file"`
	TableName  string `arg:"" help:"Physical table name to inspect"`
	KeyField   string `name:"key-field" help:"Key field override (default: auto-detected)"`
	SampleSize int    `name:"sample-size" help:"Rows sampled" default:"50"`
	Force      bool   `help:"Replace the table if it is already defined"`
}

func (a *AddTableCmd) Run(ctx *Context) error {
	// The expanded load supplies live credentials for the API call; the
	// raw load keeps ${VAR} placeholders intact for the file rewrite.
	expanded, err := appsheet.LoadSchema(ctx.Schema)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	schema, err := appsheet.LoadSchemaRaw(ctx.Schema)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	conn, ok := expanded.Connections[a.Connection]
	if !ok {
		return fmt.Errorf("%w: %q", appsheet.ErrUnknownConnection, a.Connection)
	}

	if _, exists := conn.Tables[a.TableName]; exists && !a.Force {
		return fmt.Errorf("%w: %q (use --force to replace)", ErrTableAlreadyDefined, a.TableName)
	}

	var clientOpts []client.Option
	if conn.BaseURL != "" {
		clientOpts = append(clientOpts, client.WithBaseURL(conn.BaseURL))
	}

	api := client.New(conn.AppID, conn.ApplicationAccessKey, clientOpts...)
	inspector := inspect.New(inspect.NewClientSampler(api), inspect.WithSampleSize(a.SampleSize))

	def, err := inspector.InspectTable(context.Background(), a.TableName, a.KeyField)
	if err != nil {
		return err
	}

	rawConn := schema.Connections[a.Connection]
	if rawConn.Tables == nil {
		rawConn.Tables = make(map[string]appsheet.TableDefinition)
	}

	rawConn.Tables[a.TableName] = def
	schema.Connections[a.Connection] = rawConn

	if err := appsheet.SaveSchema(ctx.Schema, schema); err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Green("Added table %q (%d fields, key %q) to connection %q", a.TableName, len(def.Fields), def.KeyField, a.Connection)
	}

	return nil
}
