package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsheet "github.com/shibukawa/appsheet"
)

// Connection binds one connection definition to a Client and hands out
// table clients. It implements appsheet.Connection.
type Connection struct {
	client *Client
	def    appsheet.ConnectionDefinition
}

// NewConnection builds a connection from its schema definition. The
// definition's baseUrl and timeout are applied before any extra options,
// so explicit options win.
func NewConnection(def appsheet.ConnectionDefinition, opts ...Option) *Connection {
	var merged []Option

	if def.BaseURL != "" {
		merged = append(merged, WithBaseURL(def.BaseURL))
	}

	if def.Timeout > 0 {
		merged = append(merged, WithTimeout(time.Duration(def.Timeout)*time.Second))
	}

	merged = append(merged, opts...)

	return &Connection{
		client: New(def.AppID, def.ApplicationAccessKey, merged...),
		def:    def,
	}
}

// Client exposes the underlying HTTP client, e.g. for the schema inspector
// which operates on tables that have no definition yet.
func (c *Connection) Client() *Client {
	return c.client
}

// Table returns the client for a schema table name.
func (c *Connection) Table(name string) (appsheet.TableAPI, error) {
	def, ok := c.def.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", appsheet.ErrUnknownTable, name)
	}

	return &Table{client: c.client, def: def}, nil
}

// Tables lists the schema table names in sorted order.
func (c *Connection) Tables() []string {
	names := make([]string, 0, len(c.def.Tables))
	for name := range c.def.Tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// HealthCheck issues a Find against the first table of the connection.
// The API has no dedicated ping endpoint, so a working read is the
// cheapest liveness signal available.
func (c *Connection) HealthCheck(ctx context.Context) error {
	names := c.Tables()
	if len(names) == 0 {
		return fmt.Errorf("%w: connection has no tables", appsheet.ErrUnknownTable)
	}

	table, err := c.Table(names[0])
	if err != nil {
		return err
	}

	_, err = table.Find(ctx, "", nil)

	return err
}

// Table is the HTTP-backed client for a single table. Rows are validated
// against the field definitions before any mutating call reaches the
// network, so a local validation failure never causes a partial mutation.
type Table struct {
	client *Client
	def    appsheet.TableDefinition
}

// NewTable builds a table client directly from a definition.
func NewTable(client *Client, def appsheet.TableDefinition) *Table {
	return &Table{client: client, def: def}
}

// Definition returns the bound table definition.
func (t *Table) Definition() appsheet.TableDefinition {
	return t.def
}

// Add inserts rows. Insert-style validation applies: required fields must
// be present and every provided value must match its declared type.
func (t *Table) Add(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := appsheet.ValidateRows(t.def, rows, appsheet.ModeInsert); err != nil {
		return nil, err
	}

	return t.client.Invoke(ctx, t.def.TableName, ActionAdd, props, rows)
}

// Find reads rows, optionally filtered by a selector expression.
func (t *Table) Find(ctx context.Context, selector string, props *appsheet.Properties) ([]appsheet.Row, error) {
	merged := appsheet.Properties{}
	if props != nil {
		merged = *props
	}

	if selector != "" {
		merged.Selector = selector
	}

	return t.client.Invoke(ctx, t.def.TableName, ActionFind, &merged, nil)
}

// Edit applies partial updates. Update-style validation applies: absent or
// nil fields are skipped, present values must still match their type.
func (t *Table) Edit(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := appsheet.ValidateRows(t.def, rows, appsheet.ModeUpdate); err != nil {
		return nil, err
	}

	return t.client.Invoke(ctx, t.def.TableName, ActionEdit, props, rows)
}

// Delete removes rows. Only the key value of each row is sent.
func (t *Table) Delete(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	keys := make([]appsheet.Row, len(rows))

	for i, row := range rows {
		value, ok := row[t.def.KeyField]
		if !ok || value == nil {
			return nil, &appsheet.FieldError{
				RowIndex: i,
				Field:    t.def.KeyField,
				Value:    value,
				Reason:   "key value is required for delete",
			}
		}

		keys[i] = appsheet.Row{t.def.KeyField: value}
	}

	return t.client.Invoke(ctx, t.def.TableName, ActionDelete, props, keys)
}

// FindAll is a no-selector Find.
func (t *Table) FindAll(ctx context.Context) ([]appsheet.Row, error) {
	return t.Find(ctx, "", nil)
}

// FindOne returns the row whose key equals the given value, or ErrNoRows.
func (t *Table) FindOne(ctx context.Context, key string) (appsheet.Row, error) {
	rows, err := t.Find(ctx, appsheet.SelectorEquals(t.def.KeyField, key), nil)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s=%q", appsheet.ErrNoRows, t.def.KeyField, key)
	}

	return rows[0], nil
}

// AddOne inserts a single row and returns the row the API echoed back.
func (t *Table) AddOne(ctx context.Context, row appsheet.Row) (appsheet.Row, error) {
	rows, err := t.Add(ctx, []appsheet.Row{row}, nil)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return row, nil
	}

	return rows[0], nil
}

// UpdateOne applies a single partial update.
func (t *Table) UpdateOne(ctx context.Context, row appsheet.Row) (appsheet.Row, error) {
	rows, err := t.Edit(ctx, []appsheet.Row{row}, nil)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return row, nil
	}

	return rows[0], nil
}

// DeleteOne removes the row with the given key value and reports whether
// the API confirmed a deletion.
func (t *Table) DeleteOne(ctx context.Context, key string) (bool, error) {
	rows, err := t.Delete(ctx, []appsheet.Row{{t.def.KeyField: key}}, nil)
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}
