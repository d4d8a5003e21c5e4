package mock

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	appsheet "github.com/shibukawa/appsheet"
)

// PlaceholderIdentity is stamped into created_by/modified_by when neither
// the call nor the connection carries a RunAsUserEmail.
const PlaceholderIdentity = "mock@appsheet.local"

// Connection is the mock counterpart of client.Connection: same operation
// surface, backed by an in-memory store instead of HTTP.
type Connection struct {
	store          *Store
	def            appsheet.ConnectionDefinition
	runAsUserEmail string
	clock          clock.Clock
	providers      []DataProvider
	seedErr        error
}

// Option configures a mock connection.
type Option func(*Connection)

// WithDataProvider seeds the store from a provider. Seeding runs after the
// definition's tables are declared, so seeded rows are keyed by the
// declared key field. A seeding failure (e.g. a duplicate key in a
// fixture) is recorded and returned by every subsequent Table call.
func WithDataProvider(provider DataProvider) Option {
	return func(c *Connection) {
		c.providers = append(c.providers, provider)
	}
}

// WithRunAsUserEmail sets the connection-wide audit identity.
func WithRunAsUserEmail(email string) Option {
	return func(c *Connection) { c.runAsUserEmail = email }
}

// WithClock overrides the clock used for created_at/modified_at stamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Connection) { c.clock = clk }
}

// WithStore shares a store between connections, e.g. to inspect state from
// a test after exercising the client.
func WithStore(store *Store) Option {
	return func(c *Connection) { c.store = store }
}

// NewConnection builds a mock connection for a connection definition.
// Tables named in the definition are declared with their key fields before
// any provider seeding, so a seed without an explicit key field lands
// under the declared one rather than an auto-detected guess.
func NewConnection(def appsheet.ConnectionDefinition, opts ...Option) *Connection {
	c := &Connection{
		store: NewStore(),
		def:   def,
		clock: clock.WallClock,
	}

	for _, opt := range opts {
		opt(c)
	}

	for _, table := range def.Tables {
		c.store.DeclareTable(table.TableName, table.KeyField)
	}

	for _, provider := range c.providers {
		for name, seed := range provider.GetTables() {
			if seed.KeyField != "" {
				c.store.DeclareTable(name, seed.KeyField)
			}

			if err := c.store.Seed(name, seed.Rows); err != nil && c.seedErr == nil {
				c.seedErr = fmt.Errorf("seed data for table %q: %w", name, err)
			}
		}
	}

	return c
}

// Store exposes the backing store for seeding and assertions.
func (c *Connection) Store() *Store {
	return c.store
}

// Table returns the mock client for a schema table name. A seeding
// failure recorded at construction is returned here so fixture problems
// never pass silently.
func (c *Connection) Table(name string) (appsheet.TableAPI, error) {
	if c.seedErr != nil {
		return nil, c.seedErr
	}

	def, ok := c.def.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", appsheet.ErrUnknownTable, name)
	}

	return &Table{conn: c, def: def}, nil
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

// HealthCheck reports a recorded seeding failure; there is nothing remote
// to probe otherwise.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if c.seedErr != nil {
		return c.seedErr
	}

	return ctx.Err()
}

// Table is the mock client for a single table. It mirrors the validation
// and stamping behavior of the HTTP client layer: rows are validated
// before any store mutation, inserts get a generated key when the caller
// omits one, and audit fields are stamped on insert and update.
type Table struct {
	conn *Connection
	def  appsheet.TableDefinition
}

// Add validates and inserts rows, generating a UUID key when absent and
// stamping created_at/created_by.
func (t *Table) Add(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := appsheet.ValidateRows(t.def, rows, appsheet.ModeInsert); err != nil {
		return nil, err
	}

	keyField := t.keyField()
	now := t.conn.clock.Now().UTC().Format(time.RFC3339)
	by := t.identity(props)

	out := make([]appsheet.Row, 0, len(rows))

	for _, row := range rows {
		stored := appsheet.CloneRow(row)

		if keyString(stored[keyField]) == "" {
			stored[keyField] = uuid.NewString()
		}

		stored["created_at"] = now
		stored["created_by"] = by

		if err := t.conn.store.Insert(t.def.TableName, stored); err != nil {
			return nil, err
		}

		out = append(out, stored)
	}

	return out, nil
}

// Find returns rows filtered by the emulated selector.
func (t *Table) Find(ctx context.Context, selector string, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if selector == "" && props != nil {
		selector = props.Selector
	}

	return filterRows(t.conn.store.All(t.def.TableName), selector), nil
}

// Edit validates and merges partial updates, stamping
// modified_at/modified_by. Updating a missing key is a not-found error.
func (t *Table) Edit(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := appsheet.ValidateRows(t.def, rows, appsheet.ModeUpdate); err != nil {
		return nil, err
	}

	keyField := t.keyField()
	now := t.conn.clock.Now().UTC().Format(time.RFC3339)
	by := t.identity(props)

	out := make([]appsheet.Row, 0, len(rows))

	for i, row := range rows {
		key := keyString(row[keyField])
		if key == "" {
			return nil, &appsheet.FieldError{
				RowIndex: i,
				Field:    keyField,
				Value:    row[keyField],
				Reason:   "key value is required for update",
			}
		}

		partial := appsheet.CloneRow(row)
		partial["modified_at"] = now
		partial["modified_by"] = by

		merged, ok := t.conn.store.Update(t.def.TableName, key, partial)
		if !ok {
			return nil, &appsheet.APIError{
				Code:       appsheet.CodeNotFound,
				StatusCode: http.StatusNotFound,
				Message:    fmt.Sprintf("table %q has no row with key %q", t.def.TableName, key),
			}
		}

		out = append(out, merged)
	}

	return out, nil
}

// Delete removes rows by key value and returns the rows actually removed.
// Deleting a non-existent row is not an error; it simply does not appear
// in the result.
func (t *Table) Delete(ctx context.Context, rows []appsheet.Row, props *appsheet.Properties) ([]appsheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keyField := t.keyField()

	out := []appsheet.Row{}

	for _, row := range rows {
		key := keyString(row[keyField])
		if key == "" {
			continue
		}

		removed, ok := t.conn.store.Get(t.def.TableName, key)
		if !ok {
			continue
		}

		if t.conn.store.Delete(t.def.TableName, key) {
			out = append(out, removed)
		}
	}

	return out, nil
}

// FindAll is a no-selector Find.
func (t *Table) FindAll(ctx context.Context) ([]appsheet.Row, error) {
	return t.Find(ctx, "", nil)
}

// FindOne returns the row with the given key value, or ErrNoRows.
func (t *Table) FindOne(ctx context.Context, key string) (appsheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row, ok := t.conn.store.Get(t.def.TableName, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%q", appsheet.ErrNoRows, t.keyField(), key)
	}

	return row, nil
}

// AddOne inserts a single row.
func (t *Table) AddOne(ctx context.Context, row appsheet.Row) (appsheet.Row, error) {
	rows, err := t.Add(ctx, []appsheet.Row{row}, nil)
	if err != nil {
		return nil, err
	}

	return rows[0], nil
}

// UpdateOne applies a single partial update.
func (t *Table) UpdateOne(ctx context.Context, row appsheet.Row) (appsheet.Row, error) {
	rows, err := t.Edit(ctx, []appsheet.Row{row}, nil)
	if err != nil {
		return nil, err
	}

	return rows[0], nil
}

// DeleteOne removes the row with the given key value and reports whether a
// row was actually removed.
func (t *Table) DeleteOne(ctx context.Context, key string) (bool, error) {
	rows, err := t.Delete(ctx, []appsheet.Row{{t.keyField(): key}}, nil)
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

// keyField prefers the schema declaration and falls back to whatever the
// store detected from seed data.
func (t *Table) keyField() string {
	if t.def.KeyField != "" {
		return t.def.KeyField
	}

	if kf := t.conn.store.KeyField(t.def.TableName); kf != "" {
		return kf
	}

	return "id"
}

// identity resolves the audit identity: per-call, then connection-wide,
// then the fixed placeholder.
func (t *Table) identity(props *appsheet.Properties) string {
	if props != nil && props.RunAsUserEmail != "" {
		return props.RunAsUserEmail
	}

	if t.conn.runAsUserEmail != "" {
		return t.conn.runAsUserEmail
	}

	return PlaceholderIdentity
}
