// Package mock provides an in-memory stand-in for the AppSheet API with
// the same operation contract as the HTTP client, for deterministic tests.
package mock

import (
	"fmt"
	"sort"
	"sync"

	appsheet "github.com/shibukawa/appsheet"
)

// TableSeed is the initial content of one mock table. KeyField may be
// empty, in which case it is auto-detected from the first row.
type TableSeed struct {
	Rows     []appsheet.Row
	KeyField string
}

// DataProvider supplies seed data to a mock connection. It is consumed
// once at construction time.
type DataProvider interface {
	GetTables() map[string]TableSeed
}

// StaticData is the trivial DataProvider over a literal map.
type StaticData map[string]TableSeed

func (d StaticData) GetTables() map[string]TableSeed {
	return d
}

// Store holds per-table row maps keyed by the table's key field value.
// Rows are copied on the way in and out so callers can never alias stored
// state. Mutations on the same table are serialized by a per-table mutex.
type Store struct {
	mu     sync.Mutex
	tables map[string]*storeTable
}

type storeTable struct {
	mu       sync.Mutex
	keyField string
	rows     map[string]appsheet.Row
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*storeTable)}
}

// DeclareTable registers a table with an explicit key field. Declaring an
// existing table only updates its key field.
func (s *Store) DeclareTable(name, keyField string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[name]; ok {
		if keyField != "" {
			t.keyField = keyField
		}

		return
	}

	s.tables[name] = &storeTable{keyField: keyField, rows: make(map[string]appsheet.Row)}
}

// Seed inserts rows into a table, auto-detecting the key field from the
// first row when the table has not been declared with one.
func (s *Store) Seed(name string, rows []appsheet.Row) error {
	if len(rows) == 0 {
		return nil
	}

	t := s.table(name)

	t.mu.Lock()
	if t.keyField == "" {
		t.keyField = appsheet.DetectKeyField(rows[0])
	}
	t.mu.Unlock()

	for _, row := range rows {
		if err := s.Insert(name, row); err != nil {
			return err
		}
	}

	return nil
}

// KeyField returns the key field of a table, or empty when undetermined.
func (s *Store) KeyField(name string) string {
	t, ok := s.lookup(name)
	if !ok {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.keyField
}

// Insert stores a copy of the row. The row must carry a non-empty key
// value, and the key must not already exist; a duplicate insert leaves the
// stored row unchanged.
func (s *Store) Insert(name string, row appsheet.Row) error {
	t := s.table(name)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.keyField == "" {
		t.keyField = appsheet.DetectKeyField(row)
	}

	key := keyString(row[t.keyField])
	if key == "" {
		return fmt.Errorf("%w: table %q field %q", appsheet.ErrMissingKeyValue, name, t.keyField)
	}

	if _, exists := t.rows[key]; exists {
		return fmt.Errorf("%w: table %q key %q", appsheet.ErrDuplicateKey, name, key)
	}

	t.rows[key] = appsheet.CloneRow(row)

	return nil
}

// Get returns a copy of the row with the given key value.
func (s *Store) Get(name, key string) (appsheet.Row, bool) {
	t, ok := s.lookup(name)
	if !ok {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}

	return appsheet.CloneRow(row), true
}

// All returns copies of every row, ordered by key for determinism.
func (s *Store) All(name string) []appsheet.Row {
	t, ok := s.lookup(name)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]appsheet.Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, appsheet.CloneRow(t.rows[k]))
	}

	return out
}

// FindWhere returns copies of the rows matching a predicate.
func (s *Store) FindWhere(name string, pred func(appsheet.Row) bool) []appsheet.Row {
	var out []appsheet.Row

	for _, row := range s.All(name) {
		if pred(row) {
			out = append(out, row)
		}
	}

	return out
}

// Update shallow-merges partial fields into the stored row and returns a
// copy of the merged result. It returns false when the table or key does
// not exist; the client layer promotes that to a not-found error.
func (s *Store) Update(name, key string, partial appsheet.Row) (appsheet.Row, bool) {
	t, ok := s.lookup(name)
	if !ok {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}

	for k, v := range partial {
		row[k] = v
	}

	return appsheet.CloneRow(row), true
}

// Delete removes a row and reports whether it existed. Deleting a missing
// row is a successful no-op.
func (s *Store) Delete(name, key string) bool {
	t, ok := s.lookup(name)
	if !ok {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[key]; !ok {
		return false
	}

	delete(t.rows, key)

	return true
}

// Clear drops every table.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = make(map[string]*storeTable)
}

// table returns the named table, creating it on demand. Only the write
// paths (Insert, Seed) use it; read paths go through lookup so probing an
// unknown table never grows store state.
func (s *Store) table(name string) *storeTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &storeTable{rows: make(map[string]appsheet.Row)}
		s.tables[name] = t
	}

	return t
}

func (s *Store) lookup(name string) (*storeTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]

	return t, ok
}

// keyString normalizes a key value for map lookup. Nil and empty values
// normalize to the empty string, which insert rejects.
func keyString(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
