package inspect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	appsheet "github.com/shibukawa/appsheet"
	"github.com/shibukawa/appsheet/client"
)

// DefaultSampleSize bounds how many rows are examined per table.
const DefaultSampleSize = 50

// Sampler fetches rows from a live table. It is a capability interface so
// the inference pipeline can be tested without a network.
type Sampler interface {
	Sample(ctx context.Context, tableName string, limit int) ([]appsheet.Row, error)
}

// clientSampler samples through the HTTP client. The Find call carries no
// selector; the limit is applied locally since the API has no row cap
// parameter on Action calls.
type clientSampler struct {
	c *client.Client
}

// NewClientSampler adapts an HTTP client into a Sampler.
func NewClientSampler(c *client.Client) Sampler {
	return &clientSampler{c: c}
}

func (s *clientSampler) Sample(ctx context.Context, tableName string, limit int) ([]appsheet.Row, error) {
	rows, err := s.c.Invoke(ctx, tableName, client.ActionFind, nil, nil)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}

// Inspector infers table definitions from sampled rows.
type Inspector struct {
	sampler    Sampler
	sampleSize int
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithSampleSize overrides the per-table sample bound.
func WithSampleSize(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.sampleSize = n
		}
	}
}

// New creates an Inspector over a sampler.
func New(sampler Sampler, opts ...Option) *Inspector {
	i := &Inspector{sampler: sampler, sampleSize: DefaultSampleSize}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// InspectTable samples a table and returns an inferred definition.
// keyField may be empty, in which case it is detected from the first row.
// An empty table cannot be inferred and fails with ErrNoRows.
func (i *Inspector) InspectTable(ctx context.Context, tableName, keyField string) (appsheet.TableDefinition, error) {
	rows, err := i.sampler.Sample(ctx, tableName, i.sampleSize)
	if err != nil {
		return appsheet.TableDefinition{}, fmt.Errorf("failed to sample table %q: %w", tableName, err)
	}

	if len(rows) == 0 {
		return appsheet.TableDefinition{}, fmt.Errorf("%w: table %q has no rows to sample", appsheet.ErrNoRows, tableName)
	}

	if keyField == "" {
		keyField = appsheet.DetectKeyField(rows[0])
	}

	def := appsheet.TableDefinition{
		TableName: tableName,
		KeyField:  keyField,
		Fields:    make(map[string]appsheet.FieldDefinition),
	}

	for _, name := range fieldNames(rows) {
		def.Fields[name] = inferField(name, keyField, rows)
	}

	return def, nil
}

// InspectTables inspects several tables, returning the definitions that
// could be inferred and one error per table that could not.
func (i *Inspector) InspectTables(ctx context.Context, tableNames []string, keyFields map[string]string) (map[string]appsheet.TableDefinition, []error) {
	defs := make(map[string]appsheet.TableDefinition, len(tableNames))

	var errs []error

	for _, name := range tableNames {
		def, err := i.InspectTable(ctx, name, keyFields[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}

		defs[name] = def
	}

	return defs, errs
}

// inferField builds one field definition from the sample vector.
func inferField(name, keyField string, rows []appsheet.Row) appsheet.FieldDefinition {
	var values []any

	required := true

	for _, row := range rows {
		v, present := row[name]
		if !present || v == nil || v == "" {
			required = false
			continue
		}

		values = append(values, v)
	}

	fieldType := inferType(values)

	def := appsheet.FieldDefinition{Type: fieldType, Required: required}

	// A foreign-key looking name wins over the value heuristics; the
	// referenced table is guessed from the name stem.
	if name != keyField && strings.HasSuffix(name, "_id") && fieldType == appsheet.FieldTypeText {
		def.Type = appsheet.FieldTypeRef
		def.ReferencedTable = strings.TrimSuffix(name, "_id")

		return def
	}

	if fieldType == appsheet.FieldTypeText {
		if allowed, ok := enumCandidate(values); ok {
			def.Type = appsheet.FieldTypeEnum
			def.AllowedValues = allowed
		}
	}

	return def
}

// fieldNames unions the field names across the sample, sorted.
func fieldNames(rows []appsheet.Row) []string {
	seen := make(map[string]struct{})

	for _, row := range rows {
		for name := range row {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
