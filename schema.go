package appsheet

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// EnvLookup resolves an environment placeholder name to a value. It is an
// explicit capability so schema loading stays deterministic in tests; the
// default is os.LookupEnv.
type EnvLookup func(name string) (string, bool)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadSchema loads a schema document from a YAML or JSON file, resolving
// ${VAR} placeholders from the process environment. A .env file in the
// current directory is loaded first if present.
func LoadSchema(path string) (*SchemaConfig, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	return LoadSchemaWithEnv(path, os.LookupEnv)
}

// LoadSchemaWithEnv loads a schema document resolving placeholders through
// the given lookup. An unresolved placeholder is a hard load failure.
func LoadSchemaWithEnv(path string, lookup EnvLookup) (*SchemaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	return ParseSchema(data, lookup)
}

// ParseSchema parses schema bytes. goccy/go-yaml accepts both YAML and
// JSON input, so a single parse path covers the two documented formats.
func ParseSchema(data []byte, lookup EnvLookup) (*SchemaConfig, error) {
	expanded, err := expandPlaceholders(string(data), lookup)
	if err != nil {
		return nil, err
	}

	var schema SchemaConfig

	if err := yaml.UnmarshalWithOptions([]byte(expanded), &schema, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	return &schema, nil
}

// LoadSchemaRaw loads a schema document without resolving placeholders:
// every ${VAR} survives as literal text. Used when a schema file is loaded
// only to be rewritten, so credentials never leak into the saved file.
func LoadSchemaRaw(path string) (*SchemaConfig, error) {
	return LoadSchemaWithEnv(path, func(name string) (string, bool) {
		return "${" + name + "}", true
	})
}

// SaveSchema writes a schema document back to disk as YAML. Used by the
// CLI init and add-table commands.
func SaveSchema(path string, schema *SchemaConfig) error {
	data, err := yaml.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	return nil
}

// expandPlaceholders substitutes every ${VAR} occurrence. Unlike shell
// expansion, a variable with no value fails loudly instead of expanding to
// an empty credential.
func expandPlaceholders(s string, lookup EnvLookup) (string, error) {
	var missing []string

	expanded := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]

		value, ok := lookup(name)
		if !ok || value == "" {
			missing = append(missing, name)
			return match
		}

		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, strings.Join(missing, ", "))
	}

	return expanded, nil
}

// loadEnvFiles loads a .env file if one exists in the working directory.
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

// ValidationResult is the outcome of a structural schema check. Errors
// holds one message per missing or inconsistent element.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err flattens the result into a single error wrapping ErrSchemaValidation,
// or nil when the schema is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}

	var combined error
	for _, msg := range r.Errors {
		combined = multierr.Append(combined, fmt.Errorf("%w: %s", ErrSchemaValidation, msg))
	}

	return combined
}

// ValidateSchema checks a schema document for structural completeness:
// every connection needs credentials, every table needs a physical name and
// a key field, and every field needs a recognized type. Ref fields that
// name an unknown table within the connection are reported as well.
func ValidateSchema(schema *SchemaConfig) ValidationResult {
	var errs []string

	if schema == nil || len(schema.Connections) == 0 {
		return ValidationResult{Valid: false, Errors: []string{"schema has no connections"}}
	}

	for _, connName := range sortedKeys(schema.Connections) {
		conn := schema.Connections[connName]

		if conn.AppID == "" {
			errs = append(errs, fmt.Sprintf("connection %q: appId is required", connName))
		}

		if conn.ApplicationAccessKey == "" {
			errs = append(errs, fmt.Sprintf("connection %q: applicationAccessKey is required", connName))
		}

		for _, tableName := range sortedKeys(conn.Tables) {
			table := conn.Tables[tableName]

			if table.TableName == "" {
				errs = append(errs, fmt.Sprintf("connection %q table %q: tableName is required", connName, tableName))
			}

			if table.KeyField == "" {
				errs = append(errs, fmt.Sprintf("connection %q table %q: keyField is required", connName, tableName))
			}

			for _, fieldName := range sortedKeys(table.Fields) {
				field := table.Fields[fieldName]

				if field.Type == "" {
					errs = append(errs, fmt.Sprintf("connection %q table %q field %q: type is required", connName, tableName, fieldName))
					continue
				}

				if !field.Type.IsKnown() {
					errs = append(errs, fmt.Sprintf("connection %q table %q field %q: unknown type %q", connName, tableName, fieldName, field.Type))
				}

				if field.ReferencedTable != "" {
					if _, ok := conn.Tables[field.ReferencedTable]; !ok {
						errs = append(errs, fmt.Sprintf("connection %q table %q field %q: referencedTable %q not defined", connName, tableName, fieldName, field.ReferencedTable))
					}
				}
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
