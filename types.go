package appsheet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Row is a single record as returned by or sent to the AppSheet API.
// There is no fixed shape beyond what the table schema declares; rows are
// identified by the table's key field, which is not necessarily named "id".
type Row map[string]any

// FieldType identifies one of the AppSheet column types. Each type implies
// a validation rule applied before mutating calls (see ValidateValue).
type FieldType string

const (
	FieldTypeText            FieldType = "Text"
	FieldTypeNumber          FieldType = "Number"
	FieldTypeDecimal         FieldType = "Decimal"
	FieldTypePrice           FieldType = "Price"
	FieldTypePercent         FieldType = "Percent"
	FieldTypeYesNo           FieldType = "YesNo"
	FieldTypeDate            FieldType = "Date"
	FieldTypeDateTime        FieldType = "DateTime"
	FieldTypeTime            FieldType = "Time"
	FieldTypeDuration        FieldType = "Duration"
	FieldTypeEmail           FieldType = "Email"
	FieldTypeURL             FieldType = "URL"
	FieldTypePhone           FieldType = "Phone"
	FieldTypeEnum            FieldType = "Enum"
	FieldTypeEnumList        FieldType = "EnumList"
	FieldTypeRef             FieldType = "Ref"
	FieldTypeRefList         FieldType = "RefList"
	FieldTypeImage           FieldType = "Image"
	FieldTypeFile            FieldType = "File"
	FieldTypeDrawing         FieldType = "Drawing"
	FieldTypeSignature       FieldType = "Signature"
	FieldTypeColor           FieldType = "Color"
	FieldTypeChangeCounter   FieldType = "ChangeCounter"
	FieldTypeChangeTimestamp FieldType = "ChangeTimestamp"
	FieldTypeChangeLocation  FieldType = "ChangeLocation"
	FieldTypeShow            FieldType = "Show"
	FieldTypeName            FieldType = "Name"
	FieldTypeAddress         FieldType = "Address"
)

// KnownFieldTypes lists every recognized field type tag.
var KnownFieldTypes = []FieldType{
	FieldTypeText, FieldTypeNumber, FieldTypeDecimal, FieldTypePrice,
	FieldTypePercent, FieldTypeYesNo, FieldTypeDate, FieldTypeDateTime,
	FieldTypeTime, FieldTypeDuration, FieldTypeEmail, FieldTypeURL,
	FieldTypePhone, FieldTypeEnum, FieldTypeEnumList, FieldTypeRef,
	FieldTypeRefList, FieldTypeImage, FieldTypeFile, FieldTypeDrawing,
	FieldTypeSignature, FieldTypeColor, FieldTypeChangeCounter,
	FieldTypeChangeTimestamp, FieldTypeChangeLocation, FieldTypeShow,
	FieldTypeName, FieldTypeAddress,
}

// IsKnown reports whether the tag is part of the recognized set.
// Unrecognized tags are not an error at validation time (values pass
// through unchecked) but schema validation reports them.
func (t FieldType) IsKnown() bool {
	for _, k := range KnownFieldTypes {
		if t == k {
			return true
		}
	}

	return false
}

// FieldDefinition describes a single column of a table.
type FieldDefinition struct {
	Type            FieldType `yaml:"type" json:"type"`
	Required        bool      `yaml:"required,omitempty" json:"required,omitempty"`
	AllowedValues   []string  `yaml:"allowedValues,omitempty" json:"allowedValues,omitempty"`
	ReferencedTable string    `yaml:"referencedTable,omitempty" json:"referencedTable,omitempty"`
	Description     string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// TableDefinition describes one table of a connection. KeyField names the
// field whose value identifies rows for update and delete.
type TableDefinition struct {
	TableName string                     `yaml:"tableName" json:"tableName"`
	KeyField  string                     `yaml:"keyField" json:"keyField"`
	Fields    map[string]FieldDefinition `yaml:"fields" json:"fields"`
}

// ConnectionDefinition binds app credentials and a base URL to a set of
// table definitions. Timeout is in seconds; zero means the client default.
type ConnectionDefinition struct {
	AppID                string                     `yaml:"appId" json:"appId"`
	ApplicationAccessKey string                     `yaml:"applicationAccessKey" json:"applicationAccessKey"`
	BaseURL              string                     `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	Timeout              int                        `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Tables               map[string]TableDefinition `yaml:"tables" json:"tables"`
}

// SchemaConfig is the root of a schema document. It is loaded once at
// startup and treated as immutable; hot reload replaces the whole value.
type SchemaConfig struct {
	Connections map[string]ConnectionDefinition `yaml:"connections" json:"connections"`
}

// Properties carries the per-request properties of an Action call.
// A caller-supplied value takes precedence over the client-wide default
// RunAsUserEmail.
type Properties struct {
	Locale         string `json:"Locale,omitempty"`
	Location       string `json:"Location,omitempty"`
	Timezone       string `json:"Timezone,omitempty"`
	UserID         string `json:"UserId,omitempty"`
	RunAsUserEmail string `json:"RunAsUserEmail,omitempty"`
	Selector       string `json:"Selector,omitempty"`
}

// TableAPI is the operation surface shared by the HTTP table client and the
// mock table client. Implementations validate rows against the table schema
// before any mutating call.
type TableAPI interface {
	Add(ctx context.Context, rows []Row, props *Properties) ([]Row, error)
	Find(ctx context.Context, selector string, props *Properties) ([]Row, error)
	Edit(ctx context.Context, rows []Row, props *Properties) ([]Row, error)
	Delete(ctx context.Context, rows []Row, props *Properties) ([]Row, error)

	FindAll(ctx context.Context) ([]Row, error)
	FindOne(ctx context.Context, key string) (Row, error)
	AddOne(ctx context.Context, row Row) (Row, error)
	UpdateOne(ctx context.Context, row Row) (Row, error)
	DeleteOne(ctx context.Context, key string) (bool, error)
}

// Connection is a named client handle: one app binding with its tables.
type Connection interface {
	Table(name string) (TableAPI, error)
	Tables() []string
	HealthCheck(ctx context.Context) error
}

// SelectorEquals builds an equality filter in the API's bracketed syntax,
// e.g. [status] = "Active".
func SelectorEquals(field, value string) string {
	return fmt.Sprintf("[%s] = %q", field, value)
}

// SelectorIn builds a membership filter, e.g. [status] IN ("A","B").
func SelectorIn(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}

	return fmt.Sprintf("[%s] IN (%s)", field, strings.Join(quoted, ","))
}

// DetectKeyField guesses the key field of a table from a sample row.
// Preference order: a field name ending in "_id", a field literally named
// "id", the first field whose value looks like a UUID, else "id".
// Field names are scanned in sorted order so detection is deterministic.
func DetectKeyField(row Row) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if strings.HasSuffix(name, "_id") {
			return name
		}
	}

	if _, ok := row["id"]; ok {
		return "id"
	}

	for _, name := range names {
		if s, ok := row[name].(string); ok {
			if _, err := uuid.Parse(s); err == nil {
				return name
			}
		}
	}

	return "id"
}

// CloneRow returns a copy that shares no state with the original row.
// Nested slices are copied one
// level deep, which covers EnumList/RefList values.
func CloneRow(row Row) Row {
	if row == nil {
		return nil
	}

	out := make(Row, len(row))

	for k, v := range row {
		if list, ok := v.([]any); ok {
			copied := make([]any, len(list))
			copy(copied, list)
			out[k] = copied

			continue
		}

		out[k] = v
	}

	return out
}

// CloneRows copies a slice of rows.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = CloneRow(r)
	}

	return out
}
