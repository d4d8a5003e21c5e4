package appsheet

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// ValidationMode selects how required fields are treated. Insert rejects a
// missing or nil required field; update treats absent and nil fields as
// "not provided" and skips them entirely, even when required.
type ValidationMode int

const (
	ModeInsert ValidationMode = iota
	ModeUpdate
)

var (
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\s+\-()]+$`)
)

// ValidateRows validates a batch of rows against a table definition.
// Within a row, validation stops at the first failing field (fail fast per
// row); across rows, every failing row is reported, so a multi-row call
// surfaces all violating rows at once.
func ValidateRows(table TableDefinition, rows []Row, mode ValidationMode) error {
	var combined error

	for i, row := range rows {
		if err := ValidateRow(table, row, mode, i); err != nil {
			combined = multierr.Append(combined, err)
		}
	}

	return combined
}

// ValidateRow validates a single row. rowIndex is carried into the
// resulting FieldError for batch reporting.
func ValidateRow(table TableDefinition, row Row, mode ValidationMode, rowIndex int) error {
	for _, name := range sortedKeys(table.Fields) {
		def := table.Fields[name]

		value, present := row[name]
		if !present || value == nil {
			if mode == ModeInsert && def.Required {
				return &FieldError{
					RowIndex: rowIndex,
					Field:    name,
					Type:     def.Type,
					Value:    value,
					Reason:   "required field is missing",
				}
			}

			continue
		}

		if reason, ok := checkValue(def, value); !ok {
			return &FieldError{
				RowIndex: rowIndex,
				Field:    name,
				Type:     def.Type,
				Value:    value,
				Reason:   reason,
			}
		}
	}

	return nil
}

// ValidateValue checks one value against a field definition without row
// context. Used by callers that validate field-by-field.
func ValidateValue(field string, def FieldDefinition, value any) error {
	if reason, ok := checkValue(def, value); !ok {
		return &FieldError{Field: field, Type: def.Type, Value: value, Reason: reason}
	}

	return nil
}

// checkValue applies the per-type rule, then the allowed-values rule for
// Enum and EnumList. An unrecognized type tag passes through unchecked.
func checkValue(def FieldDefinition, value any) (string, bool) {
	switch def.Type {
	case FieldTypeNumber, FieldTypeDecimal, FieldTypePrice, FieldTypeChangeCounter:
		if _, ok := asDecimal(value); !ok {
			return "expected a numeric value", false
		}

	case FieldTypePercent:
		d, ok := asDecimal(value)
		if !ok {
			return "expected a numeric value", false
		}

		if d.LessThan(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(1)) {
			return "expected a value between 0 and 1", false
		}

	case FieldTypeYesNo:
		if _, ok := value.(bool); ok {
			break
		}

		if s, ok := value.(string); ok && (s == "Yes" || s == "No") {
			break
		}

		return `expected a boolean or "Yes"/"No"`, false

	case FieldTypeEnumList, FieldTypeRefList:
		if !isList(value) {
			return "expected a list", false
		}

	case FieldTypeDate:
		if _, ok := value.(time.Time); ok {
			break
		}

		if s, ok := value.(string); ok && datePattern.MatchString(s) {
			break
		}

		return "expected a YYYY-MM-DD date", false

	case FieldTypeDateTime, FieldTypeChangeTimestamp:
		if _, ok := value.(time.Time); ok {
			break
		}

		if s, ok := value.(string); ok && dateTimePattern.MatchString(s) {
			break
		}

		return "expected a YYYY-MM-DDThh:mm:ss timestamp", false

	case FieldTypeTime, FieldTypeDuration:
		if _, ok := value.(string); !ok {
			return "expected a string", false
		}

	case FieldTypeEmail:
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(s) {
			return "expected an email address", false
		}

	case FieldTypeURL:
		s, ok := value.(string)
		if !ok {
			return "expected a URL", false
		}

		if u, err := url.Parse(s); err != nil || u.Scheme == "" || u.Host == "" {
			return "expected a URL", false
		}

	case FieldTypePhone:
		s, ok := value.(string)
		if !ok || s == "" || !phonePattern.MatchString(s) {
			return "expected a phone number", false
		}

	case FieldTypeText, FieldTypeName, FieldTypeAddress, FieldTypeColor,
		FieldTypeEnum, FieldTypeRef, FieldTypeImage, FieldTypeFile,
		FieldTypeDrawing, FieldTypeSignature, FieldTypeChangeLocation,
		FieldTypeShow:
		if _, ok := value.(string); !ok {
			return "expected a string", false
		}

	default:
		// Unrecognized type: pass through.
		return "", true
	}

	return checkAllowedValues(def, value)
}

// checkAllowedValues enforces enum membership. For EnumList every invalid
// element is collected and reported together, not just the first.
func checkAllowedValues(def FieldDefinition, value any) (string, bool) {
	if len(def.AllowedValues) == 0 {
		return "", true
	}

	allowed := make(map[string]struct{}, len(def.AllowedValues))
	for _, v := range def.AllowedValues {
		allowed[v] = struct{}{}
	}

	switch def.Type {
	case FieldTypeEnum:
		s, _ := value.(string)
		if _, ok := allowed[s]; !ok {
			return fmt.Sprintf("value %q is not in allowed values [%s]", s, strings.Join(def.AllowedValues, ", ")), false
		}

	case FieldTypeEnumList:
		var invalid []string

		for _, elem := range listElements(value) {
			s := fmt.Sprintf("%v", elem)
			if _, ok := allowed[s]; !ok {
				invalid = append(invalid, s)
			}
		}

		if len(invalid) > 0 {
			return fmt.Sprintf("values [%s] are not in allowed values [%s]", strings.Join(invalid, ", "), strings.Join(def.AllowedValues, ", ")), false
		}
	}

	return "", true
}

// asDecimal converts numeric Go values, json.Number and numeric strings to
// a decimal. Booleans and non-numeric strings are rejected.
func asDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case decimal.Decimal:
		return v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Decimal{}, false
		}

		d, err := decimal.NewFromString(v)

		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func isList(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func listElements(value any) []any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}

	return out
}
