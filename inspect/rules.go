package inspect

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	appsheet "github.com/shibukawa/appsheet"
)

// Enum promotion thresholds. A Text field is promoted to Enum only when the
// sample is large enough and the distinct values are few, both absolutely
// and relative to the sample size.
const (
	minEnumSamples = 5
	maxEnumValues  = 10
	maxEnumRatio   = 0.5
)

var (
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlPattern      = regexp.MustCompile(`^https?://\S+$`)
	phonePattern    = regexp.MustCompile(`^[+(]?[\d\s+\-()]{5,}$`)
)

// rule maps a per-value predicate to the field type it implies. A rule
// matches a field when every sampled value satisfies the predicate.
type rule struct {
	fieldType appsheet.FieldType
	match     func(any) bool
}

// inferenceRules is evaluated top to bottom and the first full match wins.
// Percent must precede Number: a column of values in [0, 1] is numeric too,
// so the narrower rule has to get the first look.
var inferenceRules = []rule{
	{appsheet.FieldTypeYesNo, isYesNo},
	{appsheet.FieldTypePercent, isPercent},
	{appsheet.FieldTypeNumber, isNumeric},
	{appsheet.FieldTypeDate, isDate},
	{appsheet.FieldTypeDateTime, isDateTime},
	{appsheet.FieldTypeEmail, isEmail},
	{appsheet.FieldTypeURL, isURL},
	{appsheet.FieldTypePhone, isPhone},
	{appsheet.FieldTypeEnumList, isListValue},
}

// inferType picks the narrowest field type every sampled value conforms to,
// falling back to Text. An empty sample is Text as well.
func inferType(values []any) appsheet.FieldType {
	if len(values) == 0 {
		return appsheet.FieldTypeText
	}

	for _, r := range inferenceRules {
		matched := true

		for _, v := range values {
			if !r.match(v) {
				matched = false
				break
			}
		}

		if matched {
			return r.fieldType
		}
	}

	return appsheet.FieldTypeText
}

// enumCandidate reports whether a Text sample looks like a closed value set.
// The returned values are sorted for stable schema output.
func enumCandidate(values []any) ([]string, bool) {
	if len(values) < minEnumSamples {
		return nil, false
	}

	distinct := make(map[string]struct{})

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}

		distinct[s] = struct{}{}
	}

	if len(distinct) > maxEnumValues {
		return nil, false
	}

	if float64(len(distinct))/float64(len(values)) > maxEnumRatio {
		return nil, false
	}

	allowed := make([]string, 0, len(distinct))
	for s := range distinct {
		allowed = append(allowed, s)
	}

	sort.Strings(allowed)

	return allowed, true
}

func isYesNo(v any) bool {
	if _, ok := v.(bool); ok {
		return true
	}

	s, ok := v.(string)

	return ok && (s == "Yes" || s == "No")
}

func isNumeric(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func isPercent(v any) bool {
	f, ok := asFloat(v)
	return ok && f >= 0 && f <= 1
}

func isDate(v any) bool {
	s, ok := v.(string)
	return ok && datePattern.MatchString(s)
}

func isDateTime(v any) bool {
	s, ok := v.(string)
	return ok && dateTimePattern.MatchString(s)
}

func isEmail(v any) bool {
	s, ok := v.(string)
	return ok && emailPattern.MatchString(s)
}

func isURL(v any) bool {
	s, ok := v.(string)
	if !ok || !urlPattern.MatchString(s) {
		return false
	}

	u, err := url.Parse(s)

	return err == nil && u.Host != ""
}

func isPhone(v any) bool {
	s, ok := v.(string)
	return ok && phonePattern.MatchString(s)
}

func isListValue(v any) bool {
	_, ok := v.([]any)
	return ok
}

// asFloat accepts the numeric shapes JSON decoding and callers produce.
// Strings are included because sheet-backed APIs frequently serve numbers
// as text.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
