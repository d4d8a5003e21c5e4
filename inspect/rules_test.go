package inspect

import (
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"

	appsheet "github.com/shibukawa/appsheet"
)

func TestInferType(t *testing.T) {
	cases := []struct {
		name   string
		values []any
		want   appsheet.FieldType
	}{
		{"Booleans", []any{true, false, true}, appsheet.FieldTypeYesNo},
		{"YesNoStrings", []any{"Yes", "No"}, appsheet.FieldTypeYesNo},
		{"MixedYesNoAndText", []any{"Yes", "Maybe"}, appsheet.FieldTypeText},
		{"Integers", []any{1, 42, 7}, appsheet.FieldTypeNumber},
		{"NumericStrings", []any{"10", "20.5"}, appsheet.FieldTypeNumber},
		{"Fractions", []any{0.25, 0.5, 1.0}, appsheet.FieldTypePercent},
		{"FractionStrings", []any{"0.1", "0.9"}, appsheet.FieldTypePercent},
		{"Dates", []any{"2026-01-15", "2026-02-01"}, appsheet.FieldTypeDate},
		{"DateTimes", []any{"2026-01-15T10:30:00"}, appsheet.FieldTypeDateTime},
		{"Emails", []any{"a@example.com", "b@example.org"}, appsheet.FieldTypeEmail},
		{"URLs", []any{"https://example.com/x", "http://example.org"}, appsheet.FieldTypeURL},
		{"Phones", []any{"+1 (555) 123-4567", "03-1234-5678"}, appsheet.FieldTypePhone},
		{"Lists", []any{[]any{"a", "b"}, []any{"c"}}, appsheet.FieldTypeEnumList},
		{"PlainText", []any{"hello", "world"}, appsheet.FieldTypeText},
		{"Empty", nil, appsheet.FieldTypeText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferType(tc.values))
		})
	}
}

// Values in [0, 1] are both percentages and numbers; the narrower reading
// wins. One value outside the interval demotes the whole column to Number.
func TestPercentTakesPriorityOverNumber(t *testing.T) {
	assert.Equal(t, appsheet.FieldTypePercent, inferType([]any{0.0, 0.5, 1.0}))
	assert.Equal(t, appsheet.FieldTypeNumber, inferType([]any{0.0, 0.5, 1.5}))
}

func TestEnumCandidate(t *testing.T) {
	t.Run("FewDistinctValuesOverLargeSample", func(t *testing.T) {
		var values []any
		for i := 0; i < 10; i++ {
			values = append(values, "Open", "Closed")
		}

		allowed, ok := enumCandidate(values)
		assert.True(t, ok)
		assert.Equal(t, []string{"Closed", "Open"}, allowed)
	})

	t.Run("SampleTooSmall", func(t *testing.T) {
		_, ok := enumCandidate([]any{"a", "a", "b", "b"})
		assert.False(t, ok)
	})

	t.Run("TooManyDistinctValues", func(t *testing.T) {
		var values []any
		for i := 0; i < 30; i++ {
			values = append(values, fmt.Sprintf("v%d", i%11), "pad")
		}

		_, ok := enumCandidate(values)
		assert.False(t, ok)
	})

	t.Run("RatioTooHigh", func(t *testing.T) {
		// 5 distinct values over 6 samples: nearly every row differs.
		_, ok := enumCandidate([]any{"a", "b", "c", "d", "e", "a"})
		assert.False(t, ok)
	})

	t.Run("NonStringValuesNeverPromote", func(t *testing.T) {
		_, ok := enumCandidate([]any{"a", "a", "a", "a", 1, "a"})
		assert.False(t, ok)
	})
}
