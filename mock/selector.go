package mock

import (
	"fmt"
	"regexp"

	appsheet "github.com/shibukawa/appsheet"
)

// Selector emulation supports exactly two textual patterns:
//
//	[field] = "value"        equality (single or double quotes)
//	[field] IN ("v1","v2")   membership
//
// Any other selector syntax is accepted but ignored: the call returns all
// rows unfiltered. This is a known fidelity gap versus the real API's
// expression language and is covered by tests as documented behavior.
var (
	equalsSelectorPattern = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*=\s*["']([^"']*)["']\s*$`)
	inSelectorPattern     = regexp.MustCompile(`(?i)^\s*\[([^\]]+)\]\s+IN\s+\(([^)]*)\)\s*$`)
	inValuePattern        = regexp.MustCompile(`["']([^"']*)["']`)
)

// filterRows applies a selector to a row set.
func filterRows(rows []appsheet.Row, selector string) []appsheet.Row {
	if selector == "" {
		return rows
	}

	if m := equalsSelectorPattern.FindStringSubmatch(selector); m != nil {
		return filterEquals(rows, m[1], m[2])
	}

	if m := inSelectorPattern.FindStringSubmatch(selector); m != nil {
		var values []string
		for _, vm := range inValuePattern.FindAllStringSubmatch(m[2], -1) {
			values = append(values, vm[1])
		}

		return filterIn(rows, m[1], values)
	}

	return rows
}

func filterEquals(rows []appsheet.Row, field, value string) []appsheet.Row {
	out := []appsheet.Row{}

	for _, row := range rows {
		if fieldString(row, field) == value {
			out = append(out, row)
		}
	}

	return out
}

func filterIn(rows []appsheet.Row, field string, values []string) []appsheet.Row {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}

	out := []appsheet.Row{}

	for _, row := range rows {
		if _, ok := allowed[fieldString(row, field)]; ok {
			out = append(out, row)
		}
	}

	return out
}

func fieldString(row appsheet.Row, field string) string {
	value, ok := row[field]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
