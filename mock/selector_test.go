package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appsheet "github.com/shibukawa/appsheet"
)

func statusRows() []appsheet.Row {
	return []appsheet.Row{
		{"id": "1", "status": "Active"},
		{"id": "2", "status": "Inactive"},
		{"id": "3", "status": "Pending"},
	}
}

func TestSelectorEquality(t *testing.T) {
	out := filterRows(statusRows(), `[status] = "Active"`)
	assert.Len(t, out, 1)
	assert.Equal(t, "1", out[0]["id"])

	// Single quotes work too.
	out = filterRows(statusRows(), `[status] = 'Pending'`)
	assert.Len(t, out, 1)
	assert.Equal(t, "3", out[0]["id"])
}

func TestSelectorMembership(t *testing.T) {
	out := filterRows(statusRows(), `[status] IN ("Active","Pending")`)
	assert.Len(t, out, 2)

	// Case-insensitive keyword.
	out = filterRows(statusRows(), `[status] in ("Inactive")`)
	assert.Len(t, out, 1)
}

func TestSelectorNoMatchReturnsEmpty(t *testing.T) {
	out := filterRows(statusRows(), `[status] = "Archived"`)
	assert.Empty(t, out)
}

// Any selector syntax beyond equality and IN is accepted but ignored: the
// full row set comes back unfiltered. This mirrors the intentionally
// narrow emulation, not a bug.
func TestUnsupportedSelectorSyntaxReturnsAllRows(t *testing.T) {
	for _, selector := range []string{
		`AND([status] = "Active", [id] = "1")`,
		`Filter("tasks", true)`,
		`[status] > "A"`,
	} {
		out := filterRows(statusRows(), selector)
		assert.Len(t, out, 3, "selector %q", selector)
	}
}

func TestEmptySelectorReturnsAllRows(t *testing.T) {
	assert.Len(t, filterRows(statusRows(), ""), 3)
}
