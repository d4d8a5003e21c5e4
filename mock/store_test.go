package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsheet "github.com/shibukawa/appsheet"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")

	require.NoError(t, store.Insert("tasks", appsheet.Row{"id": "1", "name": "X"}))

	row, ok := store.Get("tasks", "1")
	require.True(t, ok)
	assert.Equal(t, "X", row["name"])

	// Mutating the returned copy must not affect the stored row.
	row["name"] = "tampered"

	again, ok := store.Get("tasks", "1")
	require.True(t, ok)
	assert.Equal(t, "X", again["name"])
}

func TestStoreInsertRejectsMissingKey(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")

	err := store.Insert("tasks", appsheet.Row{"name": "no key"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrMissingKeyValue)

	err = store.Insert("tasks", appsheet.Row{"id": "", "name": "empty key"})
	assert.ErrorIs(t, err, appsheet.ErrMissingKeyValue)
}

func TestStoreDuplicateKeyLeavesOriginalUnchanged(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")

	require.NoError(t, store.Insert("tasks", appsheet.Row{"id": "1", "name": "first"}))

	err := store.Insert("tasks", appsheet.Row{"id": "1", "name": "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrDuplicateKey)

	row, ok := store.Get("tasks", "1")
	require.True(t, ok)
	assert.Equal(t, "first", row["name"])
}

func TestStoreUpdateMergesPartialFields(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")
	require.NoError(t, store.Insert("tasks", appsheet.Row{"id": "1", "name": "X", "status": "Open"}))

	merged, ok := store.Update("tasks", "1", appsheet.Row{"status": "Done"})
	require.True(t, ok)
	assert.Equal(t, "X", merged["name"])
	assert.Equal(t, "Done", merged["status"])

	_, ok = store.Update("tasks", "missing", appsheet.Row{"status": "Done"})
	assert.False(t, ok)

	_, ok = store.Update("ghost_table", "1", appsheet.Row{"status": "Done"})
	assert.False(t, ok)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")
	require.NoError(t, store.Insert("tasks", appsheet.Row{"id": "1"}))

	assert.True(t, store.Delete("tasks", "1"))
	// Deleting a non-existent row reports zero rows affected, not an error.
	assert.False(t, store.Delete("tasks", "1"))
}

func TestStoreKeyFieldAutoDetection(t *testing.T) {
	t.Run("IdSuffix", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Seed("portfolio", []appsheet.Row{
			{"service_portfolio_id": "x", "service": "y"},
		}))
		assert.Equal(t, "service_portfolio_id", store.KeyField("portfolio"))
	})

	t.Run("DefaultsToIdAndFailsWithoutIt", func(t *testing.T) {
		store := NewStore()
		err := store.Seed("odd", []appsheet.Row{{"foo": "x"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, appsheet.ErrMissingKeyValue)
		assert.Equal(t, "id", store.KeyField("odd"))
	})
}

func TestStoreFindWhere(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")
	require.NoError(t, store.Seed("tasks", []appsheet.Row{
		{"id": "1", "status": "Active"},
		{"id": "2", "status": "Inactive"},
		{"id": "3", "status": "Active"},
	}))

	active := store.FindWhere("tasks", func(row appsheet.Row) bool {
		return row["status"] == "Active"
	})
	assert.Len(t, active, 2)
}

func TestStoreReadsOnUnknownTableMiss(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("ghost", "1")
	assert.False(t, ok)

	assert.Empty(t, store.All("ghost"))
	assert.Equal(t, "", store.KeyField("ghost"))

	_, ok = store.Update("ghost", "1", appsheet.Row{"x": "y"})
	assert.False(t, ok)

	assert.False(t, store.Delete("ghost", "1"))
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	store.DeclareTable("tasks", "id")
	require.NoError(t, store.Insert("tasks", appsheet.Row{"id": "1"}))

	store.Clear()

	assert.Empty(t, store.All("tasks"))
}
