package mock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsheet "github.com/shibukawa/appsheet"
)

func taskConnection(opts ...Option) *Connection {
	def := appsheet.ConnectionDefinition{
		AppID:                "app-1",
		ApplicationAccessKey: "key",
		Tables: map[string]appsheet.TableDefinition{
			"tasks": {
				TableName: "Tasks",
				KeyField:  "task_id",
				Fields: map[string]appsheet.FieldDefinition{
					"task_id": {Type: appsheet.FieldTypeText},
					"title":   {Type: appsheet.FieldTypeText, Required: true},
					"status":  {Type: appsheet.FieldTypeEnum, AllowedValues: []string{"Open", "Done"}},
				},
			},
		},
	}

	return NewConnection(def, opts...)
}

func mustTable(t *testing.T, conn *Connection) appsheet.TableAPI {
	t.Helper()

	table, err := conn.Table("tasks")
	require.NoError(t, err)

	return table
}

func TestAddStampsAuditFields(t *testing.T) {
	conn := taskConnection(WithRunAsUserEmail("robot@example.com"))
	table := mustTable(t, conn)

	row, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "X"})
	require.NoError(t, err)

	assert.Equal(t, "robot@example.com", row["created_by"])

	stamp, ok := row["created_at"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)

	// Stored copy matches and is not aliased to the returned row.
	row["title"] = "tampered"

	stored, ok := conn.Store().Get("Tasks", "1")
	require.True(t, ok)
	assert.Equal(t, "X", stored["title"])
}

func TestAddGeneratesUUIDKeyWhenAbsent(t *testing.T) {
	table := mustTable(t, taskConnection())

	row, err := table.AddOne(context.Background(), appsheet.Row{"title": "untitled"})
	require.NoError(t, err)

	key, ok := row["task_id"].(string)
	require.True(t, ok)

	_, err = uuid.Parse(key)
	assert.NoError(t, err)
}

func TestAddDuplicateKeyFails(t *testing.T) {
	table := mustTable(t, taskConnection())

	_, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "first"})
	require.NoError(t, err)

	_, err = table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrDuplicateKey)
}

func TestPerCallIdentityBeatsConnectionDefault(t *testing.T) {
	table := mustTable(t, taskConnection(WithRunAsUserEmail("conn@example.com")))

	rows, err := table.Add(context.Background(),
		[]appsheet.Row{{"task_id": "1", "title": "X"}},
		&appsheet.Properties{RunAsUserEmail: "caller@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "caller@example.com", rows[0]["created_by"])
}

func TestPlaceholderIdentityFallback(t *testing.T) {
	table := mustTable(t, taskConnection())

	row, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "X"})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderIdentity, row["created_by"])
}

func TestEditMergesAndStamps(t *testing.T) {
	table := mustTable(t, taskConnection())

	_, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "X", "status": "Open"})
	require.NoError(t, err)

	updated, err := table.UpdateOne(context.Background(), appsheet.Row{"task_id": "1", "status": "Done"})
	require.NoError(t, err)

	assert.Equal(t, "X", updated["title"])
	assert.Equal(t, "Done", updated["status"])
	assert.Equal(t, PlaceholderIdentity, updated["modified_by"])
	assert.NotNil(t, updated["modified_at"])
}

func TestEditMissingRowIsNotFound(t *testing.T) {
	table := mustTable(t, taskConnection())

	_, err := table.UpdateOne(context.Background(), appsheet.Row{"task_id": "ghost", "status": "Done"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrNotFound)
}

func TestEditValidatesPresentValues(t *testing.T) {
	table := mustTable(t, taskConnection())

	_, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "X"})
	require.NoError(t, err)

	// Partial update without required title is fine; bad enum is not.
	_, err = table.UpdateOne(context.Background(), appsheet.Row{"task_id": "1", "status": "Paused"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrValidation)
}

func TestDeleteReportsRemovedRows(t *testing.T) {
	table := mustTable(t, taskConnection())

	_, err := table.AddOne(context.Background(), appsheet.Row{"task_id": "1", "title": "X"})
	require.NoError(t, err)

	ok, err := table.DeleteOne(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Deleting again is a successful no-op reporting zero rows affected.
	ok, err = table.DeleteOne(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindWithSelector(t *testing.T) {
	table := mustTable(t, taskConnection())

	for _, row := range []appsheet.Row{
		{"task_id": "1", "title": "a", "status": "Open"},
		{"task_id": "2", "title": "b", "status": "Done"},
		{"task_id": "3", "title": "c", "status": "Open"},
	} {
		_, err := table.AddOne(context.Background(), row)
		require.NoError(t, err)
	}

	rows, err := table.Find(context.Background(), `[status] = "Open"`, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = table.Find(context.Background(), `[status] IN ("Open","Done")`, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSeedFailureSurfacesOnFirstUse(t *testing.T) {
	provider := StaticData{
		"Tasks": {
			Rows: []appsheet.Row{
				{"task_id": "1", "title": "first"},
				{"task_id": "1", "title": "dup"},
				{"task_id": "2", "title": "second"},
			},
		},
	}

	conn := taskConnection(WithDataProvider(provider))

	_, err := conn.Table("tasks")
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrDuplicateKey)

	err = conn.HealthCheck(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, appsheet.ErrDuplicateKey)
}

func TestSeedUsesDeclaredKeyField(t *testing.T) {
	// KeyField left unset: the declared task_id must win over key
	// auto-detection, which would pick account_id (first _id suffix).
	provider := StaticData{
		"Tasks": {
			Rows: []appsheet.Row{
				{"task_id": "7", "account_id": "a-9", "title": "seeded"},
			},
		},
	}

	conn := taskConnection(WithDataProvider(provider))
	table := mustTable(t, conn)

	row, err := table.FindOne(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "seeded", row["title"])

	_, ok := conn.Store().Get("Tasks", "a-9")
	assert.False(t, ok)
}

func TestDataProviderSeedsStore(t *testing.T) {
	provider := StaticData{
		"Tasks": {
			Rows: []appsheet.Row{
				{"task_id": "1", "title": "seeded"},
			},
			KeyField: "task_id",
		},
	}

	table := mustTable(t, taskConnection(WithDataProvider(provider)))

	row, err := table.FindOne(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "seeded", row["title"])
}
