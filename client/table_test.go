package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	appsheet "github.com/shibukawa/appsheet"
)

func taskDefinition() appsheet.TableDefinition {
	return appsheet.TableDefinition{
		TableName: "Tasks",
		KeyField:  "task_id",
		Fields: map[string]appsheet.FieldDefinition{
			"task_id": {Type: appsheet.FieldTypeText, Required: true},
			"title":   {Type: appsheet.FieldTypeText, Required: true},
			"status":  {Type: appsheet.FieldTypeEnum, AllowedValues: []string{"Open", "Done"}},
			"email":   {Type: appsheet.FieldTypeEmail},
		},
	}
}

func TestAddValidatesBeforeNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the network on local validation failure")
	}))
	defer server.Close()

	table := NewTable(newTestClient(server.URL), taskDefinition())

	// Missing required title.
	_, err := table.Add(context.Background(), []appsheet.Row{{"task_id": "1"}}, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, appsheet.ErrValidation))

	// Bad enum value.
	_, err = table.Add(context.Background(), []appsheet.Row{{"task_id": "1", "title": "x", "status": "Started"}}, nil)
	assert.Error(t, err)
}

func TestEditUsesUpdateModeValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Rows":[{"task_id":"1"}]}`))
	}))
	defer server.Close()

	table := NewTable(newTestClient(server.URL), taskDefinition())

	// Partial update without required fields is fine.
	rows, err := table.Edit(context.Background(), []appsheet.Row{{"task_id": "1", "status": "Done"}}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(rows))

	// A present malformed value still fails.
	_, err = table.Edit(context.Background(), []appsheet.Row{{"task_id": "1", "email": "nope"}}, nil)
	assert.Error(t, err)
}

func TestDeleteSendsOnlyKeyValues(t *testing.T) {
	var gotBody actionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.NoError(t, json.NewEncoder(w).Encode(actionResponse{Rows: gotBody.Rows}))
	}))
	defer server.Close()

	table := NewTable(newTestClient(server.URL), taskDefinition())

	_, err := table.Delete(context.Background(), []appsheet.Row{{"task_id": "1", "title": "noise"}}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(gotBody.Rows))
	assert.Equal(t, 1, len(gotBody.Rows[0]))
	assert.Equal(t, "1", gotBody.Rows[0]["task_id"].(string))

	// Missing key value fails locally.
	_, err = table.Delete(context.Background(), []appsheet.Row{{"title": "no key"}}, nil)
	assert.Error(t, err)
}

func TestFindOne(t *testing.T) {
	var gotSelector string

	empty := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body actionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotSelector = body.Properties.Selector

		if empty {
			w.Write([]byte(`{"Rows":[]}`))
			return
		}

		w.Write([]byte(`{"Rows":[{"task_id":"42","title":"hello"}]}`))
	}))
	defer server.Close()

	table := NewTable(newTestClient(server.URL), taskDefinition())

	row, err := table.FindOne(context.Background(), "42")
	assert.NoError(t, err)
	assert.Equal(t, `[task_id] = "42"`, gotSelector)
	assert.Equal(t, "hello", row["title"].(string))

	empty = true

	_, err = table.FindOne(context.Background(), "42")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, appsheet.ErrNoRows))
}

func TestConnectionTableLookup(t *testing.T) {
	def := appsheet.ConnectionDefinition{
		AppID:                "app-1",
		ApplicationAccessKey: "key",
		Tables:               map[string]appsheet.TableDefinition{"tasks": taskDefinition()},
	}

	conn := NewConnection(def, WithRetryDelay(time.Millisecond))

	assert.Equal(t, []string{"tasks"}, conn.Tables())

	_, err := conn.Table("tasks")
	assert.NoError(t, err)

	_, err = conn.Table("nope")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, appsheet.ErrUnknownTable))
}
