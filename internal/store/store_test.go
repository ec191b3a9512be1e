package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"conversations", "turns", "email_tags"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Conversation Store tests ---

func TestConversationStore_Ensure_GeneratesID(t *testing.T) {
	cs := NewConversationStore(testDB(t))

	id, err := cs.Ensure("", "kenneth")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestConversationStore_Ensure_Idempotent(t *testing.T) {
	cs := NewConversationStore(testDB(t))

	id, err := cs.Ensure("sess-1", "kenneth")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	// Second Ensure with the same ID does not error or duplicate
	id, err = cs.Ensure("sess-1", "kenneth")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	convs, err := cs.List()
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestConversationStore_AppendAndHistory(t *testing.T) {
	cs := NewConversationStore(testDB(t))

	_, err := cs.Ensure("sess-1", "")
	require.NoError(t, err)

	require.NoError(t, cs.AppendTurn("sess-1", llm.UserText("what's on my calendar?")))
	require.NoError(t, cs.AppendTurn("sess-1", llm.Message{
		Role: llm.RoleAssistant,
		Blocks: []llm.ContentBlock{
			llm.TextBlock("Let me check."),
			llm.ToolUseBlock("tu_1", "list_events", []byte(`{"maxResults":5}`)),
		},
	}))

	history, err := cs.History("sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "what's on my calendar?", history[0].Blocks[0].Text)

	require.Len(t, history[1].Blocks, 2)
	assert.Equal(t, llm.BlockToolUse, history[1].Blocks[1].Type)
	assert.Equal(t, "list_events", history[1].Blocks[1].Name)
	assert.JSONEq(t, `{"maxResults":5}`, string(history[1].Blocks[1].Input))
}

func TestConversationStore_History_Empty(t *testing.T) {
	cs := NewConversationStore(testDB(t))

	history, err := cs.History("no-such-session")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestConversationStore_Delete(t *testing.T) {
	cs := NewConversationStore(testDB(t))

	_, err := cs.Ensure("sess-1", "")
	require.NoError(t, err)
	require.NoError(t, cs.AppendTurn("sess-1", llm.UserText("hello")))

	require.NoError(t, cs.Delete("sess-1"))

	// Turns go with the conversation
	history, err := cs.History("sess-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, cs.Delete("sess-1"), sql.ErrNoRows)
}

// --- Tag Store tests ---

func TestTagStore_AddAndList(t *testing.T) {
	ts := NewTagStore(testDB(t))

	require.NoError(t, ts.AddTag("msg-1", "urgent"))
	require.NoError(t, ts.AddTag("msg-1", "billing"))
	require.NoError(t, ts.AddTag("msg-2", "urgent"))

	tags, err := ts.Tags("msg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "urgent"}, tags)
}

func TestTagStore_AddDuplicate(t *testing.T) {
	ts := NewTagStore(testDB(t))

	require.NoError(t, ts.AddTag("msg-1", "urgent"))
	require.NoError(t, ts.AddTag("msg-1", "urgent"))

	tags, err := ts.Tags("msg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, tags)
}

func TestTagStore_Remove(t *testing.T) {
	ts := NewTagStore(testDB(t))

	require.NoError(t, ts.AddTag("msg-1", "urgent"))
	require.NoError(t, ts.RemoveTag("msg-1", "urgent"))
	require.NoError(t, ts.RemoveTag("msg-1", "absent"))

	tags, err := ts.Tags("msg-1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}
