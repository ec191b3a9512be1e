package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
)

// Conversation is a persisted chat session.
type Conversation struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationStore persists conversation transcripts.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store using the given database.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Ensure creates the conversation row if it does not exist and returns its ID.
// Pass an empty ID to have one generated.
func (c *ConversationStore) Ensure(sessionID, userName string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	_, err := c.db.sql.Exec(`
		INSERT INTO conversations (id, user_name) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sessionID, userName)
	if err != nil {
		return "", fmt.Errorf("ensuring conversation: %w", err)
	}
	return sessionID, nil
}

// AppendTurn records one message of a conversation transcript.
func (c *ConversationStore) AppendTurn(sessionID string, msg llm.Message) error {
	blocks, err := json.Marshal(msg.Blocks)
	if err != nil {
		return fmt.Errorf("encoding blocks: %w", err)
	}

	tx, err := c.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin append turn: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO turns (session_id, role, blocks) VALUES (?, ?, ?)
	`, sessionID, msg.Role, string(blocks)); err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting turn: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE conversations SET updated_at = datetime('now') WHERE id = ?
	`, sessionID); err != nil {
		tx.Rollback()
		return fmt.Errorf("touching conversation: %w", err)
	}

	return tx.Commit()
}

// History returns the full transcript of a conversation in insertion order.
func (c *ConversationStore) History(sessionID string) ([]llm.Message, error) {
	rows, err := c.db.sql.Query(`
		SELECT role, blocks FROM turns WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var role, blocks string
		if err := rows.Scan(&role, &blocks); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		msg := llm.Message{Role: role}
		if err := json.Unmarshal([]byte(blocks), &msg.Blocks); err != nil {
			return nil, fmt.Errorf("decoding blocks: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// List returns all conversations, most recently updated first.
func (c *ConversationStore) List() ([]Conversation, error) {
	rows, err := c.db.sql.Query(`
		SELECT id, user_name, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		var created, updated string
		if err := rows.Scan(&conv.ID, &conv.UserName, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conv.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		conv.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updated)
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// Delete removes a conversation and its turns.
func (c *ConversationStore) Delete(sessionID string) error {
	res, err := c.db.sql.Exec("DELETE FROM conversations WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
