package store

import "fmt"

// TagStore persists user-defined tags on emails. It satisfies the
// tools.EmailTagger interface.
type TagStore struct {
	db *DB
}

// NewTagStore creates a tag store using the given database.
func NewTagStore(db *DB) *TagStore {
	return &TagStore{db: db}
}

// AddTag attaches a tag to an email. Adding the same tag twice is a no-op.
func (t *TagStore) AddTag(emailID, tag string) error {
	_, err := t.db.sql.Exec(`
		INSERT INTO email_tags (email_id, tag) VALUES (?, ?)
		ON CONFLICT(email_id, tag) DO NOTHING
	`, emailID, tag)
	if err != nil {
		return fmt.Errorf("adding tag: %w", err)
	}
	return nil
}

// RemoveTag detaches a tag from an email. Removing an absent tag is a no-op.
func (t *TagStore) RemoveTag(emailID, tag string) error {
	_, err := t.db.sql.Exec(`
		DELETE FROM email_tags WHERE email_id = ? AND tag = ?
	`, emailID, tag)
	if err != nil {
		return fmt.Errorf("removing tag: %w", err)
	}
	return nil
}

// Tags returns all tags attached to an email, sorted alphabetically.
func (t *TagStore) Tags(emailID string) ([]string, error) {
	rows, err := t.db.sql.Query(`
		SELECT tag FROM email_tags WHERE email_id = ? ORDER BY tag
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
