package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create conversations and turns",
		SQL: `
			CREATE TABLE conversations (
				id          TEXT PRIMARY KEY,
				user_name   TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE turns (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role        TEXT NOT NULL,
				blocks      TEXT NOT NULL,
				timestamp   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_turns_session ON turns (session_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "create email tags",
		SQL: `
			CREATE TABLE email_tags (
				email_id    TEXT NOT NULL,
				tag         TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (email_id, tag)
			);

			CREATE INDEX idx_email_tags_tag ON email_tags (tag);
		`,
	},
}
