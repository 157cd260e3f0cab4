package session

// migration is a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions and messages",
		SQL: `
			CREATE TABLE sessions (
				key         TEXT PRIMARY KEY,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			);

			CREATE TABLE messages (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				session_key  TEXT NOT NULL REFERENCES sessions(key) ON DELETE CASCADE,
				seq          INTEGER NOT NULL,
				payload      TEXT NOT NULL,
				archived_at  TEXT
			);

			CREATE INDEX idx_messages_session ON messages (session_key, seq);
		`,
	},
}
