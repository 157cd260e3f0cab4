package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// SQLiteStore implements Store on a SQLite database. Daily reset marks
// rows archived instead of moving files, so history stays queryable.
type SQLiteStore struct {
	db  *sql.DB
	log *logging.Logger
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Use ":memory:" for tests.
func OpenSQLite(path string, log *logging.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, log: log.Sub("session.sqlite"), now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.log.Info().Str("path", path).Msg("session database opened")
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(key domain.SessionKey, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("append", key, err)
	}
	defer tx.Rollback()

	nowStr := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`
		INSERT INTO sessions (key, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at
	`, key.String(), nowStr, nowStr); err != nil {
		return storeErr("append", key, err)
	}

	var seq int64
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_key = ? AND archived_at IS NULL",
		key.String(),
	).Scan(&seq); err != nil {
		return storeErr("append", key, err)
	}

	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return storeErr("append", key, err)
		}
		seq++
		if _, err := tx.Exec(
			"INSERT INTO messages (session_key, seq, payload) VALUES (?, ?, ?)",
			key.String(), seq, string(payload),
		); err != nil {
			return storeErr("append", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("append", key, err)
	}
	return nil
}

func (s *SQLiteStore) Read(key domain.SessionKey) ([]domain.Message, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM messages WHERE session_key = ? AND archived_at IS NULL ORDER BY seq",
		key.String(),
	)
	if err != nil {
		return nil, storeErr("read", key, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, storeErr("read", key, err)
		}
		var m domain.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("skipping corrupt session row")
			continue
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("read", key, err)
	}
	return msgs, nil
}

func (s *SQLiteStore) ReplacePrefix(key domain.SessionKey, count int, summary domain.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("replace", key, err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE session_key = ? AND archived_at IS NULL",
		key.String(),
	).Scan(&total); err != nil {
		return storeErr("replace", key, err)
	}
	if count <= 0 || count > total {
		return storeErr("replace", key, fmt.Errorf("prefix count %d out of range (log has %d)", count, total))
	}

	// Boundary is the seq of the count-th live message; everything up to
	// it gets replaced by the summary at that same seq.
	var boundary int64
	if err := tx.QueryRow(`
		SELECT seq FROM messages
		WHERE session_key = ? AND archived_at IS NULL
		ORDER BY seq LIMIT 1 OFFSET ?
	`, key.String(), count-1).Scan(&boundary); err != nil {
		return storeErr("replace", key, err)
	}

	if _, err := tx.Exec(
		"DELETE FROM messages WHERE session_key = ? AND archived_at IS NULL AND seq <= ?",
		key.String(), boundary,
	); err != nil {
		return storeErr("replace", key, err)
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return storeErr("replace", key, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO messages (session_key, seq, payload) VALUES (?, ?, ?)",
		key.String(), boundary, string(payload),
	); err != nil {
		return storeErr("replace", key, err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("replace", key, err)
	}
	s.log.Debug().Str("key", key.String()).Int("replaced", count).Msg("compacted session log")
	return nil
}

func (s *SQLiteStore) ResetIfDue(key domain.SessionKey, policy ResetPolicy) (bool, error) {
	if policy != ResetDaily {
		return false, nil
	}

	var updatedAt string
	err := s.db.QueryRow(
		"SELECT updated_at FROM sessions WHERE key = ?", key.String(),
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr("reset", key, err)
	}

	last, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return false, storeErr("reset", key, err)
	}
	now := s.now()
	if sameDay(last.Local(), now) {
		return false, nil
	}

	nowStr := now.UTC().Format(time.RFC3339Nano)
	tx, err := s.db.Begin()
	if err != nil {
		return false, storeErr("reset", key, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE messages SET archived_at = ? WHERE session_key = ? AND archived_at IS NULL",
		nowStr, key.String(),
	)
	if err != nil {
		return false, storeErr("reset", key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, tx.Commit()
	}
	if _, err := tx.Exec(
		"UPDATE sessions SET updated_at = ? WHERE key = ?", nowStr, key.String(),
	); err != nil {
		return false, storeErr("reset", key, err)
	}
	if err := tx.Commit(); err != nil {
		return false, storeErr("reset", key, err)
	}

	s.log.Info().Str("key", key.String()).Int64("archived", n).Msg("session log reset")
	return true, nil
}

func (s *SQLiteStore) Keys() ([]domain.SessionKey, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT session_key FROM messages
		WHERE archived_at IS NULL ORDER BY session_key
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var keys []domain.SessionKey
	for rows.Next() {
		var keyStr string
		if err := rows.Scan(&keyStr); err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		key, err := domain.ParseSessionKey(keyStr)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
