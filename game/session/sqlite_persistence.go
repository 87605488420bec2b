package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// migration is one schema step, recorded by name in _migrations once applied.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "001_sessions",
		sql: `CREATE TABLE sessions (
			id               TEXT PRIMARY KEY,
			setup_name       TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL,
			last_accessed_at DATETIME NOT NULL,
			data             TEXT NOT NULL
		);`,
	},
	{
		name: "002_sessions_last_accessed_idx",
		sql:  `CREATE INDEX sessions_last_accessed_idx ON sessions(last_accessed_at);`,
	},
}

// SQLitePersistence implements SessionPersistence on a SQLite database. Each
// session is one row; the data column holds the same JSON document
// FilePersistence writes.
type SQLitePersistence struct {
	db *sql.DB
}

// NewSQLitePersistence opens (creating if needed) the database at path and
// applies pending migrations.
func NewSQLitePersistence(path string) (*SQLitePersistence, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLitePersistence{db: db}, nil
}

// Close releases the database handle.
func (sp *SQLitePersistence) Close() error {
	return sp.db.Close()
}

// Save upserts the session row
func (sp *SQLitePersistence) Save(session *Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	snap := session.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	_, err = sp.db.Exec(`
		INSERT INTO sessions (id, setup_name, created_at, last_accessed_at, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			setup_name = excluded.setup_name,
			last_accessed_at = excluded.last_accessed_at,
			data = excluded.data`,
		strings.ToLower(snap.ID), snap.SetupName, snap.CreatedAt.UTC(), snap.LastAccessedAt.UTC(), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
	}
	return nil
}

// Load retrieves a session row by ID
func (sp *SQLitePersistence) Load(id string) (*Session, error) {
	var raw string
	err := sp.db.QueryRow(`SELECT data FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return Restore(data)
}

// Delete removes a session row
func (sp *SQLitePersistence) Delete(id string) error {
	res, err := sp.db.Exec(`DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs, oldest first
func (sp *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := sp.db.Query(`SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (sp *SQLitePersistence) Exists(id string) bool {
	var one int
	err := sp.db.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&one)
	return err == nil
}

// openDB opens a SQLite file with a busy timeout and WAL journaling, creating
// its directory first.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies each migration not yet recorded in _migrations, each in its
// own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name = ?`, m.name).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}
