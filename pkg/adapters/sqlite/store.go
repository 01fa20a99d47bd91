// Package sqlite stores session records in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/ratlab/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.TranscriptStore using SQLite.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode lets readers proceed while a submission is being saved.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite has a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		engine TEXT NOT NULL DEFAULT '',
		transcript_json TEXT NOT NULL,
		sealed TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return s.addColumn("sealed", "TEXT NOT NULL DEFAULT ''")
}

// addColumn upgrades databases created before a column existed.
func (s *Store) addColumn(name, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('sessions')`)
	if err != nil {
		return fmt.Errorf("read table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if col == name {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read table info: %w", err)
	}

	if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE sessions ADD COLUMN %s %s`, name, decl)); err != nil {
		return fmt.Errorf("add column %s: %w", name, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, sessionID string, record *domain.Record) error {
	if sessionID == "" {
		return domain.ErrEmptySessionID
	}
	transcript := record.Transcript
	if transcript == nil {
		transcript = domain.Transcript{}
	}
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	query := `
	INSERT INTO sessions (id, engine, transcript_json, sealed, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		engine = excluded.engine,
		transcript_json = excluded.transcript_json,
		sealed = excluded.sealed,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		sessionID, record.Engine, string(data), record.Sealed,
		record.CreatedAt.UnixMilli(), record.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Load reads the record of a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Record, error) {
	query := `
		SELECT id, engine, transcript_json, sealed, created_at, updated_at
		FROM sessions WHERE id = ?`

	var (
		record               domain.Record
		data                 string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&record.ID, &record.Engine, &data, &record.Sealed, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &record.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if record.Transcript == nil {
		record.Transcript = domain.Transcript{}
	}
	record.CreatedAt = time.UnixMilli(createdAt).UTC()
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &record, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns session IDs, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
