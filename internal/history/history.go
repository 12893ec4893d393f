// Package history provides an SQLite-backed audit log of normalization runs
// and their per-document outcomes.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	root        TEXT NOT NULL,
	mode        TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	processed   INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	unchanged   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	dry_run     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_documents (
	run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	path            TEXT NOT NULL,
	status          TEXT NOT NULL,
	doc_type        TEXT NOT NULL DEFAULT '',
	version         TEXT NOT NULL DEFAULT '',
	checksum_before TEXT NOT NULL DEFAULT '',
	checksum_after  TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_documents_run ON run_documents(run_id);
CREATE INDEX IF NOT EXISTS idx_run_documents_path ON run_documents(path);
`

// Store defines the run history operations used by the application.
type Store interface {
	BeginRun(root, mode string, started time.Time) (int64, error)
	RecordOutcome(runID int64, o models.Outcome) error
	FinishRun(runID int64, finished time.Time, s models.Summary) error
	ListRuns(limit int) ([]models.Run, error)
	GetRun(id int64) (*models.Run, []models.Outcome, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
