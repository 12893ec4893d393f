package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// DefaultListLimit bounds ListRuns when no positive limit is given.
const DefaultListLimit = 20

// BeginRun inserts a new run and returns its id.
func (db *DB) BeginRun(root, mode string, started time.Time) (int64, error) {
	res, err := db.conn.Exec(`INSERT INTO runs (root, mode, started_at) VALUES (?, ?, ?)`,
		root, mode, started.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: begin run: %w", err)
	}
	return res.LastInsertId()
}

// RecordOutcome appends a document outcome to a run.
func (db *DB) RecordOutcome(runID int64, o models.Outcome) error {
	_, err := db.conn.Exec(`
		INSERT INTO run_documents (run_id, path, status, doc_type, version, checksum_before, checksum_after, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, o.Path, string(o.Status), string(o.Metadata.Type), o.Metadata.Version,
		o.ChecksumBefore, o.ChecksumAfter, o.Error)
	if err != nil {
		return fmt.Errorf("history: record outcome: %w", err)
	}
	return nil
}

// FinishRun stores the final summary of a run.
func (db *DB) FinishRun(runID int64, finished time.Time, s models.Summary) error {
	res, err := db.conn.Exec(`
		UPDATE runs SET
			finished_at = ?,
			processed   = ?,
			updated     = ?,
			unchanged   = ?,
			skipped     = ?,
			failed      = ?,
			dry_run     = ?
		WHERE id = ?
	`, finished.UTC(), s.Processed, s.Updated, s.Unchanged, s.Skipped, s.Failed, s.DryRun, runID)
	if err != nil {
		return fmt.Errorf("history: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history: finish run %d: %w", runID, apperr.ErrNotFound)
	}
	return nil
}

const runColumns = `id, root, mode, started_at, finished_at, processed, updated, unchanged, skipped, failed, dry_run`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.Run, error) {
	var (
		r        models.Run
		finished sql.NullTime
	)
	err := s.Scan(&r.ID, &r.Root, &r.Mode, &r.StartedAt, &finished,
		&r.Summary.Processed, &r.Summary.Updated, &r.Summary.Unchanged,
		&r.Summary.Skipped, &r.Summary.Failed, &r.Summary.DryRun)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	out := []models.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns a run and its document outcomes in processing order.
func (db *DB) GetRun(id int64) (*models.Run, []models.Outcome, error) {
	r, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("history: run %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("history: get run: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, status, doc_type, version, checksum_before, checksum_after, error
		FROM run_documents WHERE run_id = ? ORDER BY rowid
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("history: run documents: %w", err)
	}
	defer rows.Close()

	outcomes := []models.Outcome{}
	for rows.Next() {
		var (
			o       models.Outcome
			status  string
			docType string
		)
		if err := rows.Scan(&o.Path, &status, &docType, &o.Metadata.Version,
			&o.ChecksumBefore, &o.ChecksumAfter, &o.Error); err != nil {
			return nil, nil, fmt.Errorf("history: scan document: %w", err)
		}
		o.Status = models.Status(status)
		o.Metadata.Type = models.DocType(docType)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &r, outcomes, nil
}
