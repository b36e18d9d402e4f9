// Package journal persists an append-only record of every mutation the
// source provider performs: writes, edits, rollbacks, undos. The journal is
// diagnostic; it is never consulted to make decisions.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"codeatlas/internal/logging"
)

// Outcome classifies how a journaled operation ended.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeFailed     Outcome = "failed"
)

// Entry is one journaled mutation.
type Entry struct {
	ID      string
	At      time.Time
	Unit    string // dotted module address
	Action  string // write, edit, undo
	Outcome Outcome
	Detail  string
}

// Journal writes entries to a sqlite database.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS edits (
	id      TEXT PRIMARY KEY,
	at      INTEGER NOT NULL,
	unit    TEXT NOT NULL,
	action  TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS edits_unit ON edits(unit, at);
`

// Open creates or opens the journal database at path, creating parent
// directories as needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends an entry, assigning it a fresh transaction id. A nil
// Journal is a no-op so callers can run without persistence. Journal
// failures are logged, never propagated: an audit miss must not fail the
// edit it describes.
func (j *Journal) Record(ctx context.Context, unit, action string, outcome Outcome, detail string) string {
	id := uuid.NewString()
	if j == nil || j.db == nil {
		return id
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO edits (id, at, unit, action, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UnixMilli(), unit, action, string(outcome), detail)
	if err != nil {
		logging.JournalWarn("record failed for %s %s: %v", action, unit, err)
		return id
	}
	logging.JournalDebug("recorded %s %s outcome=%s txn=%s", action, unit, outcome, id)
	return id
}

// Recent returns the latest n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, unit, action, outcome, detail FROM edits ORDER BY at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at int64
		var outcome string
		if err := rows.Scan(&e.ID, &at, &e.Unit, &e.Action, &outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.At = time.UnixMilli(at)
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
