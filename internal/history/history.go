// Package history keeps a sqlite journal of sync runs for reporting. It is
// write-mostly; nothing in the engine reads it back during a run.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/forksync/internal/reconcile"
)

// Run is one recorded sync run.
type Run struct {
	ID              int64
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Success         bool
	DryRun          bool
	MarkdownChanged bool
	UpdatedModules  []ModuleRecord
}

// ModuleRecord is the per-submodule slice of a run row.
type ModuleRecord struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Branch     string `json:"branch"`
	Upstream   string `json:"upstream,omitempty"`
	AheadCount int    `json:"ahead_count"`
	HeadMoved  bool   `json:"head_moved"`
}

// Store persists run history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the journal at dbPath. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		success INTEGER NOT NULL,
		dry_run INTEGER NOT NULL,
		markdown_changed INTEGER NOT NULL,
		updated_modules TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one run row.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	modules, err := json.Marshal(run.UpdatedModules)
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at, finished_at, success, dry_run, markdown_changed, updated_modules) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		boolInt(run.Success), boolInt(run.DryRun), boolInt(run.MarkdownChanged), modules,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, started_at, finished_at, success, dry_run, markdown_changed, updated_modules FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var success, dryRun, mdChanged int
		var modules []byte
		if err := rows.Scan(&r.ID, &r.RunID, &started, &finished, &success, &dryRun, &mdChanged, &modules); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		r.Success = success != 0
		r.DryRun = dryRun != 0
		r.MarkdownChanged = mdChanged != 0
		if len(modules) > 0 {
			if err := json.Unmarshal(modules, &r.UpdatedModules); err != nil {
				return nil, fmt.Errorf("unmarshal modules: %w", err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ModuleRecords converts reconciliation results into journal records.
func ModuleRecords(updated []reconcile.Result) []ModuleRecord {
	records := make([]ModuleRecord, 0, len(updated))
	for _, mod := range updated {
		records = append(records, ModuleRecord{
			Name:       mod.Name,
			Path:       mod.Path,
			Branch:     mod.WorkingBranch,
			Upstream:   mod.UpstreamURL,
			AheadCount: mod.AheadCount,
			HeadMoved:  mod.HadHeadChange,
		})
	}
	return records
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
