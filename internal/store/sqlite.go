package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"engagewatch/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// Open opens (or creates) the store at path. A fresh start is always
// valid: a corrupt or non-database file at path is discarded and
// recreated, and if even that fails the store degrades to an in-memory
// database so a run never dies on state load.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
	}

	s, err := open(path)
	if err == nil || path == ":memory:" {
		return s, err
	}

	// Corrupt state file; the seen-set is advisory, not sacred.
	_ = os.Remove(path)
	if s, retryErr := open(path); retryErr == nil {
		return s, nil
	}

	return open(":memory:")
}

// open opens a SQLite database at dbPath, enables WAL mode, and runs
// any pending schema migrations.
func open(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// LoadSeen reads every persisted notification id.
func (s *SQLiteStore) LoadSeen(
	ctx context.Context,
) (map[string]bool, error) {
	var ids []string
	err := s.db.SelectContext(
		ctx, &ids, "SELECT id FROM seen_notifications",
	)
	if err != nil {
		return nil, fmt.Errorf("loading seen ids: %w", err)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return seen, nil
}

// MarkSeen inserts the notifications' ids into the seen set,
// ignoring ids that are already present.
func (s *SQLiteStore) MarkSeen(
	ctx context.Context, notifications []model.Notification,
) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR IGNORE INTO seen_notifications (id, source, first_seen)
		VALUES (?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, n := range notifications {
		if _, err := stmt.ExecContext(ctx, n.ID, string(n.Source), now); err != nil {
			return fmt.Errorf("marking %s seen: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// RecordRun appends one run's outcome to the run history.
func (s *SQLiteStore) RecordRun(
	ctx context.Context, run RunSummary,
) error {
	const query = `
		INSERT INTO runs (
			id, source, started_at, total, fresh, skipped, rate_limited
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), string(run.Source), run.StartedAt.UTC(),
		run.Total, run.Fresh, run.Skipped, boolToInt(run.RateLimited),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// LastRun returns the most recent recorded run, or nil when the history
// is empty.
func (s *SQLiteStore) LastRun(
	ctx context.Context,
) (*RunSummary, error) {
	var row struct {
		Source      string    `db:"source"`
		StartedAt   time.Time `db:"started_at"`
		Total       int       `db:"total"`
		Fresh       int       `db:"fresh"`
		Skipped     int       `db:"skipped"`
		RateLimited int       `db:"rate_limited"`
	}

	err := s.db.GetContext(ctx, &row, `
		SELECT source, started_at, total, fresh, skipped, rate_limited
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	return &RunSummary{
		Source:      model.SourceType(row.Source),
		StartedAt:   row.StartedAt,
		Total:       row.Total,
		Fresh:       row.Fresh,
		Skipped:     row.Skipped,
		RateLimited: row.RateLimited != 0,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
