package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/seantiz/flysearch/internal/model"

	_ "modernc.org/sqlite"
)

const createSearchRunsTable = `
CREATE TABLE IF NOT EXISTS search_runs (
    id          TEXT PRIMARY KEY,
    pid         TEXT NOT NULL,
    task_id     TEXT NOT NULL DEFAULT '',
    mode        TEXT NOT NULL,
    status      TEXT NOT NULL,
    success     INTEGER NOT NULL DEFAULT 0,
    offer_count INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL
)`

const createSearchRunsIndex = `
CREATE INDEX IF NOT EXISTS idx_search_runs_created_at ON search_runs (created_at)`

const selectSearchRunColumns = `SELECT id, pid, task_id, mode, status, success,
	offer_count, error, duration_ms, created_at FROM search_runs`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createSearchRunsTable, createSearchRunsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate search_runs: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordSearchRun inserts a finished search run.
func (s *SQLiteStore) RecordSearchRun(ctx context.Context, r *model.SearchRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_runs (
			id, pid, task_id, mode, status, success,
			offer_count, error, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CorrelationID, r.TaskID, r.Mode, r.Status, r.Success,
		r.OfferCount, r.Error, r.DurationMS, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search run: %w", err)
	}
	return nil
}

// GetSearchRun retrieves a search run by ID.
func (s *SQLiteStore) GetSearchRun(ctx context.Context, id string) (*model.SearchRun, error) {
	r, err := scanSearchRun(s.db.QueryRowContext(ctx, selectSearchRunColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get search run: %w", err)
	}
	return r, nil
}

// ListSearchRuns returns a page of search runs ordered by created_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListSearchRuns(ctx context.Context, limit, offset int) ([]*model.SearchRun, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		selectSearchRunColumns+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list search runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.SearchRun
	for rows.Next() {
		r, err := scanSearchRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan search run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search runs: %w", err)
	}

	return runs, total, nil
}

// GetSearchStats aggregates the journal.
func (s *SQLiteStore) GetSearchStats(ctx context.Context) (*SearchStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &SearchStats{
		CountByStatus: make(map[string]int),
		CountByMode:   make(map[string]int),
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(duration_ms), 0)
		FROM search_runs`,
	).Scan(&stats.Total, &stats.Successful, &stats.AvgDurationMS); err != nil {
		return nil, fmt.Errorf("aggregate search runs: %w", err)
	}

	if err := countBy(ctx, tx, "status", stats.CountByStatus); err != nil {
		return nil, err
	}
	if err := countBy(ctx, tx, "mode", stats.CountByMode); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy fills into with row counts grouped by column. column must be a
// trusted identifier.
func countBy(ctx context.Context, tx *sql.Tx, column string, into map[string]int) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM search_runs GROUP BY "+column,
	)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearchRun(row rowScanner) (*model.SearchRun, error) {
	r := &model.SearchRun{}
	err := row.Scan(
		&r.ID, &r.CorrelationID, &r.TaskID, &r.Mode, &r.Status, &r.Success,
		&r.OfferCount, &r.Error, &r.DurationMS, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}
