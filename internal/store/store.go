package store

import (
	"context"
	"errors"

	"github.com/seantiz/flysearch/internal/model"
)

// ErrNotFound is returned when a search run is not found.
var ErrNotFound = errors.New("search run not found")

// SearchStats holds aggregate search statistics.
type SearchStats struct {
	Total         int            `json:"total"`
	Successful    int            `json:"successful"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByMode   map[string]int `json:"count_by_mode"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for the search journal.
type Store interface {
	RecordSearchRun(ctx context.Context, run *model.SearchRun) error
	GetSearchRun(ctx context.Context, id string) (*model.SearchRun, error)
	ListSearchRuns(ctx context.Context, limit, offset int) ([]*model.SearchRun, int, error)
	GetSearchStats(ctx context.Context) (*SearchStats, error)
	Close() error
}
