package api

import (
	"net/http"

	"github.com/seantiz/flysearch/internal/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// statsResponse is the JSON response for GET /stats.
type statsResponse struct {
	Total         int            `json:"total"`
	Successful    int            `json:"successful"`
	ByStatus      map[string]int `json:"by_status"`
	ByMode        map[string]int `json:"by_mode"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// listSearchesResponse wraps the paginated journal listing.
type listSearchesResponse struct {
	Searches []*model.SearchRun `json:"searches"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetSearchStats(r.Context())
	if err != nil {
		s.logger.Error("get search stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats", errTypeInternal)
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Total:         stats.Total,
		Successful:    stats.Successful,
		ByStatus:      stats.CountByStatus,
		ByMode:        stats.CountByMode,
		AvgDurationMS: stats.AvgDurationMS,
	})
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.store.ListSearchRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list search runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list searches", errTypeInternal)
		return
	}
	if runs == nil {
		runs = []*model.SearchRun{}
	}

	s.writeJSON(w, http.StatusOK, listSearchesResponse{
		Searches: runs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}
