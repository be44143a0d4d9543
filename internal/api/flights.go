package api

import (
	"net/http"

	"github.com/seantiz/flysearch/internal/engine"
)

// pidQuery is the query of the search endpoints.
type pidQuery struct {
	Pid string `query:"pid" validate:"omitempty,max=128,printascii"`
}

// handleGetFlights runs a synchronous, cached search. The request holds
// open until the provider finishes.
func (s *Server) handleGetFlights(w http.ResponseWriter, r *http.Request) {
	var q pidQuery
	if err := bindQuery(r.URL.Query(), &q); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err), errTypeValidation)
		return
	}

	resp, cached, err := s.flights.GetFlights(r.Context(), q.Pid)
	if err != nil {
		detail := engine.Classify(err)
		s.logger.Error("get flights", "pid", q.Pid, "error_type", detail.Type, "error", err)
		s.writeError(w, http.StatusInternalServerError, detail.Message, detail.Type)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	s.writeJSON(w, http.StatusOK, resp)
}
