package api

import (
	"errors"
	"net/http"

	"github.com/seantiz/flysearch/internal/engine"
	"github.com/seantiz/flysearch/internal/model"
)

// taskQuery is the query of GET /get_result.
type taskQuery struct {
	TaskID string `query:"task_id" validate:"required,max=128,printascii"`
}

// taskStatusResponse is returned for tasks that have not finished.
type taskStatusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Pid    string `json:"pid,omitempty"`
}

func (s *Server) handleStartSearch(w http.ResponseWriter, r *http.Request) {
	var q pidQuery
	if err := bindQuery(r.URL.Query(), &q); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err), errTypeValidation)
		return
	}

	task, err := s.engine.StartTask(r.Context(), q.Pid)
	if errors.Is(err, engine.ErrShuttingDown) {
		s.writeError(w, http.StatusServiceUnavailable, err.Error(), errTypeUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("start search", "pid", q.Pid, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to start search", errTypeInternal)
		return
	}

	s.writeJSON(w, http.StatusAccepted, taskStatusResponse{
		TaskID: task.ID,
		Status: task.Status,
	})
}

// handleGetResult reports a task's progress: its status while in flight, the
// normalized response once completed, or a 500 carrying the recorded error.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	var q taskQuery
	if err := bindQuery(r.URL.Query(), &q); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err), errTypeValidation)
		return
	}

	task, err := s.engine.GetResult(q.TaskID)
	if errors.Is(err, engine.ErrTaskNotFound) {
		s.writeError(w, http.StatusNotFound, "task not found", errTypeNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get result", "task_id", q.TaskID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task", errTypeInternal)
		return
	}

	switch task.Status {
	case model.StatusCompleted:
		s.writeJSON(w, http.StatusOK, task.Result)
	case model.StatusFailed:
		body := errorResponse{Error: "task failed", Type: model.ErrorTypeInternal, TaskID: task.ID}
		if task.Error != nil {
			body.Error = task.Error.Message
			body.Type = task.Error.Type
		}
		s.writeJSON(w, http.StatusInternalServerError, body)
	default:
		s.writeJSON(w, http.StatusOK, taskStatusResponse{
			TaskID: task.ID,
			Status: task.Status,
			Pid:    task.CorrelationID,
		})
	}
}
