package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/flysearch/internal/engine"
	"github.com/seantiz/flysearch/internal/model"
)

// handleTaskEvents streams a task's status changes as Server-Sent Events.
// Each change is a "status" event carrying the task snapshot; the stream
// ends with a "done" event once the task is terminal.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Subscribe before reading the record so a transition between the two
	// is either in the snapshot or on the channel.
	ch, unsub := s.engine.Broker().Subscribe(id)
	defer unsub()

	task, err := s.engine.GetResult(id)
	if errors.Is(err, engine.ErrTaskNotFound) {
		s.writeError(w, http.StatusNotFound, "task not found", errTypeNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get task for events", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get task", errTypeInternal)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("set write deadline for SSE", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	send := func(eventType, data string) bool {
		if err := writeSSEEvent(w, eventType, data); err != nil {
			return false
		}
		if canFlush {
			flusher.Flush()
		}
		return true
	}

	if !send("status", s.encodeTask(task)) {
		return
	}
	if model.IsTerminal(task.Status) {
		send("done", "stream complete")
		return
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				send("done", "stream complete")
				return
			}
			if !send("status", s.encodeTask(snap)) {
				return // Write failed (e.g. client gone).
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

func (s *Server) encodeTask(task model.Task) string {
	data, err := json.Marshal(task)
	if err != nil {
		s.logger.Error("encode task event", "task_id", task.ID, "error", err)
		return "{}"
	}
	return string(data)
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
// data must not contain newlines.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
