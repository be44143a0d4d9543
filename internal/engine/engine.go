package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/flysearch/internal/cache"
	"github.com/seantiz/flysearch/internal/flight"
	"github.com/seantiz/flysearch/internal/model"
	"github.com/seantiz/flysearch/internal/search"
)

// Searcher executes one uncached search. *search.Service satisfies it.
type Searcher interface {
	Execute(ctx context.Context, run search.Run) (*flight.Response, error)
}

// Engine runs searches as background tasks.
type Engine struct {
	searcher Searcher
	tasks    *cache.TTL[string, model.Task]
	broker   *StatusBroker
	logger   *slog.Logger
	wg       sync.WaitGroup

	// ctx is cancelled by Shutdown and bounds every task's search.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates a task engine storing records in tasks.
func NewEngine(searcher Searcher, tasks *cache.TTL[string, model.Task], logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		searcher: searcher,
		tasks:    tasks,
		broker:   NewStatusBroker(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Broker returns the engine's status broker for SSE subscription.
func (e *Engine) Broker() *StatusBroker {
	return e.broker
}

// StartTask records a new task for pid and launches its search in a
// goroutine without waiting for it. The returned snapshot is already in the
// processing state. An empty pid is replaced with a generated one.
func (e *Engine) StartTask(ctx context.Context, pid string) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, err
	}
	if e.ctx.Err() != nil {
		return model.Task{}, ErrShuttingDown
	}
	if pid == "" {
		pid = model.NewCorrelationID()
	}

	task := model.Task{
		ID:            model.NewID(),
		CorrelationID: pid,
		Status:        model.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	e.tasks.Set(task.ID, task)
	tasksTotal.WithLabelValues(model.StatusPending).Inc()

	started, ok := e.transition(task.ID, model.StatusProcessing, nil)
	if !ok {
		return model.Task{}, fmt.Errorf("start task %s: record lost before dispatch", task.ID)
	}

	e.logger.Info("task started", "task_id", started.ID, "pid", pid)

	e.wg.Go(func() {
		e.execute(started.ID, pid)
	})

	return started, nil
}

// GetResult returns the current snapshot of a task.
func (e *Engine) GetResult(taskID string) (model.Task, error) {
	task, ok := e.tasks.Get(taskID)
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return task, nil
}

// Wait blocks until all in-flight task goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown refuses new tasks, cancels the searches of in-flight ones and
// waits for their records to settle or for ctx to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for tasks: %w", ctx.Err())
	}
}

// execute runs the task's search and records the terminal state.
func (e *Engine) execute(taskID, pid string) {
	start := time.Now()
	resp, err := e.searcher.Execute(e.ctx, search.Run{
		CorrelationID: pid,
		Mode:          model.ModeAsync,
		TaskID:        taskID,
	})
	now := time.Now().UTC()

	if err != nil {
		detail := Classify(err)
		e.logger.Error("task failed",
			"task_id", taskID,
			"pid", pid,
			"error_type", detail.Type,
			"error", err,
		)
		e.transition(taskID, model.StatusFailed, func(t *model.Task) {
			t.Error = &detail
			t.FinishedAt = &now
		})
		return
	}

	e.logger.Info("task completed",
		"task_id", taskID,
		"pid", pid,
		"success", resp.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	e.transition(taskID, model.StatusCompleted, func(t *model.Task) {
		t.Result = resp
		t.FinishedAt = &now
	})
}

// transition moves a task to status under the cache's lock, applying mutate
// to the record. Transitions the status lattice forbids are refused. The
// new snapshot is published to subscribers.
func (e *Engine) transition(taskID, status string, mutate func(*model.Task)) (model.Task, bool) {
	var next model.Task
	var from string
	found := false

	ok := e.tasks.Update(taskID, func(cur model.Task, present bool) (model.Task, bool) {
		found = present
		from = cur.Status
		if !present || !model.ValidTransition(cur.Status, status) {
			return cur, false
		}
		cur.Status = status
		if mutate != nil {
			mutate(&cur)
		}
		next = cur
		return cur, true
	})
	if !ok {
		if !found {
			e.logger.Warn("task record missing, dropping transition", "task_id", taskID, "to", status)
		} else {
			e.logger.Warn("refused task transition", "task_id", taskID, "from", from, "to", status)
		}
		return model.Task{}, false
	}

	tasksTotal.WithLabelValues(status).Inc()
	e.broker.Publish(taskID, next)
	if model.IsTerminal(status) {
		e.broker.Close(taskID)
	}
	return next, true
}
