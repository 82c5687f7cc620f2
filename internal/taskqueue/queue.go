// Package taskqueue implements the in-process asynchronous execution
// substrate backing the import pipeline and the webhook dispatcher.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	obsmetrics "github.com/smallbiznis/catalogd/internal/observability/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull    = errors.New("task queue is full")
	ErrQueueClosed  = errors.New("task queue is closed")
	ErrUnknownKind  = errors.New("unknown task kind")
	ErrTaskNotFound = errors.New("task not found")
)

// Handler executes one task. The returned map becomes the task result
// visible to pollers; a non-nil error marks the task failed.
type Handler func(ctx context.Context, task *Task) (map[string]any, error)

// Task is one unit of asynchronous work.
type Task struct {
	ID      string
	Kind    string
	Payload json.RawMessage

	queue *Queue
}

// ReportProgress publishes progress meta for pollers of this task.
func (t *Task) ReportProgress(meta map[string]any) {
	if t == nil || t.queue == nil {
		return
	}
	t.queue.status.SetMeta(t.ID, meta)
}

// Queue is a bounded FIFO queue drained by a fixed worker pool.
type Queue struct {
	log     *zap.Logger
	status  StatusStore
	metrics *obsmetrics.Metrics
	workers int

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool

	tasks chan *Task
	wg    sync.WaitGroup
}

// Config sizes the queue and its worker pool.
type Config struct {
	Workers  int
	Capacity int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Capacity <= 0 {
		c.Capacity = 256
	}
	return c
}

// New builds a Queue. Start must be called before tasks execute.
func New(cfg Config, log *zap.Logger, status StatusStore, m *obsmetrics.Metrics) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		log:      log.Named("taskqueue"),
		status:   status,
		metrics:  m,
		workers:  cfg.Workers,
		handlers: make(map[string]Handler),
		tasks:    make(chan *Task, cfg.Capacity),
	}
}

// Register binds a handler to a task kind. Last registration wins.
func (q *Queue) Register(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// Enqueue submits a task and returns its handle. The payload is
// marshaled to JSON. Enqueue never blocks; a full queue is an error.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (string, error) {
	_ = ctx

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}

	task := &Task{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: raw,
		queue:   q,
	}

	// The lock is held across the closed-check and the send so Close
	// cannot close the channel between them.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return "", ErrQueueClosed
	}
	if _, known := q.handlers[kind]; !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	q.status.Set(task.ID, Status{State: StatePending})

	select {
	case q.tasks <- task:
	default:
		q.status.Set(task.ID, Status{State: StateFailed, Error: ErrQueueFull.Error()})
		return "", ErrQueueFull
	}

	q.metrics.SetTaskQueueDepth(len(q.tasks))
	return task.ID, nil
}

// QueryStatus returns the observable status of a task.
func (q *Queue) QueryStatus(id string) (Status, error) {
	st, ok := q.status.Get(id)
	if !ok {
		return Status{}, ErrTaskNotFound
	}
	return st, nil
}

// Start launches the configured number of workers. Workers drain
// until ctx is canceled and the queue is closed.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Close stops intake. Tasks already queued still run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
}

// Wait blocks until all workers have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(ctx, task)
			q.metrics.SetTaskQueueDepth(len(q.tasks))
		}
	}
}

func (q *Queue) run(ctx context.Context, task *Task) {
	q.mu.RLock()
	handler, ok := q.handlers[task.Kind]
	q.mu.RUnlock()

	log := q.log.With(
		zap.String("task_id", task.ID),
		zap.String("kind", task.Kind),
	)

	if !ok {
		q.status.Set(task.ID, Status{State: StateFailed, Error: ErrUnknownKind.Error()})
		log.Error("no handler for task kind")
		return
	}

	q.status.Set(task.ID, Status{State: StateRunning})

	result, err := func() (result map[string]any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panic: %v", r)
			}
		}()
		return handler(ctx, task)
	}()

	if err != nil {
		q.status.Set(task.ID, Status{State: StateFailed, Error: err.Error()})
		log.Error("task failed", zap.Error(err))
		return
	}

	q.status.Set(task.ID, Status{State: StateSucceeded, Result: result})
	log.Info("task succeeded")
}
