package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recipeshorts/internal/logger"
)

var (
	// ErrQueueFull is returned by Submit when the buffer is at capacity.
	ErrQueueFull = errors.New("worker queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker stopped")
	// ErrNoHandler is returned by Submit for an unregistered task type.
	ErrNoHandler = errors.New("no handler registered")
)

// Task is one unit of background work.
type Task struct {
	Type string
	ID   string
	URL  string
}

// TaskHandler is a function that processes a task
type TaskHandler func(ctx context.Context, task Task) error

// Worker processes tasks from a bounded in-memory queue with a fixed
// number of goroutines.
type Worker struct {
	handlers    map[string]TaskHandler
	queue       chan Task
	concurrency int
	log         *logger.Logger

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker creates a new worker
func NewWorker(concurrency, queueSize int, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		handlers:    make(map[string]TaskHandler),
		queue:       make(chan Task, max(1, queueSize)),
		concurrency: max(1, concurrency),
		log:         log,
	}
}

// RegisterHandler registers a handler for a task type
func (w *Worker) RegisterHandler(taskType string, handler TaskHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = handler
}

// Start launches the worker goroutines. Tasks run with a context derived
// from ctx that is cancelled by Stop.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	for i := range w.concurrency {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	w.log.Info("worker started", "concurrency", w.concurrency, "queue_size", cap(w.queue))
}

// Stop stops accepting tasks, cancels running ones and waits for the goroutines.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// Submit enqueues a task without blocking.
func (w *Worker) Submit(task Task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	if _, ok := w.handlers[task.Type]; !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, task.Type)
	}
	select {
	case w.queue <- task:
		w.log.Debug("task submitted", "task_id", task.ID, "type", task.Type)
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run(ctx context.Context, n int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-w.queue:
			if !ok {
				return
			}
			w.process(ctx, n, task)
		}
	}
}

func (w *Worker) process(ctx context.Context, n int, task Task) {
	w.mu.RLock()
	handler := w.handlers[task.Type]
	w.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("task panicked", "task_id", task.ID, "type", task.Type, "panic", r)
		}
	}()

	w.log.Info("processing task", "worker", n, "task_id", task.ID, "type", task.Type)
	if err := handler(ctx, task); err != nil {
		w.log.Warn("task failed", "task_id", task.ID, "type", task.Type, "error", err)
		return
	}
	w.log.Info("task completed", "task_id", task.ID, "type", task.Type)
}
