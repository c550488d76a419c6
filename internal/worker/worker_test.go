package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerProcessesTasks(t *testing.T) {
	w := NewWorker(2, 8, nil)
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 3)
	w.RegisterHandler("analyze", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen = append(seen, task.ID)
		mu.Unlock()
		done <- struct{}{}
		if task.ID == "b" {
			return errors.New("boom")
		}
		return nil
	})
	w.Start(context.Background())
	defer w.Stop()

	for _, id := range []string{"a", "b", "c"} {
		if err := w.Submit(Task{Type: "analyze", ID: id}); err != nil {
			t.Fatalf("Submit(%s): %v", id, err)
		}
	}
	for range 3 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("seen = %v", seen)
	}
}

func TestWorkerQueueFull(t *testing.T) {
	w := NewWorker(1, 1, nil)
	w.RegisterHandler("analyze", func(ctx context.Context, task Task) error { return nil })

	// not started: the buffer fills up
	if err := w.Submit(Task{Type: "analyze", ID: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Submit(Task{Type: "analyze", ID: "2"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestWorkerRejectsUnknownType(t *testing.T) {
	w := NewWorker(1, 1, nil)
	if err := w.Submit(Task{Type: "nope"}); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("err = %v", err)
	}
}

func TestWorkerStopCancelsAndRejects(t *testing.T) {
	w := NewWorker(1, 4, nil)
	started := make(chan struct{})
	cancelled := make(chan struct{})
	w.RegisterHandler("analyze", func(ctx context.Context, task Task) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	w.Start(context.Background())
	if err := w.Submit(Task{Type: "analyze", ID: "x"}); err != nil {
		t.Fatal(err)
	}
	<-started
	w.Stop()

	select {
	case <-cancelled:
	default:
		t.Error("running task was not cancelled")
	}
	if err := w.Submit(Task{Type: "analyze"}); !errors.Is(err, ErrStopped) {
		t.Errorf("err = %v, want ErrStopped", err)
	}
	w.Stop() // idempotent
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker(1, 4, nil)
	done := make(chan struct{})
	w.RegisterHandler("analyze", func(ctx context.Context, task Task) error {
		if task.ID == "panic" {
			panic("bad")
		}
		close(done)
		return nil
	})
	w.Start(context.Background())
	defer w.Stop()

	_ = w.Submit(Task{Type: "analyze", ID: "panic"})
	_ = w.Submit(Task{Type: "analyze", ID: "ok"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}
