package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/infra/storage/memory"
)

func TestWorker_ProcessesOnInterval(t *testing.T) {
	store := memory.NewTaskStore()
	q := New(store, fastBackoff())

	var ran atomic.Int32
	q.RegisterHandler("send", func(ctx context.Context, payload json.RawMessage) error {
		ran.Add(1)
		return nil
	})

	id, _ := q.Enqueue(context.Background(), "send", nil, 3, 0)

	w := NewWorker(q, WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if ran.Load() != 1 {
		t.Errorf("expected task to run once, ran %d times", ran.Load())
	}

	task, _ := q.GetTask(context.Background(), id)
	if task.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
}

// brokenStore fails every claim, simulating an unreachable store.
type brokenStore struct {
	*memory.TaskStore
	claims atomic.Int32
}

func (s *brokenStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.claims.Add(1)
	return nil, errors.New("store unreachable")
}

func TestWorker_BacksOffOnStoreErrors(t *testing.T) {
	s := &brokenStore{TaskStore: memory.NewTaskStore()}
	q := New(s, fastBackoff())
	w := NewWorker(q, WorkerConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_ = w.Run(ctx)

	// With doubling (10, 20, 40, 80ms...) the loop polls a handful of
	// times in 150ms instead of ~15.
	claims := s.claims.Load()
	if claims == 0 {
		t.Fatal("worker never polled")
	}
	if claims > 6 {
		t.Errorf("expected backoff to slow polling, got %d claims", claims)
	}
}

var _ storage.TaskStore = (*brokenStore)(nil)
