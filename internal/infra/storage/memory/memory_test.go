package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

func TestTaskStore_SaveAndGet(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()

	task := &domain.RetryTask{
		ID:     "t1",
		Type:   "send",
		Status: domain.TaskStatusPending,
	}
	if err := s.SaveTask(ctx, task); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Type != "send" {
		t.Errorf("got type %q, want send", got.Type)
	}

	if _, err := s.GetTask(ctx, "missing"); err != storage.ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskStore_ClaimDueRespectsSchedule(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	now := time.Now()

	_ = s.AddPending(ctx, "due", now.Add(-time.Second))
	_ = s.AddPending(ctx, "future", now.Add(time.Hour))

	ids, err := s.ClaimDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "due" {
		t.Fatalf("expected only the due task, got %v", ids)
	}

	stats, _ := s.Stats(ctx)
	if stats.Pending != 1 || stats.Processing != 1 {
		t.Errorf("unexpected stats after claim: %+v", stats)
	}
}

func TestTaskStore_ClaimDueOrdersByDueTime(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	now := time.Now()

	_ = s.AddPending(ctx, "later", now.Add(-time.Second))
	_ = s.AddPending(ctx, "earlier", now.Add(-time.Minute))

	ids, _ := s.ClaimDue(ctx, now, 1)
	if len(ids) != 1 || ids[0] != "earlier" {
		t.Errorf("expected oldest due task first, got %v", ids)
	}
}

func TestTaskStore_NoDoubleClaim(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 50; i++ {
		_ = s.AddPending(ctx, fmt.Sprintf("task-%d", i), now.Add(-time.Second))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				ids, err := s.ClaimDue(ctx, now, 5)
				if err != nil || len(ids) == 0 {
					return
				}
				mu.Lock()
				for _, id := range ids {
					seen[id]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for id, n := range seen {
		if n > 1 {
			t.Errorf("task %s claimed %d times", id, n)
		}
	}
}

func TestTaskStore_DeadLetter(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()

	_ = s.PushDead(ctx, "t1")
	stats, _ := s.Stats(ctx)
	if stats.DeadLetter != 1 {
		t.Fatalf("expected 1 dead letter, got %d", stats.DeadLetter)
	}

	removed, _ := s.RemoveDead(ctx, "t1")
	if !removed {
		t.Error("expected removal of present id")
	}
	removed, _ = s.RemoveDead(ctx, "t1")
	if removed {
		t.Error("expected second removal to report absence")
	}
}
