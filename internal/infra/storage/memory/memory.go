package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// TaskStore is an in-memory storage.TaskStore for tests and storeless runs.
// A single mutex makes ClaimDue atomic with respect to concurrent pollers
// within the process.
type TaskStore struct {
	mu         sync.Mutex
	tasks      map[string]*domain.RetryTask
	pending    map[string]time.Time
	processing map[string]struct{}
	dead       []string
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:      make(map[string]*domain.RetryTask),
		pending:    make(map[string]time.Time),
		processing: make(map[string]struct{}),
	}
}

func (s *TaskStore) SaveTask(ctx context.Context, task *domain.RetryTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *task
	s.tasks[task.ID] = &saved
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.RetryTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrTaskNotFound
	}
	loaded := *task
	return &loaded, nil
}

func (s *TaskStore) AddPending(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = at
	return nil
}

func (s *TaskStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]string, 0)
	for id, at := range s.pending {
		if !at.After(now) {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return s.pending[due[i]].Before(s.pending[due[j]])
	})
	if len(due) > limit {
		due = due[:limit]
	}

	for _, id := range due {
		delete(s.pending, id)
		s.processing[id] = struct{}{}
	}
	return due, nil
}

func (s *TaskStore) ReleaseClaim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processing, id)
	return nil
}

func (s *TaskStore) PushDead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, id)
	return nil
}

func (s *TaskStore) RemoveDead(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.dead {
		if d == id {
			s.dead = append(s.dead[:i], s.dead[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *TaskStore) Stats(ctx context.Context) (storage.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.QueueStats{
		Pending:    len(s.pending),
		Processing: len(s.processing),
		DeadLetter: len(s.dead),
	}, nil
}
