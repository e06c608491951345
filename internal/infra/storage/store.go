package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

var (
	// ErrTaskNotFound is returned when a task record doesn't exist
	ErrTaskNotFound = errors.New("task not found")
)

// QueueStats holds the population counts of each task set.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	DeadLetter int `json:"dead_letter"`
}

// TaskStore is the durable backend the retry queue schedules against.
// ClaimDue is the sole cross-worker synchronization point: it must move due
// ids from the pending index into the processing set in a single atomic
// operation so that no two pollers ever claim the same id.
type TaskStore interface {
	// SaveTask persists the full task record under its id
	SaveTask(ctx context.Context, task *domain.RetryTask) error

	// GetTask loads a task record by id
	GetTask(ctx context.Context, id string) (*domain.RetryTask, error)

	// AddPending inserts the id into the pending index keyed by its due time
	AddPending(ctx context.Context, id string, at time.Time) error

	// ClaimDue atomically pops up to limit ids with due time <= now from the
	// pending index and adds them to the processing set
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error)

	// ReleaseClaim removes the id from the processing set
	ReleaseClaim(ctx context.Context, id string) error

	// PushDead appends the id to the dead-letter list
	PushDead(ctx context.Context, id string) error

	// RemoveDead removes the id from the dead-letter list, reporting whether
	// it was present
	RemoveDead(ctx context.Context, id string) (bool, error)

	// Stats returns the pending/processing/dead-letter counts
	Stats(ctx context.Context) (QueueStats, error)
}
