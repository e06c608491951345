package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/metrics"
)

// Handler executes the business side of a task. It must be idempotent or
// tolerant of re-execution: at-least-once is the only delivery guarantee.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queue is a durable retry queue on top of a TaskStore. Tasks are executed
// by registered handlers with exponential backoff between attempts and are
// dead-lettered once their attempt budget is exhausted.
//
// ProcessPending is safe to run concurrently from multiple workers or
// processes sharing the same store; the store's atomic claim is the only
// cross-worker synchronization.
type Queue struct {
	store   storage.TaskStore
	backoff Backoff
	log     *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a retry queue over the given store.
func New(store storage.TaskStore, backoff Backoff) *Queue {
	return &Queue{
		store:    store,
		backoff:  backoff.withDefaults(),
		log:      slog.Default(),
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler associates a task type with a handler. Re-registration
// overwrites. Handlers must be registered before tasks of that type are
// processed.
func (q *Queue) RegisterHandler(taskType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = handler
	q.log.Info("Registered task handler", "task_type", taskType)
}

func (q *Queue) handler(taskType string) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[taskType]
	return h, ok
}

// Enqueue durably schedules a task and returns its id. Success means
// "scheduled", never "executed"; the task becomes eligible for claim once
// delay has elapsed.
func (q *Queue) Enqueue(
	ctx context.Context,
	taskType string,
	payload json.RawMessage,
	maxAttempts int,
	delay time.Duration,
) (string, error) {
	if maxAttempts < 1 {
		return "", fmt.Errorf("max attempts must be >= 1, got %d", maxAttempts)
	}

	now := time.Now().UTC()
	task := &domain.RetryTask{
		ID:          uuid.NewString(),
		Type:        taskType,
		Payload:     payload,
		Status:      domain.TaskStatusPending,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		NextRetryAt: now.Add(delay),
	}

	if err := q.store.SaveTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to persist task: %w", err)
	}
	if err := q.store.AddPending(ctx, task.ID, task.NextRetryAt); err != nil {
		return "", fmt.Errorf("failed to schedule task: %w", err)
	}

	metrics.TasksEnqueued.WithLabelValues(taskType).Inc()
	q.log.Info("Enqueued task", "task_id", task.ID, "task_type", taskType, "delay", delay)
	return task.ID, nil
}

// GetTask loads a task record by id.
func (q *Queue) GetTask(ctx context.Context, id string) (*domain.RetryTask, error) {
	return q.store.GetTask(ctx, id)
}

// ProcessPending claims up to batchSize due tasks and runs their handlers.
// Handler failures are converted into reschedule or dead-letter decisions
// and never returned to the caller. Store errors do propagate: the polling
// loop is expected to back itself off before retrying.
func (q *Queue) ProcessPending(ctx context.Context, batchSize int) (int, error) {
	ids, err := q.store.ClaimDue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due tasks: %w", err)
	}

	processed := 0
	for _, id := range ids {
		counted, err := q.processTask(ctx, id)
		if err != nil {
			return processed, err
		}
		if counted {
			processed++
		}
	}
	return processed, nil
}

// processTask runs a single claimed task. The returned error is a store
// error only; handler outcomes are absorbed into the task's state.
func (q *Queue) processTask(ctx context.Context, id string) (bool, error) {
	task, err := q.store.GetTask(ctx, id)
	if err == storage.ErrTaskNotFound {
		// Record expired while the id was still indexed
		q.log.Warn("Claimed task has no record", "task_id", id)
		return false, q.store.ReleaseClaim(ctx, id)
	}
	if err != nil {
		return false, err
	}

	handler, ok := q.handler(task.Type)
	if !ok {
		// Configuration error: retrying cannot change the outcome, so the
		// task stays claimed for manual inspection.
		q.log.Error("Unroutable task: no handler registered",
			"task_id", id, "task_type", task.Type)
		metrics.TasksUnroutable.WithLabelValues(task.Type).Inc()
		task.Status = domain.TaskStatusProcessing
		if err := q.store.SaveTask(ctx, task); err != nil {
			return false, err
		}
		return false, nil
	}

	task.Attempts++
	now := time.Now().UTC()

	start := time.Now()
	handlerErr := q.invoke(ctx, handler, task.Payload)
	metrics.HandlerDuration.WithLabelValues(task.Type).Observe(time.Since(start).Seconds())

	if handlerErr == nil {
		task.Status = domain.TaskStatusCompleted
		completedAt := time.Now().UTC()
		task.CompletedAt = &completedAt
		if err := q.store.SaveTask(ctx, task); err != nil {
			return false, err
		}
		if err := q.store.ReleaseClaim(ctx, id); err != nil {
			return false, err
		}

		metrics.TasksProcessed.WithLabelValues(task.Type, "completed").Inc()
		q.log.Info("Task completed", "task_id", id, "task_type", task.Type, "attempts", task.Attempts)
		return true, nil
	}

	task.LastError = handlerErr.Error()
	q.log.Warn("Task failed",
		"task_id", id,
		"task_type", task.Type,
		"attempt", task.Attempts,
		"max_attempts", task.MaxAttempts,
		"error", handlerErr,
	)

	if task.Attempts >= task.MaxAttempts {
		task.Status = domain.TaskStatusDead
		if err := q.store.SaveTask(ctx, task); err != nil {
			return false, err
		}
		if err := q.store.PushDead(ctx, id); err != nil {
			return false, err
		}
		if err := q.store.ReleaseClaim(ctx, id); err != nil {
			return false, err
		}

		metrics.TasksProcessed.WithLabelValues(task.Type, "dead").Inc()
		q.log.Error("Task moved to dead letter queue",
			"task_id", id, "task_type", task.Type, "attempts", task.Attempts)
		return true, nil
	}

	delay := q.backoff.Delay(task.Attempts)
	task.Status = domain.TaskStatusPending
	task.NextRetryAt = now.Add(delay)
	if err := q.store.SaveTask(ctx, task); err != nil {
		return false, err
	}
	if err := q.store.AddPending(ctx, id, task.NextRetryAt); err != nil {
		return false, err
	}
	if err := q.store.ReleaseClaim(ctx, id); err != nil {
		return false, err
	}

	metrics.TasksProcessed.WithLabelValues(task.Type, "retried").Inc()
	q.log.Info("Task scheduled for retry", "task_id", id, "delay", delay)
	return true, nil
}

// invoke shields the queue from handler panics; a panic counts as a
// failure like any returned error.
func (q *Queue) invoke(ctx context.Context, handler Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, payload)
}

// Stats returns the pending/processing/dead-letter counts.
func (q *Queue) Stats(ctx context.Context) (storage.QueueStats, error) {
	stats, err := q.store.Stats(ctx)
	if err != nil {
		return storage.QueueStats{}, err
	}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	metrics.QueueDepth.WithLabelValues("processing").Set(float64(stats.Processing))
	metrics.QueueDepth.WithLabelValues("dead_letter").Set(float64(stats.DeadLetter))
	return stats, nil
}

// RetryDeadLetter moves a dead task back to pending with a fresh attempt
// budget, reporting whether it applied. Only tasks currently in the
// dead-letter queue are eligible.
func (q *Queue) RetryDeadLetter(ctx context.Context, id string) (bool, error) {
	task, err := q.store.GetTask(ctx, id)
	if err == storage.ErrTaskNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if task.Status != domain.TaskStatusDead {
		return false, nil
	}

	if _, err := q.store.RemoveDead(ctx, id); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	task.Status = domain.TaskStatusPending
	task.Attempts = 0
	task.NextRetryAt = now
	if err := q.store.SaveTask(ctx, task); err != nil {
		return false, err
	}
	if err := q.store.AddPending(ctx, id, now); err != nil {
		return false, err
	}

	q.log.Info("Task moved from dead letter queue to pending", "task_id", id)
	return true, nil
}
