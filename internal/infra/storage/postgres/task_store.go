package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// TaskStore implements storage.TaskStore on a single transactional table.
// The pending index, processing set and dead-letter list are all carried by
// the status and next_retry_at columns, so SaveTask alone moves a task
// between populations and several set operations reduce to no-ops.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a PostgreSQL-backed task store.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

type taskRow struct {
	ID          string         `db:"id"`
	TaskType    string         `db:"task_type"`
	Payload     []byte         `db:"payload"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	CreatedAt   time.Time      `db:"created_at"`
	NextRetryAt time.Time      `db:"next_retry_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	LastError   sql.NullString `db:"last_error"`
}

func (r taskRow) toDomain() *domain.RetryTask {
	task := &domain.RetryTask{
		ID:          r.ID,
		Type:        r.TaskType,
		Payload:     json.RawMessage(r.Payload),
		Status:      domain.TaskStatus(r.Status),
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		CreatedAt:   r.CreatedAt,
		NextRetryAt: r.NextRetryAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		task.CompletedAt = &t
	}
	if r.LastError.Valid {
		task.LastError = r.LastError.String
	}
	return task
}

func (s *TaskStore) SaveTask(ctx context.Context, task *domain.RetryTask) error {
	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}
	var lastError sql.NullString
	if task.LastError != "" {
		lastError = sql.NullString{String: task.LastError, Valid: true}
	}
	// Send the payload as text so it casts to jsonb; bytea does not.
	var payload sql.NullString
	if len(task.Payload) > 0 {
		payload = sql.NullString{String: string(task.Payload), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retry_tasks
			(id, task_type, payload, status, attempts, max_attempts,
			 created_at, next_retry_at, completed_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status        = EXCLUDED.status,
			attempts      = EXCLUDED.attempts,
			next_retry_at = EXCLUDED.next_retry_at,
			completed_at  = EXCLUDED.completed_at,
			last_error    = EXCLUDED.last_error`,
		task.ID, task.Type, payload, string(task.Status),
		task.Attempts, task.MaxAttempts,
		task.CreatedAt, task.NextRetryAt, completedAt, lastError,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.RetryTask, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, task_type, payload, status, attempts, max_attempts,
		       created_at, next_retry_at, completed_at, last_error
		FROM retry_tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return row.toDomain(), nil
}

func (s *TaskStore) AddPending(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE retry_tasks SET status = $1, next_retry_at = $2 WHERE id = $3`,
		string(domain.TaskStatusPending), at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}

// ClaimDue flips due pending rows to processing in a single statement.
// SKIP LOCKED keeps concurrent pollers from ever selecting the same row.
func (s *TaskStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE retry_tasks SET status = $1
		WHERE id IN (
			SELECT id FROM retry_tasks
			WHERE status = $2 AND next_retry_at <= $3
			ORDER BY next_retry_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		string(domain.TaskStatusProcessing), string(domain.TaskStatusPending), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("claim scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReleaseClaim is a no-op: the claim is carried by the status column, which
// SaveTask has already moved to its terminal value by the time the queue
// releases the claim.
func (s *TaskStore) ReleaseClaim(ctx context.Context, id string) error {
	return nil
}

// PushDead is a no-op for the same reason: status = 'dead' is the
// dead-letter membership.
func (s *TaskStore) PushDead(ctx context.Context, id string) error {
	return nil
}

func (s *TaskStore) RemoveDead(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM retry_tasks WHERE id = $1 AND status = $2)`,
		id, string(domain.TaskStatusDead),
	)
	if err != nil {
		return false, fmt.Errorf("dead-letter lookup failed: %w", err)
	}
	return exists, nil
}

func (s *TaskStore) Stats(ctx context.Context) (storage.QueueStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM retry_tasks GROUP BY status`)
	if err != nil {
		return storage.QueueStats{}, fmt.Errorf("stats query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var stats storage.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return storage.QueueStats{}, fmt.Errorf("stats scan failed: %w", err)
		}
		switch domain.TaskStatus(status) {
		case domain.TaskStatusPending:
			stats.Pending = count
		case domain.TaskStatusProcessing:
			stats.Processing = count
		case domain.TaskStatusDead:
			stats.DeadLetter = count
		}
	}
	return stats, rows.Err()
}

// DeleteFinishedBefore removes completed and dead task rows older than the
// cutoff. Redis records expire via TTL; Postgres needs an explicit prune.
func (s *TaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM retry_tasks
		WHERE status IN ($1, $2) AND created_at < $3`,
		string(domain.TaskStatusCompleted), string(domain.TaskStatusDead), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}
