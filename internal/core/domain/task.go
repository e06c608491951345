package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the lifecycle state of a retry task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusDead       TaskStatus = "dead" // Max attempts exhausted
)

// RetryTask is a persisted unit of work scheduled for at-least-once execution.
// Payload is an opaque envelope; the registered handler owns its schema.
type RetryTask struct {
	ID          string          `json:"id"`
	Type        string          `json:"task_type"`
	Payload     json.RawMessage `json:"payload"`
	Status      TaskStatus      `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	NextRetryAt time.Time       `json:"next_retry_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}
