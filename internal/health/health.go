// Package health provides system health monitoring and status reporting.
package health

import (
	"github.com/vietddude/sentinel/internal/core/breaker"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// QueueHealth contains population counts and a derived status for the
// retry queue.
type QueueHealth struct {
	Status     SystemStatus `json:"status"`
	Pending    int          `json:"pending"`
	Processing int          `json:"processing"`
	DeadLetter int          `json:"dead_letter"`
}

// Report contains the full system health report.
type Report struct {
	Status   SystemStatus              `json:"status"`
	Queue    QueueHealth               `json:"queue"`
	Circuits map[string]breaker.Status `json:"circuits"`
}
