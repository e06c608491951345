package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/core/breaker"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// Backlog levels that flip the queue status.
const (
	pendingDegraded = 100
	pendingCritical = 1000
	deadCritical    = 50
)

// StatsSource reads the queue populations.
type StatsSource interface {
	Stats(ctx context.Context) (storage.QueueStats, error)
}

// Monitor aggregates health from the retry queue and the circuit
// breaker registry.
type Monitor struct {
	stats    StatsSource
	circuits *breaker.Registry

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(stats StatsSource, circuits *breaker.Registry) *Monitor {
	return &Monitor{
		stats:    stats,
		circuits: circuits,
	}
}

// Check performs a health check, rate limited to one store read per 10s.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Status != "" {
		return m.lastReport
	}

	report := Report{
		Status:   StatusHealthy,
		Circuits: m.circuits.Snapshot(),
	}

	stats, err := m.stats.Stats(ctx)
	if err != nil {
		// An unreachable store means nothing is being processed
		report.Status = StatusCritical
		report.Queue = QueueHealth{Status: StatusCritical}
	} else {
		report.Queue = QueueHealth{
			Status:     StatusHealthy,
			Pending:    stats.Pending,
			Processing: stats.Processing,
			DeadLetter: stats.DeadLetter,
		}

		if stats.Pending > pendingCritical || stats.DeadLetter > deadCritical {
			report.Queue.Status = StatusCritical
		} else if stats.Pending > pendingDegraded || stats.DeadLetter > 0 {
			report.Queue.Status = StatusDegraded
		}
		report.Status = report.Queue.Status
	}

	// Any open circuit degrades the system even with an empty queue
	if report.Status == StatusHealthy {
		for _, c := range report.Circuits {
			if c.State == breaker.StateOpen {
				report.Status = StatusDegraded
				break
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
