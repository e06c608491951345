package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/breaker"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

type stubStats struct {
	stats storage.QueueStats
	err   error
	calls int
}

func (s *stubStats) Stats(ctx context.Context) (storage.QueueStats, error) {
	s.calls++
	return s.stats, s.err
}

func newRegistry() *breaker.Registry {
	return breaker.NewRegistry(breaker.Config{
		FailureThreshold: 2,
		CallTimeout:      time.Second,
		ResetTimeout:     time.Minute,
	})
}

func TestMonitor_HealthyWhenIdle(t *testing.T) {
	m := NewMonitor(&stubStats{}, newRegistry())

	report := m.Check(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.Status)
	}
}

func TestMonitor_DeadLetterDegrades(t *testing.T) {
	src := &stubStats{stats: storage.QueueStats{DeadLetter: 1}}
	m := NewMonitor(src, newRegistry())

	report := m.Check(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Queue.DeadLetter != 1 {
		t.Errorf("expected dead letter count 1, got %d", report.Queue.DeadLetter)
	}
}

func TestMonitor_BacklogCritical(t *testing.T) {
	src := &stubStats{stats: storage.QueueStats{Pending: 5000}}
	m := NewMonitor(src, newRegistry())

	if got := m.Check(context.Background()).Status; got != StatusCritical {
		t.Errorf("expected critical, got %s", got)
	}
}

func TestMonitor_StoreErrorCritical(t *testing.T) {
	src := &stubStats{err: errors.New("connection refused")}
	m := NewMonitor(src, newRegistry())

	if got := m.Check(context.Background()).Status; got != StatusCritical {
		t.Errorf("expected critical, got %s", got)
	}
}

func TestMonitor_OpenCircuitDegrades(t *testing.T) {
	reg := newRegistry()
	b := reg.Get("crm")
	failing := errors.New("down")
	for i := 0; i < 2; i++ {
		_ = b.Call(context.Background(), func(ctx context.Context) error { return failing })
	}

	m := NewMonitor(&stubStats{}, reg)
	report := m.Check(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Circuits["crm"].State != breaker.StateOpen {
		t.Errorf("expected open circuit in report, got %s", report.Circuits["crm"].State)
	}
}

func TestMonitor_CachesReports(t *testing.T) {
	src := &stubStats{}
	m := NewMonitor(src, newRegistry())

	for i := 0; i < 5; i++ {
		m.Check(context.Background())
	}
	if src.calls != 1 {
		t.Errorf("expected a single store read, got %d", src.calls)
	}
}
