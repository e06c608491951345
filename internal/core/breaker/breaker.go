package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"    // Normal operation, calls go through
	StateOpen     State = "open"      // Too many failures, calls rejected immediately
	StateHalfOpen State = "half_open" // Probing recovery
)

// CircuitOpenError is returned when a call is rejected because the circuit
// is open. It never wraps an underlying cause.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %s is open", e.Name)
}

// Config holds per-breaker thresholds and timings.
type Config struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 60 * time.Second
	}
	return c
}

// Stats holds accumulated counters for a breaker.
type Stats struct {
	Failures             int        `json:"failures"`
	Successes            int        `json:"successes"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	LastFailureAt        *time.Time `json:"last_failure_at,omitempty"`
	LastSuccessAt        *time.Time `json:"last_success_at,omitempty"`
}

// Status is a read-only snapshot of a breaker.
type Status struct {
	Name  string `json:"name"`
	State State  `json:"state"`
	Stats Stats  `json:"stats"`
}

// Breaker wraps calls to a single named dependency, failing fast once
// consecutive failures exceed the threshold and probing recovery after a
// cool-down. One instance per dependency name, process-local.
type Breaker struct {
	name string
	cfg  Config

	mu             sync.Mutex
	state          State
	stats          Stats
	stateChangedAt time.Time
}

// New creates a breaker in the closed state.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:           name,
		cfg:            cfg.withDefaults(),
		state:          StateClosed,
		stateChangedAt: time.Now(),
	}
	metrics.CircuitState.WithLabelValues(name).Set(stateValue(StateClosed))
	return b
}

// Name returns the name of the protected dependency.
func (b *Breaker) Name() string {
	return b.name
}

// Call executes op subject to circuit state. While open and within the
// cool-down it returns a CircuitOpenError without invoking op. The call is
// bounded by the configured call timeout; a timeout counts as a failure
// exactly like an error. Underlying errors are always returned to the
// caller after bookkeeping.
func (b *Breaker) Call(ctx context.Context, op func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := b.invoke(ctx, op)
	if err != nil {
		b.onFailure(err)
		return err
	}

	b.onSuccess()
	return nil
}

// Status returns a snapshot without mutating state.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Name:  b.name,
		State: b.state,
		Stats: b.stats,
	}
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.stateChangedAt) >= b.cfg.ResetTimeout {
			b.transitionTo(StateHalfOpen)
		} else {
			metrics.CircuitRejected.WithLabelValues(b.name).Inc()
			return &CircuitOpenError{Name: b.name}
		}
	}

	return nil
}

// invoke runs op bounded by the call timeout. The lock is NOT held here:
// concurrent callers may be in flight against the same dependency, each
// recording its own outcome once its call resolves.
func (b *Breaker) invoke(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		// The operation may still be running; it keeps the buffered
		// channel so the goroutine can exit.
		return fmt.Errorf("circuit %s: call timed out: %w", b.name, callCtx.Err())
	}
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.stats.Successes++
	b.stats.ConsecutiveSuccesses++
	b.stats.ConsecutiveFailures = 0
	b.stats.LastSuccessAt = &now

	if b.state == StateHalfOpen && b.stats.ConsecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.transitionTo(StateClosed)
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.stats.Failures++
	b.stats.ConsecutiveFailures++
	b.stats.ConsecutiveSuccesses = 0
	b.stats.LastFailureAt = &now

	slog.Debug("Circuit recorded failure",
		"circuit", b.name,
		"consecutive", b.stats.ConsecutiveFailures,
		"error", err,
	)

	switch b.state {
	case StateHalfOpen:
		// A single probe failure is conclusive
		b.transitionTo(StateOpen)
	case StateClosed:
		if b.stats.ConsecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	}
}

// transitionTo must be called with the lock held.
func (b *Breaker) transitionTo(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.stateChangedAt = time.Now()

	metrics.CircuitState.WithLabelValues(b.name).Set(stateValue(next))
	metrics.CircuitTransitions.WithLabelValues(b.name, string(next)).Inc()
	slog.Info("Circuit state changed", "circuit", b.name, "from", prev, "to", next)
}

func stateValue(s State) float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}
