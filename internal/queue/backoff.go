package queue

import (
	"math"
	"time"
)

// Backoff computes retry delays. Delays grow multiplicatively with the
// attempt count and are capped at MaxDelay. There is no jitter: retries of
// a given task are deterministic, which keeps behavior predictable but
// means many tasks failing at once will retry at the same moments.
type Backoff struct {
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Multiplier float64       `yaml:"multiplier"`
}

// DefaultBackoff retries after 30s, 60s, 120s, ... capped at one hour.
var DefaultBackoff = Backoff{
	BaseDelay:  30 * time.Second,
	MaxDelay:   time.Hour,
	Multiplier: 2.0,
}

// Delay returns the wait before the next try, where attempt is the number
// of tries already made (the first failure is attempt 1).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	return time.Duration(delay)
}

func (b Backoff) withDefaults() Backoff {
	if b.BaseDelay <= 0 {
		b.BaseDelay = DefaultBackoff.BaseDelay
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = DefaultBackoff.MaxDelay
	}
	if b.Multiplier <= 1 {
		b.Multiplier = DefaultBackoff.Multiplier
	}
	return b
}
