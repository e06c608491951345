package queue

import (
	"context"
	"log/slog"
	"time"
)

// WorkerConfig holds polling settings.
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// DefaultWorkerConfig polls every 10 seconds, 100 tasks per tick.
var DefaultWorkerConfig = WorkerConfig{
	PollInterval: 10 * time.Second,
	BatchSize:    100,
}

// Worker drives the queue on a fixed interval. Run multiple workers (or
// multiple processes) against the same store to scale out; the store's
// claim keeps them from stepping on each other.
type Worker struct {
	queue *Queue
	cfg   WorkerConfig
	log   *slog.Logger
}

// NewWorker creates a polling worker for the queue.
func NewWorker(q *Queue, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultWorkerConfig.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWorkerConfig.BatchSize
	}
	return &Worker{queue: q, cfg: cfg, log: slog.Default()}
}

// Run polls until the context is cancelled. Store errors back off the
// polling loop itself (doubling up to 10x the interval); individual task
// failures are already absorbed by ProcessPending.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Retry worker started",
		"poll_interval", w.cfg.PollInterval, "batch_size", w.cfg.BatchSize)

	delay := w.cfg.PollInterval
	maxDelay := 10 * w.cfg.PollInterval

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Retry worker stopped")
			return ctx.Err()
		case <-time.After(delay):
		}

		processed, err := w.queue.ProcessPending(ctx, w.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay = min(delay*2, maxDelay)
			w.log.Error("Poll failed, backing off", "error", err, "next_poll", delay)
			continue
		}

		delay = w.cfg.PollInterval
		if processed > 0 {
			w.log.Info("Processed retry tasks", "count", processed)
		}

		// Refresh queue depth gauges alongside each successful poll
		if _, err := w.queue.Stats(ctx); err != nil {
			w.log.Warn("Failed to read queue stats", "error", err)
		}
	}
}
