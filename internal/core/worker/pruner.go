package worker

import (
	"context"
	"log/slog"
	"time"
)

// Prunable is a store that can drop finished task records.
type Prunable interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner deletes completed and dead-lettered tasks past the retention
// window. Stores with native expiry (Redis TTLs) don't need one.
type Pruner struct {
	retention time.Duration
	store     Prunable
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, store Prunable) *Pruner {
	return &Pruner{retention: retention, store: store}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)

	n, err := p.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune finished tasks", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned finished tasks", "count", n, "cutoff", cutoff)
	}
}
