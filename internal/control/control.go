// Package control wires the stores, queue, breakers, and health surface
// into a runnable service.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/sentinel/internal/core/breaker"
	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/core/worker"
	"github.com/vietddude/sentinel/internal/handler"
	"github.com/vietddude/sentinel/internal/health"
	redisclient "github.com/vietddude/sentinel/internal/infra/redis"
	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/infra/storage/memory"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
	"github.com/vietddude/sentinel/internal/queue"
)

// Service is the main application struct that manages the queue lifecycle.
type Service struct {
	cfg          *config.AppConfig
	queue        *queue.Queue
	worker       *queue.Worker
	circuits     *breaker.Registry
	pruner       *worker.Pruner
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewService creates a new Service instance with all dependencies initialized.
// Storage is picked from configuration: Postgres when database.url is set,
// Redis when redis.url is set, and an in-process store otherwise.
func NewService(ctx context.Context, cfg *config.AppConfig) (*Service, error) {
	var store storage.TaskStore
	var db *postgres.DB
	var redisClient *redisclient.Client
	var pruner *worker.Pruner

	switch {
	case cfg.Database.URL != "":
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		pgStore := postgres.NewTaskStore(db)
		store = pgStore
		if cfg.Queue.Retention > 0 {
			pruner = worker.NewPruner(cfg.Queue.Retention, pgStore)
		}
		slog.Info("Using PostgreSQL storage")

	case cfg.Redis.URL != "":
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		store = redisclient.NewTaskStore(redisClient, cfg.Queue.TaskTTL)
		slog.Info("Using Redis storage")

	default:
		store = memory.NewTaskStore()
		slog.Info("Using Memory storage")
	}

	circuits := breaker.NewRegistry(cfg.Breakers.Defaults)
	for name, c := range cfg.Breakers.Circuits {
		circuits.Configure(name, c)
	}

	q := queue.New(store, cfg.Queue.Backoff)

	for _, wh := range cfg.Webhooks {
		q.RegisterHandler(wh.TaskType, handler.NewWebhook(wh.URL, circuits.Get(wh.Circuit)).Handle)
	}

	healthMon := health.NewMonitor(q, circuits)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Service{
		cfg:          cfg,
		queue:        q,
		worker:       queue.NewWorker(q, cfg.Queue.Worker),
		circuits:     circuits,
		pruner:       pruner,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Queue returns the retry queue for handler registration and enqueueing.
func (s *Service) Queue() *queue.Queue {
	return s.queue
}

// Circuits returns the circuit breaker registry.
func (s *Service) Circuits() *breaker.Registry {
	return s.circuits
}

// Start starts the service and all its components.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		if err := s.worker.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("Queue worker failed", "error", err)
		}
	}()

	if s.pruner != nil {
		go s.pruner.Start(ctx)
	}

	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
