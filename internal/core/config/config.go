package config

import (
	"time"

	"github.com/vietddude/sentinel/internal/core/breaker"
	redisclient "github.com/vietddude/sentinel/internal/infra/redis"
	"github.com/vietddude/sentinel/internal/infra/storage/postgres"
	"github.com/vietddude/sentinel/internal/queue"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Logging  LoggingConfig      `yaml:"logging"`
	Queue    QueueConfig        `yaml:"queue"`
	Breakers BreakersConfig     `yaml:"breakers"`
	Webhooks []WebhookConfig    `yaml:"webhooks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// QueueConfig holds retry queue settings.
type QueueConfig struct {
	Worker    queue.WorkerConfig `yaml:"worker"`
	Backoff   queue.Backoff      `yaml:"backoff"`
	TaskTTL   time.Duration      `yaml:"task_ttl"`   // Redis record expiry, 0 = store default
	Retention time.Duration      `yaml:"retention"`  // Postgres finished-row retention, 0 = keep forever
}

// BreakersConfig holds circuit breaker defaults plus per-circuit overrides.
type BreakersConfig struct {
	Defaults breaker.Config            `yaml:"defaults"`
	Circuits map[string]breaker.Config `yaml:"circuits"`
}

// WebhookConfig binds a task type to an outbound HTTP endpoint.
type WebhookConfig struct {
	TaskType string `yaml:"task_type"`
	URL      string `yaml:"url"`
	Circuit  string `yaml:"circuit"` // breaker name, defaults to the task type
}
