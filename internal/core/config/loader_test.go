package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_REDIS_URL", "redis://localhost:6380/2")
	defer os.Unsetenv("TEST_REDIS_URL")

	path := writeConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380/2" {
		t.Errorf("Expected URL redis://localhost:6380/2, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoad_QueueAndBreakers(t *testing.T) {
	path := writeConfig(t, `
queue:
  worker:
    poll_interval: 5s
    batch_size: 50
  backoff:
    base_delay: 10s
    max_delay: 30m
    multiplier: 3
breakers:
  defaults:
    failure_threshold: 5
    reset_timeout: 60s
  circuits:
    crm:
      failure_threshold: 2
webhooks:
  - task_type: crm_sync
    url: https://crm.example.com/hooks
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Queue.Worker.PollInterval != 5*time.Second {
		t.Errorf("Expected poll interval 5s, got %v", cfg.Queue.Worker.PollInterval)
	}
	if cfg.Queue.Backoff.Multiplier != 3 {
		t.Errorf("Expected multiplier 3, got %v", cfg.Queue.Backoff.Multiplier)
	}
	if cfg.Breakers.Circuits["crm"].FailureThreshold != 2 {
		t.Errorf("Expected crm failure threshold 2, got %d", cfg.Breakers.Circuits["crm"].FailureThreshold)
	}
	if cfg.Webhooks[0].Circuit != "crm_sync" {
		t.Errorf("Expected circuit to default to task type, got %s", cfg.Webhooks[0].Circuit)
	}
}

func TestLoad_RejectsIncompleteWebhook(t *testing.T) {
	path := writeConfig(t, `
webhooks:
  - task_type: crm_sync
`)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for webhook without url")
	}
}
