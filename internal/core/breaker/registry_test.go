package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry(Config{})

	a := r.Get("ai-provider")
	b := r.Get("ai-provider")
	if a != b {
		t.Error("expected the same breaker instance per name")
	}

	c := r.Get("crm")
	if c == a {
		t.Error("expected distinct breakers for distinct names")
	}
}

func TestRegistry_ConfigureOverrides(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 5})

	b := r.Configure("messaging", Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
	})

	_ = b.Call(context.Background(), func(ctx context.Context) error {
		return errors.New("down")
	})

	if got := b.Status().State; got != StateOpen {
		t.Errorf("expected configured threshold of 1 to apply, state = %s", got)
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(Config{})
	r.Get("ai-provider")
	r.Get("crm")

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	for name, status := range snap {
		if status.Name != name {
			t.Errorf("snapshot name mismatch: key %s, status %s", name, status.Name)
		}
		if status.State != StateClosed {
			t.Errorf("new breaker %s not closed: %s", name, status.State)
		}
	}
}
