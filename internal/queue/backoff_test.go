package queue

import (
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{0, 30 * time.Second}, // Clamped to the first attempt
		{20, time.Hour},       // Capped
	}

	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := Backoff{}.withDefaults()
	if b != DefaultBackoff {
		t.Errorf("zero backoff should default, got %+v", b)
	}

	custom := Backoff{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 3}.withDefaults()
	if custom.BaseDelay != time.Second || custom.Multiplier != 3 {
		t.Errorf("explicit values overwritten: %+v", custom)
	}
}
