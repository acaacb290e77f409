package queue

import (
	"testing"
	"time"
)

func TestNextDelay_MatchesSpecBounds(t *testing.T) {
	cfg := DefaultBackoffConfig()

	for attempt := 1; attempt <= 5; attempt++ {
		wantFloor := 100 * time.Millisecond * time.Duration(1<<uint(attempt-1))
		min, max := cfg.DelayBounds(attempt)
		if min != wantFloor {
			t.Fatalf("attempt %d: floor = %v, want %v", attempt, min, wantFloor)
		}
		if max != min+100*time.Millisecond {
			t.Fatalf("attempt %d: ceiling = %v, want %v", attempt, max, min+100*time.Millisecond)
		}

		for i := 0; i < 50; i++ {
			d := cfg.NextDelay(attempt)
			if d < min || d >= max {
				t.Fatalf("attempt %d: NextDelay() = %v, want in [%v, %v)", attempt, d, min, max)
			}
		}
	}
}

func TestNextDelay_RespectsCap(t *testing.T) {
	cfg := DefaultBackoffConfig()

	min, max := cfg.DelayBounds(10)
	if min != cfg.Cap {
		t.Fatalf("floor at high attempt = %v, want cap %v", min, cfg.Cap)
	}
	if max != cfg.Cap+cfg.JitterMax {
		t.Fatalf("ceiling at high attempt = %v, want cap+jitter %v", max, cfg.Cap+cfg.JitterMax)
	}
}

func TestExhausted(t *testing.T) {
	cfg := DefaultBackoffConfig()

	if cfg.Exhausted(4) {
		t.Fatal("Exhausted(4) = true, want false (k_max=5)")
	}
	if !cfg.Exhausted(5) {
		t.Fatal("Exhausted(5) = false, want true")
	}
	if !cfg.Exhausted(6) {
		t.Fatal("Exhausted(6) = false, want true")
	}
}
