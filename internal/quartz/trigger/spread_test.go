package trigger

import (
	"testing"
	"time"
)

func TestStartupSpreadIsDeterministic(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := StartupSpread("job-a", first, 10*time.Second)
	b := StartupSpread("job-a", first, 10*time.Second)
	if !a.Equal(b) {
		t.Fatalf("expected the same name to produce the same offset, got %v and %v", a, b)
	}
}

func TestStartupSpreadStaysWithinWindow(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 5 * time.Second
	spread := StartupSpread("some-job-name", first, window)
	if spread.Before(first) || spread.After(first.Add(window)) {
		t.Fatalf("expected spread time within [%v, %v], got %v", first, first.Add(window), spread)
	}
}

func TestStartupSpreadZeroWindowIsNoop(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := StartupSpread("job", first, 0); !got.Equal(first) {
		t.Fatalf("expected zero window to leave the time unchanged, got %v", got)
	}
}

func TestStartupSpreadVariesByName(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 10 * time.Second
	offsets := map[time.Duration]bool{}
	for _, name := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		offsets[StartupSpread(name, first, window).Sub(first)] = true
	}
	if len(offsets) < 2 {
		t.Fatal("expected StartupSpread to vary across distinct names")
	}
}
