package signal

import (
	"testing"
	"time"
)

func TestWaitTimesOutWithoutSignal(t *testing.T) {
	s := New()
	start := time.Now()
	signalled := s.Wait(20 * time.Millisecond)
	if signalled {
		t.Fatal("expected Wait to time out, not be signalled")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("Wait returned suspiciously early")
	}
}

func TestSignalWakesWaiter(t *testing.T) {
	s := New()
	done := make(chan bool, 1)
	go func() { done <- s.Wait(time.Second) }()

	time.Sleep(10 * time.Millisecond)
	s.SignalSchedulingChange(time.Time{})

	select {
	case signalled := <-done:
		if !signalled {
			t.Fatal("expected Wait to report signalled=true")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after signal")
	}
}

func TestCandidateKeepsEarliest(t *testing.T) {
	s := New()
	later := time.Now().Add(time.Hour)
	sooner := time.Now().Add(time.Minute)

	s.SignalSchedulingChange(later)
	s.SignalSchedulingChange(sooner)

	cand, ok := s.Candidate()
	if !ok {
		t.Fatal("expected a candidate to be set")
	}
	if !cand.Equal(sooner) {
		t.Fatalf("expected candidate to be the sooner time, got %v", cand)
	}

	// A later candidate must not displace an existing sooner one.
	s.SignalSchedulingChange(later)
	cand, _ = s.Candidate()
	if !cand.Equal(sooner) {
		t.Fatalf("later signal displaced sooner candidate: got %v", cand)
	}
}

func TestWaitClearsCandidate(t *testing.T) {
	s := New()
	s.SignalSchedulingChange(time.Now().Add(time.Minute))
	s.Wait(10 * time.Millisecond)
	if _, ok := s.Candidate(); ok {
		t.Fatal("expected Wait to clear the pending candidate")
	}
}
