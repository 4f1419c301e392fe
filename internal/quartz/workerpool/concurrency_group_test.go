package workerpool

import "testing"

func TestGroupTrackerAllowPolicyBypassesTracking(t *testing.T) {
	g := newGroupTracker()
	proceed, skip, _ := g.acquire("k", OverlapAllow)
	if !proceed || skip {
		t.Fatalf("expected OverlapAllow to always proceed, got proceed=%v skip=%v", proceed, skip)
	}
	proceed2, skip2, _ := g.acquire("k", OverlapAllow)
	if !proceed2 || skip2 {
		t.Fatal("expected a second OverlapAllow acquire for the same key to also proceed")
	}
}

func TestGroupTrackerEmptyKeyBypassesTracking(t *testing.T) {
	g := newGroupTracker()
	proceed, skip, _ := g.acquire("", OverlapQueue)
	if !proceed || skip {
		t.Fatal("expected an empty key to bypass tracking regardless of policy")
	}
}

func TestGroupTrackerSkipDropsWhileBusy(t *testing.T) {
	g := newGroupTracker()
	proceed, skip, _ := g.acquire("k", OverlapSkip)
	if !proceed || skip {
		t.Fatal("expected the first acquire to claim the key")
	}
	proceed, skip, _ = g.acquire("k", OverlapSkip)
	if proceed || !skip {
		t.Fatal("expected a second OverlapSkip acquire while busy to be skipped")
	}
	g.release("k", OverlapSkip)
	proceed, skip, _ = g.acquire("k", OverlapSkip)
	if !proceed || skip {
		t.Fatal("expected the key to be acquirable again after release")
	}
}

func TestGroupTrackerQueueSerializesAndWakesWaiters(t *testing.T) {
	g := newGroupTracker()
	proceed, skip, _ := g.acquire("k", OverlapQueue)
	if !proceed || skip {
		t.Fatal("expected the first acquire to proceed immediately")
	}

	_, skip2, wait := g.acquire("k", OverlapQueue)
	if skip2 {
		t.Fatal("OverlapQueue must never skip")
	}
	if wait == nil {
		t.Fatal("expected a wait channel for a queued acquire")
	}

	select {
	case <-wait:
		t.Fatal("wait channel must not be closed before the holder releases")
	default:
	}

	g.release("k", OverlapQueue)

	select {
	case <-wait:
	default:
		t.Fatal("expected release to wake the queued waiter")
	}
}

func TestGroupTrackerReleaseOnEmptyKeyIsNoop(t *testing.T) {
	g := newGroupTracker()
	g.release("", OverlapQueue) // must not panic
	g.release("k", OverlapAllow)
}
