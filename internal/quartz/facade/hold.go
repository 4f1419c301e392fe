package facade

// AddToHoldList keeps v reachable for as long as the scheduler lives --
// mirroring Quartz's context.put/holdToPreventGC idiom for job-side
// resources (DB connections, file handles) that must outlive any single
// execution but have no other owner. Duplicate inserts are allowed;
// RemoveFromHoldList drops only the first match.
func (s *Scheduler) AddToHoldList(v any) {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	s.hold = append(s.hold, v)
}

// RemoveFromHoldList removes the first occurrence of v (by ==), reporting
// whether anything was removed.
func (s *Scheduler) RemoveFromHoldList(v any) bool {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	for i, existing := range s.hold {
		if existing == v {
			s.hold = append(s.hold[:i], s.hold[i+1:]...)
			return true
		}
	}
	return false
}

// HoldListLen reports how many entries are currently held, for tests and
// diagnostics.
func (s *Scheduler) HoldListLen() int {
	s.holdMu.Lock()
	defer s.holdMu.Unlock()
	return len(s.hold)
}
