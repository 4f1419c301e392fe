package trigger

import (
	"hash/fnv"
	"time"
)

// StartupSpread deterministically offsets a trigger's first computed fire
// time by up to window, keyed by name, so that a fleet of triggers
// registered together (e.g. restored from a store at process start) don't
// all acquire on the same tick and thundering-herd the worker pool.
func StartupSpread(name string, first time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return first
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	offset := time.Duration(h.Sum32()%uint32(window.Milliseconds()+1)) * time.Millisecond
	return first.Add(offset)
}
