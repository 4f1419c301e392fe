// Package repository implements the process-wide scheduler-name registry
// (§4.7): every facade registers itself here under its scheduler name so
// long-lived code elsewhere in the process can look a running scheduler
// up without being handed a reference to it directly.
package repository

import (
	"sync"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// Facade is the subset of the scheduler facade the repository needs to
// know about -- just enough to identify it, avoiding an import cycle
// with the facade package.
type Facade interface {
	SchedulerName() string
}

var (
	mu        sync.Mutex
	schedulers = map[string]Facade{}
)

// Register adds f under its scheduler name, failing if that name is
// already taken by a different live instance.
func Register(f Facade) error {
	mu.Lock()
	defer mu.Unlock()
	name := f.SchedulerName()
	if _, exists := schedulers[name]; exists {
		return model.ErrDuplicateScheduler
	}
	schedulers[name] = f
	return nil
}

// Unregister removes f's entry, called from the facade's shutdown path.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(schedulers, name)
}

// Lookup returns the registered facade for name, if any.
func Lookup(name string) (Facade, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := schedulers[name]
	return f, ok
}

// Names returns every currently registered scheduler name.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(schedulers))
	for name := range schedulers {
		out = append(out, name)
	}
	return out
}
