// Package jobs provides a simple name-keyed model.JobFactory and a couple
// of example model.Job implementations used by the demo daemon and by
// tests that need a runnable job without standing up a real workload.
package jobs

import (
	"fmt"
	"sync"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// Constructor builds a fresh model.Job instance for one fire.
type Constructor func() model.Job

// Registry is a model.JobFactory keyed by JobDetail.JobType.
type Registry struct {
	mu  sync.RWMutex
	ctr map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctr: map[string]Constructor{}}
}

// Register binds jobType to ctor. Re-registering the same jobType
// replaces the previous constructor.
func (r *Registry) Register(jobType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctr[jobType] = ctor
}

func (r *Registry) NewJob(detail *model.JobDetail) (model.Job, error) {
	r.mu.RLock()
	ctor, ok := r.ctr[detail.JobType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("jobs: no constructor registered for job type %q", detail.JobType)
	}
	return ctor(), nil
}

var _ model.JobFactory = (*Registry)(nil)
