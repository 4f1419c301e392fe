package listener

import (
	"sync"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// ExecutionTracker is the built-in JobListener every facade registers
// globally: it keeps the set of currently-executing JobExecutionContexts
// so the facade can answer GetCurrentlyExecutingJobs and route
// InterruptJob(key) to the right running instance.
type ExecutionTracker struct {
	mu        sync.Mutex
	executing map[string]*model.JobExecutionContext
	numFired  uint64
}

func NewExecutionTracker() *ExecutionTracker {
	return &ExecutionTracker{executing: map[string]*model.JobExecutionContext{}}
}

func (t *ExecutionTracker) Name() string { return "quartznet.ExecutionTracker" }

func (t *ExecutionTracker) JobToBeExecuted(ctx *model.JobExecutionContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.executing[ctx.FireInstanceID] = ctx
	t.numFired++
}

func (t *ExecutionTracker) JobExecutionVetoed(ctx *model.JobExecutionContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.executing, ctx.FireInstanceID)
}

func (t *ExecutionTracker) JobWasExecuted(ctx *model.JobExecutionContext, _ error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.executing, ctx.FireInstanceID)
}

// NumJobsFired is the lifetime count of jobs handed to JobToBeExecuted.
func (t *ExecutionTracker) NumJobsFired() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numFired
}

// Executing returns a snapshot of currently-executing contexts.
func (t *ExecutionTracker) Executing() []*model.JobExecutionContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*model.JobExecutionContext, 0, len(t.executing))
	for _, c := range t.executing {
		out = append(out, c)
	}
	return out
}

// Interrupt asks every currently-executing instance of the given job key
// to stop, for job instances implementing model.Interruptible. It reports
// how many instances were signalled and the last interruption error, if
// any instance declined (model.ErrJobNotInterruptible) or errored.
func (t *ExecutionTracker) Interrupt(key model.Key) (signalled int, err error) {
	t.mu.Lock()
	matches := make([]*model.JobExecutionContext, 0)
	for _, c := range t.executing {
		if c.JobDetail != nil && c.JobDetail.Key == key {
			matches = append(matches, c)
		}
	}
	t.mu.Unlock()

	if len(matches) == 0 {
		return 0, nil
	}
	for _, c := range matches {
		interruptible, ok := c.JobInstance.(model.Interruptible)
		if !ok {
			err = model.ErrJobNotInterruptible
			continue
		}
		if ierr := interruptible.Interrupt(); ierr != nil {
			err = ierr
			continue
		}
		signalled++
	}
	return signalled, err
}
