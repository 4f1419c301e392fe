// Package workerpool implements the bounded, adaptive-concurrency job
// execution pool the dispatcher submits fired triggers to. It tracks
// per-key overlap (for Stateful jobs), trips a circuit breaker on
// repeatedly-failing keys, retries with backoff, and exposes the
// available-slot count the scheduling loop consults before acquiring a
// new batch of triggers.
package workerpool

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/runtime/supervisor"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

type queuedTask struct {
	task     Task
	queuedAt time.Time
}

// Pool is the WorkerPool collaborator: a bounded queue plus a resizable
// set of execution permits.
type Pool struct {
	cfg Config
	log logx.Logger

	sup *supervisor.Supervisor

	tasks   chan queuedTask
	permits chan struct{}

	capacity int64 // atomic, current target permit count
	debt     int64 // atomic, tokens withheld on next release(s) after scale-down

	groups  *groupTracker
	breaker *circuitBreaker

	closeMu sync.Mutex
	closed  bool

	wg sync.WaitGroup // in-flight task goroutines

	histMu  sync.Mutex
	history []Result
}

// New constructs a Pool. Call Start before Submit.
func New(cfg Config, log logx.Logger) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:     cfg,
		log:     log,
		tasks:   make(chan queuedTask, cfg.QueueSize),
		permits: make(chan struct{}, cfg.MaxWorkers),
		groups:  newGroupTracker(),
		breaker: newCircuitBreaker(cfg.BreakerFailureThreshold, cfg.BreakerCooldown),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.permits <- struct{}{}
	}
	atomic.StoreInt64(&p.capacity, int64(cfg.Workers))
	return p
}

// Start launches the dispatch loop and autoscaler under a supervisor
// derived from ctx. Once ctx is done the dispatch loop exits and tasks
// still queued are not run; Submit itself refuses work only after
// Shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(p.log))
	p.sup.Go0("workerpool.dispatch", p.dispatchLoop)
	if p.cfg.MinWorkers != p.cfg.MaxWorkers {
		as := newAutoscaler(p)
		p.sup.Go("workerpool.autoscale", as.run)
	}
}

func (p *Pool) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case qt, ok := <-p.tasks:
			if !ok {
				return
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.runTask(ctx, qt)
			}()
		}
	}
}

// Submit enqueues t, blocking until there is queue room, ctx is done, or
// the pool is shutting down.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return ErrShuttingDown
	}
	qt := queuedTask{task: t, queuedAt: time.Now()}
	select {
	case p.tasks <- qt:
		p.closeMu.Unlock()
		return nil
	default:
	}
	p.closeMu.Unlock()

	select {
	case p.tasks <- qt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) runTask(ctx context.Context, qt queuedTask) {
	t := qt.task
	res := Result{Label: t.Label, Key: t.Key, QueuedAt: qt.queuedAt}

	select {
	case <-ctx.Done():
		res.Dropped = true
		res.Err = ctx.Err()
		p.finish(t, res)
		return
	case <-p.permits:
	}
	defer p.releasePermit()

	if p.cfg.MaxQueueDelay > 0 && time.Since(qt.queuedAt) > p.cfg.MaxQueueDelay {
		res.Dropped = true
		res.Err = ErrQueueDelayExceeded
		p.finish(t, res)
		return
	}

	proceed, skip, wait := p.groups.acquire(t.Key, t.Policy)
	if skip {
		res.Dropped = true
		p.finish(t, res)
		return
	}
	if !proceed {
		select {
		case <-wait:
		case <-ctx.Done():
			res.Dropped = true
			res.Err = ctx.Err()
			p.finish(t, res)
			return
		}
	}
	defer p.groups.release(t.Key, t.Policy)

	if !p.breaker.allow(t.Key) {
		res.Dropped = true
		res.Err = ErrCircuitOpen
		p.finish(t, res)
		return
	}

	res.StartAt = time.Now()
	err, attempts := p.runWithRetry(ctx, t)
	res.EndAt = time.Now()
	res.Attempts = attempts
	res.Err = err

	if err != nil {
		p.breaker.recordFailure(t.Key)
	} else {
		p.breaker.recordSuccess(t.Key)
	}
	p.finish(t, res)
}

func (p *Pool) runWithRetry(ctx context.Context, t Task) (error, int) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.RetryMax; attempt++ {
		runCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.DefaultTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, p.cfg.DefaultTimeout)
		}
		lastErr = t.Run(runCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil, attempt + 1
		}
		if ctx.Err() != nil {
			return lastErr, attempt + 1
		}
		if attempt == p.cfg.RetryMax {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr, attempt + 1
		case <-time.After(p.backoff(attempt)):
		}
	}
	return lastErr, p.cfg.RetryMax + 1
}

func (p *Pool) backoff(attempt int) time.Duration {
	d := p.cfg.RetryBase << attempt
	if d <= 0 || d > p.cfg.RetryMaxDelay {
		d = p.cfg.RetryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d/2 + jitter
}

func (p *Pool) finish(t Task, res Result) {
	p.histMu.Lock()
	p.history = append(p.history, res)
	if over := len(p.history) - p.cfg.HistorySize; over > 0 {
		p.history = p.history[over:]
	}
	p.histMu.Unlock()

	if res.Err != nil && !res.Dropped {
		p.log.Warn("workerpool task failed", logx.String("label", res.Label), logx.Int("attempts", res.Attempts), logx.Err(res.Err))
	}

	if t.OnDone != nil {
		t.OnDone(res)
	}
}

func (p *Pool) releasePermit() {
	if atomic.LoadInt64(&p.debt) > 0 {
		atomic.AddInt64(&p.debt, -1)
		return
	}
	select {
	case p.permits <- struct{}{}:
	default:
	}
}

func (p *Pool) resize(n int) {
	if n < p.cfg.MinWorkers {
		n = p.cfg.MinWorkers
	}
	if n > p.cfg.MaxWorkers {
		n = p.cfg.MaxWorkers
	}
	cur := atomic.LoadInt64(&p.capacity)
	delta := int64(n) - cur
	atomic.StoreInt64(&p.capacity, int64(n))
	if delta > 0 {
		for i := int64(0); i < delta; i++ {
			select {
			case p.permits <- struct{}{}:
			default:
			}
		}
		return
	}
	need := -delta
	for i := int64(0); i < need; i++ {
		select {
		case <-p.permits:
		default:
			atomic.AddInt64(&p.debt, 1)
		}
	}
}

// Capacity returns the current target permit count.
func (p *Pool) Capacity() int { return int(atomic.LoadInt64(&p.capacity)) }

// AvailableSlots returns the number of permits free to run a task right
// now -- the N the scheduling loop uses to size its next acquisition.
func (p *Pool) AvailableSlots() int { return len(p.permits) }

// QueueDepth returns the number of tasks submitted but not yet dispatched
// to a goroutine.
func (p *Pool) QueueDepth() int { return len(p.tasks) }

// History returns a snapshot of the most recent completed tasks.
func (p *Pool) History() []Result {
	p.histMu.Lock()
	defer p.histMu.Unlock()
	out := make([]Result, len(p.history))
	copy(out, p.history)
	return out
}

// Shutdown stops accepting new tasks, then waits for the queue to drain
// and all in-flight tasks to finish, or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if p.sup != nil {
			p.sup.Cancel()
		}
		return ctx.Err()
	}

	if p.sup != nil {
		return p.sup.Stop(ctx)
	}
	return nil
}
