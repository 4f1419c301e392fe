// Package facade implements the SchedulerFacade collaborator (§4.1) and
// its CREATED/STARTED/STANDBY/SHUTTING_DOWN/SHUTDOWN lifecycle (§4.8):
// the single object application code talks to, wiring together the
// JobStore, WorkerPool, ListenerRegistry, Signaler, SchedulingLoop, and
// Dispatcher collaborators behind one API.
package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/eventbus"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/dispatch"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/listener"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/loop"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/repository"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/signal"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/workerpool"
	"github.com/yitzchokneuhaus1/quartznet/internal/runtime/supervisor"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// LifecycleState is the facade's CREATED -> (STARTED <-> STANDBY) ->
// SHUTTING_DOWN -> SHUTDOWN state machine.
type LifecycleState int32

const (
	Created LifecycleState = iota
	Started
	Standby
	ShuttingDown
	Shutdown
)

func (s LifecycleState) String() string {
	switch s {
	case Started:
		return "STARTED"
	case Standby:
		return "STANDBY"
	case ShuttingDown:
		return "SHUTTING_DOWN"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "CREATED"
	}
}

// Config configures a Scheduler.
type Config struct {
	Name       string
	InstanceID string

	IdleWaitTime           time.Duration
	DBFailureRetryInterval time.Duration
	BatchSizeMax           int
	AcquisitionTimeWindow  time.Duration

	// SignalOnSchedulingChange toggles whether mutation operations wake a
	// sleeping loop early. When false, the facade still mutates the
	// store; the loop discovers the change at the next idle-wait expiry.
	SignalOnSchedulingChange bool

	InterruptJobsOnShutdown         bool
	InterruptJobsOnShutdownWithWait bool

	// ShutdownStepTimeout bounds each individual step of Shutdown's
	// drain sequence.
	ShutdownStepTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "quartznet"
	}
	if c.InstanceID == "" {
		c.InstanceID = fmt.Sprintf("%s-%d", c.Name, time.Now().UnixNano())
	}
	if c.IdleWaitTime <= 0 {
		c.IdleWaitTime = 30 * time.Second
	}
	if c.DBFailureRetryInterval <= 0 {
		c.DBFailureRetryInterval = 15 * time.Second
	}
	if c.BatchSizeMax <= 0 {
		c.BatchSizeMax = 1
	}
	if c.ShutdownStepTimeout <= 0 {
		c.ShutdownStepTimeout = 10 * time.Second
	}
	return c
}

// Scheduler is the SchedulerFacade.
type Scheduler struct {
	cfg Config
	log logx.Logger

	store   store.JobStore
	pool    *workerpool.Pool
	lr      *listener.Registry
	sig     *signal.Signaler
	loopRun *loop.Loop
	dispatcher *dispatch.Dispatcher
	tracker *listener.ExecutionTracker
	factory model.JobFactory

	mu    sync.Mutex
	state LifecycleState
	sup   *supervisor.Supervisor

	hold   []any
	holdMu sync.Mutex
}

// Option configures optional Scheduler collaborators at construction time.
type Option func(*Scheduler)

// WithEventBus registers a busListener so scheduler lifecycle and
// mutation events are also published onto bus, alongside the ordinary
// SchedulerListener notifications.
func WithEventBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) {
		if bus != nil {
			s.lr.AddSchedulerListener(newBusListener(bus, s.cfg.Name))
		}
	}
}

// New wires a Scheduler from its collaborators and registers it in the
// process-wide repository under its name. factory resolves
// JobDetail.JobType to a runnable model.Job.
func New(cfg Config, st store.JobStore, pool *workerpool.Pool, factory model.JobFactory, log logx.Logger, opts ...Option) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	lr := listener.New()
	tracker := listener.NewExecutionTracker()
	lr.AddGlobalJobListener(tracker)
	lr.AddSchedulerListener(listener.NewErrorLogger(log, 5, 10))

	s := &Scheduler{
		cfg: cfg, log: log, store: st, pool: pool, lr: lr, sig: signal.New(),
		tracker: tracker, factory: factory, state: Created,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = dispatch.New(st, pool, lr, factory, tracker, log)
	s.loopRun = loop.New(loop.Config{
		IdleWaitTime:           cfg.IdleWaitTime,
		DBFailureRetryInterval: cfg.DBFailureRetryInterval,
		BatchSizeMax:           cfg.BatchSizeMax,
		AcquisitionTimeWindow:  cfg.AcquisitionTimeWindow,
	}, st, pool, s.sig, lr, log, func(ctx context.Context, f loop.Fire) {
		s.dispatcher.Dispatch(ctx, f.Bundle)
	})

	if err := repository.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) SchedulerName() string       { return s.cfg.Name }
func (s *Scheduler) SchedulerInstanceID() string { return s.cfg.InstanceID }

func (s *Scheduler) Listeners() *listener.Registry         { return s.lr }
func (s *Scheduler) ExecutionTracker() *listener.ExecutionTracker { return s.tracker }

func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Started
}

func (s *Scheduler) IsInStandbyMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Standby
}

func (s *Scheduler) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == ShuttingDown || s.state == Shutdown
}

func (s *Scheduler) State() LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SupervisorCounters reports the counters of the supervisor that runs the
// scheduling loop, for admin-facing diagnostics. The worker pool's
// dispatch/autoscale goroutines run under the pool's own supervisor and
// are not counted here. Zero value before Start.
func (s *Scheduler) SupervisorCounters() supervisor.SupervisorCounters {
	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()
	return sup.Counters()
}

// Start transitions CREATED or STANDBY into STARTED, launching the
// worker pool and scheduling loop under a fresh supervisor derived from
// ctx. Calling Start while already STARTED is a no-op (idempotent).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Started:
		return nil
	case ShuttingDown, Shutdown:
		return model.NewSchedulerException(model.ErrSchedulerShutdown, "cannot start a shut-down scheduler")
	case Standby:
		s.state = Started
		s.loopRun.Resume()
		s.lr.NotifySchedulerStarted()
		return nil
	}

	if err := s.store.SchedulerStarted(ctx); err != nil {
		return fmt.Errorf("jobstore schedulerStarted: %w", err)
	}

	s.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(s.log))
	s.pool.Start(s.sup.Context())
	s.sup.Go("quartznet.loop", s.loopRun.Run)

	s.state = Started
	s.lr.NotifySchedulerStarted()
	return nil
}

// StartDelayed calls Start after d elapses, in its own goroutine. It
// returns immediately; a failed delayed Start is reported only via
// SchedulerError listeners since there is no synchronous caller left to
// return an error to.
func (s *Scheduler) StartDelayed(ctx context.Context, d time.Duration) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
		if err := s.Start(ctx); err != nil {
			s.lr.NotifySchedulerError("delayed start failed", err)
		}
	}()
}

// Standby transitions STARTED into STANDBY: the loop stops acquiring new
// triggers, but already-dispatched jobs keep running and the worker pool
// stays up so Start can resume instantly.
func (s *Scheduler) Standby() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Started {
		return nil
	}
	s.state = Standby
	s.loopRun.Pause()
	s.lr.NotifySchedulerStandby()
	return nil
}

// Shutdown transitions to SHUTTING_DOWN then SHUTDOWN, draining the
// worker pool. If waitForCompletion is false, in-flight jobs are left to
// finish in the background while Shutdown returns immediately after
// stopping acquisition. Calling Shutdown when already SHUTDOWN is a
// no-op.
func (s *Scheduler) Shutdown(ctx context.Context, waitForCompletion bool) error {
	s.mu.Lock()
	if s.state == Shutdown || s.state == ShuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.state = ShuttingDown
	s.mu.Unlock()
	s.lr.NotifySchedulerShuttingDown()

	if s.cfg.InterruptJobsOnShutdown || (waitForCompletion && s.cfg.InterruptJobsOnShutdownWithWait) {
		for _, ec := range s.tracker.Executing() {
			if it, ok := ec.JobInstance.(model.Interruptible); ok {
				_ = it.Interrupt()
			}
		}
	}

	if s.sup != nil {
		s.sup.Cancel() // stop the loop from acquiring further triggers
	}

	step := func(name string, fn func(ctx context.Context) error) error {
		stepCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownStepTimeout)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil {
				s.log.Warn("shutdown step failed", logx.String("step", name), logx.Err(err))
			}
			return err
		case <-stepCtx.Done():
			s.log.Warn("shutdown step timed out", logx.String("step", name))
			go func() {
				if err := <-done; err != nil {
					s.log.Warn("shutdown step finished after deadline", logx.String("step", name), logx.Err(err))
				}
			}()
			return stepCtx.Err()
		}
	}

	if waitForCompletion {
		_ = step("workerpool.drain", func(ctx context.Context) error { return s.pool.Shutdown(ctx) })
	}

	if s.sup != nil {
		_ = step("supervisor.wait", s.sup.Wait)
	}

	_ = step("jobstore.shutdown", s.store.Shutdown)

	s.mu.Lock()
	s.state = Shutdown
	s.mu.Unlock()
	s.lr.NotifySchedulerShutdown()
	repository.Unregister(s.cfg.Name)
	return nil
}
