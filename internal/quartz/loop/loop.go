// Package loop implements the SchedulingLoop collaborator (§4.2): the
// single background goroutine that repeatedly asks the WorkerPool how
// much capacity is free, acquires that many due triggers from the
// JobStore, and hands each one to the Dispatcher at its fire time.
package loop

import (
	"context"
	"errors"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/listener"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/signal"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// Fire is handed to the dispatcher for each trigger the loop decided has
// actually come due.
type Fire struct {
	Bundle *store.TriggerFiredBundle
}

// Slots reports how much free execution capacity the worker pool has
// right now; the loop never acquires more triggers than this in one pass.
type Slots interface {
	AvailableSlots() int
}

// Config tunes the loop's pacing.
type Config struct {
	// IdleWaitTime is how long the loop sleeps when a pass acquires
	// nothing.
	IdleWaitTime time.Duration
	// DBFailureRetryInterval is the backoff after a transient store
	// failure during acquisition.
	DBFailureRetryInterval time.Duration
	// BatchSizeMax upper-bounds a single acquisition regardless of free
	// worker slots.
	BatchSizeMax int
	// AcquisitionTimeWindow is how far past "now" the loop is willing to
	// acquire triggers that haven't technically come due yet, so it can
	// batch near-simultaneous fires into one acquisition round-trip.
	AcquisitionTimeWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.IdleWaitTime <= 0 {
		c.IdleWaitTime = 30 * time.Second
	}
	if c.DBFailureRetryInterval <= 0 {
		c.DBFailureRetryInterval = 15 * time.Second
	}
	if c.BatchSizeMax <= 0 {
		c.BatchSizeMax = 1
	}
	return c
}

// RunState is the loop's own PAUSED/RUNNING/HALTED status, distinct from
// the facade's STARTED/STANDBY lifecycle state: the facade flips
// paused/resumed on the same loop instance across standby transitions.
type RunState int32

const (
	StateRunning RunState = iota
	StatePaused
	StateHalted
)

// Loop is the SchedulingLoop collaborator.
type Loop struct {
	cfg   Config
	store store.JobStore
	slots Slots
	sig   *signal.Signaler
	lr    *listener.Registry
	log   logx.Logger

	dispatch func(ctx context.Context, f Fire)

	pauseCh  chan bool // true=pause, false=resume
	stateCh  chan RunState
	state    RunState
}

func New(cfg Config, st store.JobStore, slots Slots, sig *signal.Signaler, lr *listener.Registry, log logx.Logger, dispatch func(context.Context, Fire)) *Loop {
	return &Loop{
		cfg:      cfg.withDefaults(),
		store:    st,
		slots:    slots,
		sig:      sig,
		lr:       lr,
		log:      log,
		dispatch: dispatch,
		pauseCh:  make(chan bool, 1),
		stateCh:  make(chan RunState, 1),
	}
}

// Pause puts the loop into PAUSED: it stops acquiring new triggers but
// the goroutine keeps running so Resume is cheap. Used for STANDBY.
func (l *Loop) Pause() {
	select {
	case l.pauseCh <- true:
	default:
	}
}

func (l *Loop) Resume() {
	select {
	case l.pauseCh <- false:
	default:
	}
	l.sig.SignalSchedulingChange(time.Time{})
}

// Run is the loop's body; call it under a supervisor. It returns nil on
// ctx cancellation (a clean stop). When the store reports a failure
// wrapping model.ErrStoreFatal, it notifies SchedulerError listeners and
// halts, returning that error; other store failures are retried until
// ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.state = StateRunning
	for {
		select {
		case <-ctx.Done():
			return nil
		case paused := <-l.pauseCh:
			if paused {
				l.state = StatePaused
			} else {
				l.state = StateRunning
			}
			continue
		default:
		}

		if l.state == StatePaused {
			if l.waitForResumeOrCtx(ctx) {
				return nil
			}
			continue
		}

		n := l.slots.AvailableSlots()
		if n <= 0 {
			l.sig.Wait(l.cfg.IdleWaitTime)
			continue
		}
		batch := n
		if batch > l.cfg.BatchSizeMax {
			batch = l.cfg.BatchSizeMax
		}

		now := time.Now()
		triggers, err := l.store.AcquireNextTriggers(ctx, now, batch, l.cfg.AcquisitionTimeWindow)
		if err != nil {
			if errors.Is(err, model.ErrStoreFatal) {
				l.lr.NotifySchedulerError("jobstore acquisition failed fatally", err)
				return err
			}
			l.lr.NotifySchedulerError("jobstore acquisition failed, retrying", err)
			l.sleepInterruptible(ctx, l.cfg.DBFailureRetryInterval)
			continue
		}

		if len(triggers) == 0 {
			l.sig.Wait(l.cfg.IdleWaitTime)
			continue
		}

		if !l.waitForEarliest(ctx, triggers) {
			continue // preempted by a sooner candidate; re-plan next pass
		}

		l.fireBatch(ctx, triggers)
	}
}

func (l *Loop) waitForResumeOrCtx(ctx context.Context) (cancelled bool) {
	select {
	case <-ctx.Done():
		return true
	case paused := <-l.pauseCh:
		if !paused {
			l.state = StateRunning
		}
		return false
	}
}

// waitForEarliest blocks until the earliest trigger in the batch is due,
// returning false (without firing anything) if a scheduling-change
// signal with a sooner candidate preempts the wait -- the acquired
// triggers are released back to the store so the next pass re-plans with
// fresh information.
func (l *Loop) waitForEarliest(ctx context.Context, triggers []model.Trigger) bool {
	earliest, ok := triggers[0].GetNextFireTime()
	if !ok {
		return true
	}
	for {
		wait := time.Until(earliest)
		if wait <= 0 {
			return true
		}
		if cand, has := l.sig.Candidate(); has && cand.Before(earliest) {
			for _, t := range triggers {
				_ = l.store.ReleaseAcquiredTrigger(ctx, t)
			}
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(min(wait, time.Second)):
		}
	}
}

func (l *Loop) fireBatch(ctx context.Context, triggers []model.Trigger) {
	results, err := l.store.TriggersFired(ctx, triggers)
	if err != nil {
		l.lr.NotifySchedulerError("jobstore triggersFired failed", err)
		for _, t := range triggers {
			_ = l.store.ReleaseAcquiredTrigger(ctx, t)
		}
		return
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			l.lr.NotifySchedulerError("jobstore triggersFired per-trigger error", r.Err)
		case r.NoFire:
			continue
		default:
			l.dispatch(ctx, Fire{Bundle: r.Bundle})
		}
	}
}

func (l *Loop) sleepInterruptible(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func min(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
