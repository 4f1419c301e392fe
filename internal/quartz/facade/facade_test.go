package facade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/memstore"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/workerpool"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

type nopJob struct{}

func (nopJob) Execute(ctx *model.JobExecutionContext) error { return nil }

type nopFactory struct{}

func (nopFactory) NewJob(detail *model.JobDetail) (model.Job, error) { return nopJob{}, nil }

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = t.Name() + "-" + time.Now().String()
	}
	cfg.IdleWaitTime = 10 * time.Millisecond
	pool := workerpool.New(workerpool.Config{Workers: 2}, logx.Logger{})
	s, err := New(cfg, memstore.New(), pool, nopFactory{}, logx.Logger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background(), false)
	})
	return s
}

func TestSchedulerLifecycleCreatedToStartedToStandbyToShutdown(t *testing.T) {
	s := newTestScheduler(t, Config{})

	if s.State() != Created {
		t.Fatalf("expected CREATED, got %v", s.State())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsStarted() {
		t.Fatal("expected IsStarted after Start")
	}

	if err := s.Standby(); err != nil {
		t.Fatalf("Standby: %v", err)
	}
	if !s.IsInStandbyMode() {
		t.Fatal("expected IsInStandbyMode after Standby")
	}
	if s.IsStarted() {
		t.Fatal("expected IsStarted to be false while in STANDBY")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start (resume from standby): %v", err)
	}
	if s.State() != Started {
		t.Fatalf("expected STARTED after resuming from STANDBY, got %v", s.State())
	}

	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !s.IsShutdown() {
		t.Fatal("expected IsShutdown after Shutdown")
	}
}

func TestSchedulerStartIsIdempotentWhenAlreadyStarted(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("expected a second Start to be a no-op, got %v", err)
	}
}

func TestSchedulerStartAfterShutdownFails(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	err := s.Start(context.Background())
	if !errors.Is(err, model.ErrSchedulerShutdown) {
		t.Fatalf("expected ErrSchedulerShutdown, got %v", err)
	}
}

func TestSchedulerShutdownIsIdempotent(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("expected a second Shutdown to be a no-op, got %v", err)
	}
}

func TestSchedulerShutdownNotifiesShuttingDownBeforeShutdown(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var order []string
	s.AddSchedulerListener(&orderingSchedulerListener{order: &order})

	if err := s.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "shuttingdown" || order[1] != "shutdown" {
		t.Fatalf("expected [shuttingdown shutdown], got %v", order)
	}
}

type orderingSchedulerListener struct {
	order *[]string
}

func (l *orderingSchedulerListener) SchedulerStarted()      {}
func (l *orderingSchedulerListener) SchedulerStandby()      {}
func (l *orderingSchedulerListener) SchedulerShuttingDown() { *l.order = append(*l.order, "shuttingdown") }
func (l *orderingSchedulerListener) SchedulerShutdown()     { *l.order = append(*l.order, "shutdown") }
func (l *orderingSchedulerListener) SchedulerError(string, error)      {}
func (l *orderingSchedulerListener) JobScheduled(model.Trigger)        {}
func (l *orderingSchedulerListener) JobUnscheduled(model.Key)          {}
func (l *orderingSchedulerListener) JobAdded(*model.JobDetail)         {}
func (l *orderingSchedulerListener) JobDeleted(model.Key)              {}
func (l *orderingSchedulerListener) JobPaused(model.Key)               {}
func (l *orderingSchedulerListener) JobResumed(model.Key)              {}
func (l *orderingSchedulerListener) TriggerPaused(model.Key)           {}
func (l *orderingSchedulerListener) TriggerResumed(model.Key)          {}

func TestSupervisorCountersZeroBeforeStart(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if c := s.SupervisorCounters(); c.Active != 0 || c.Started != 0 {
		t.Fatalf("expected zero counters before Start, got %+v", c)
	}
}

func TestSupervisorCountersReportsRunningLoop(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c := s.SupervisorCounters(); c.Started == 0 {
		t.Fatalf("expected at least one goroutine started, got %+v", c)
	}
}

func TestSchedulerStandbyWithoutStartIsNoop(t *testing.T) {
	s := newTestScheduler(t, Config{})
	if err := s.Standby(); err != nil {
		t.Fatalf("Standby: %v", err)
	}
	if s.State() != Created {
		t.Fatalf("expected Standby on a CREATED scheduler to be a no-op, got %v", s.State())
	}
}

func TestHoldListAddAndRemove(t *testing.T) {
	s := newTestScheduler(t, Config{})
	conn := new(int)
	s.AddToHoldList(conn)
	if s.HoldListLen() != 1 {
		t.Fatalf("expected 1 held entry, got %d", s.HoldListLen())
	}
	if !s.RemoveFromHoldList(conn) {
		t.Fatal("expected RemoveFromHoldList to find the entry")
	}
	if s.HoldListLen() != 0 {
		t.Fatalf("expected 0 held entries after removal, got %d", s.HoldListLen())
	}
	if s.RemoveFromHoldList(conn) {
		t.Fatal("expected a second removal of the same value to report false")
	}
}
