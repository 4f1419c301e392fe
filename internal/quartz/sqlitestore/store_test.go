package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quartznet-test.db")
	st, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreJobRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), JobType: "noop", Durable: true, JobData: model.JobDataMap{"k": "v"}}

	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatalf("StoreJob: %v", err)
	}
	got, err := s.RetrieveJob(ctx, job.Key)
	if err != nil {
		t.Fatalf("RetrieveJob: %v", err)
	}
	if got == nil || got.JobType != "noop" || got.JobData["k"] != "v" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := s.StoreJob(ctx, job, false); !errors.Is(err, model.ErrObjectAlreadyExists) {
		t.Fatalf("expected ErrObjectAlreadyExists, got %v", err)
	}
}

func TestStoreTriggerSimpleRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatal(err)
	}

	start := time.Now().Add(time.Minute).Truncate(time.Second)
	tr := trigger.NewSimple(model.NewKey("t1", "g"), job.Key, start, 30*time.Second, 5)
	tr.ComputeFirstFireTime(nil)
	if err := s.StoreTrigger(ctx, tr, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	got, err := s.RetrieveTrigger(ctx, tr.Key())
	if err != nil {
		t.Fatalf("RetrieveTrigger: %v", err)
	}
	if got == nil {
		t.Fatal("expected a trigger to be returned")
	}
	simple, ok := got.(*trigger.SimpleTrigger)
	if !ok {
		t.Fatalf("expected a *trigger.SimpleTrigger, got %T", got)
	}
	if simple.Repeat() != 5 || simple.Interval() != 30*time.Second {
		t.Fatalf("restored trigger parameters mismatch: repeat=%d interval=%v", simple.Repeat(), simple.Interval())
	}
	next, ok := simple.GetNextFireTime()
	if !ok || !next.Equal(start) {
		t.Fatalf("expected restored next fire time %v, got %v (ok=%v)", start, next, ok)
	}
}

func TestStoreTriggerCronRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	s.StoreJob(ctx, job, false)

	ct, err := trigger.NewCron(model.NewKey("t1", "g"), job.Key, "0 * * * * *", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	ct.ComputeFirstFireTime(nil)
	if err := s.StoreTrigger(ctx, ct, false); err != nil {
		t.Fatalf("StoreTrigger: %v", err)
	}

	got, err := s.RetrieveTrigger(ctx, ct.Key())
	if err != nil {
		t.Fatal(err)
	}
	cron, ok := got.(*trigger.CronTrigger)
	if !ok {
		t.Fatalf("expected a *trigger.CronTrigger, got %T", got)
	}
	if cron.Spec() != "0 * * * * *" {
		t.Fatalf("expected the spec to round trip, got %q", cron.Spec())
	}
}

func TestRemoveJobCascadesTriggers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	s.StoreJob(ctx, job, false)
	tr := trigger.NewSimple(model.NewKey("t1", "g"), job.Key, time.Now(), 0, 0)
	tr.ComputeFirstFireTime(nil)
	s.StoreTrigger(ctx, tr, false)

	removed, err := s.RemoveJob(ctx, job.Key)
	if err != nil || !removed {
		t.Fatalf("expected job removal, got removed=%v err=%v", removed, err)
	}
	got, _ := s.RetrieveTrigger(ctx, tr.Key())
	if got != nil {
		t.Fatal("expected the cascade-deleted trigger to be gone")
	}
}

func TestAcquireNextTriggersRespectsCutoffAndState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	s.StoreJob(ctx, job, false)

	now := time.Now()
	due := trigger.NewSimple(model.NewKey("due", "g"), job.Key, now, 0, 0)
	due.ComputeFirstFireTime(nil)
	future := trigger.NewSimple(model.NewKey("future", "g"), job.Key, now.Add(time.Hour), 0, 0)
	future.ComputeFirstFireTime(nil)
	s.StoreTrigger(ctx, due, false)
	s.StoreTrigger(ctx, future, false)

	acquired, err := s.AcquireNextTriggers(ctx, now.Add(time.Second), 10, 0)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(acquired) != 1 || acquired[0].Key() != due.Key() {
		t.Fatalf("expected only the due trigger to be acquired, got %v", acquired)
	}

	state, err := s.GetTriggerState(ctx, due.Key())
	if err != nil || state != model.TriggerStateAcquired {
		t.Fatalf("expected acquired trigger to move to ACQUIRED state, got %v err=%v", state, err)
	}
}

func TestAcquireNextTriggersCatchesUpAMisfiredTrigger(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	s.StoreJob(ctx, job, false)

	overdue := trigger.NewSimple(model.NewKey("t1", "g"), job.Key, time.Now().Add(-2*time.Hour), time.Minute, trigger.RepeatForever)
	overdue.ComputeFirstFireTime(nil)
	s.StoreTrigger(ctx, overdue, false)

	acquired, err := s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatalf("AcquireNextTriggers: %v", err)
	}
	if len(acquired) != 0 {
		t.Fatalf("expected the overdue trigger to be caught up rather than acquired, got %v", acquired)
	}

	state, err := s.GetTriggerState(ctx, overdue.Key())
	if err != nil || state != model.TriggerStateNormal {
		t.Fatalf("expected the misfired trigger to remain NORMAL after catch-up, got %v err=%v", state, err)
	}

	acquired, err = s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(acquired) != 1 {
		t.Fatalf("expected the caught-up trigger to be acquirable, got %v", acquired)
	}
}

func TestTriggersFiredAndCompleteDeleteInstruction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "g"), Durable: true}
	s.StoreJob(ctx, job, false)
	tr := trigger.NewSimple(model.NewKey("t1", "g"), job.Key, time.Now(), 0, 0)
	tr.ComputeFirstFireTime(nil)
	s.StoreTrigger(ctx, tr, false)

	acquired, err := s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil || len(acquired) != 1 {
		t.Fatalf("expected to acquire 1 trigger, got %v err=%v", acquired, err)
	}
	results, err := s.TriggersFired(ctx, acquired)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].NoFire || results[0].Err != nil {
		t.Fatalf("expected a clean fire, got %+v", results[0])
	}

	if err := s.TriggeredJobComplete(ctx, tr, job, model.DeleteTrigger); err != nil {
		t.Fatal(err)
	}
	got, _ := s.RetrieveTrigger(ctx, tr.Key())
	if got != nil {
		t.Fatal("expected DeleteTrigger instruction to remove the trigger row")
	}
}

func TestPauseAndResumeTriggerGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("j1", "mygroup"), Durable: true}
	s.StoreJob(ctx, job, false)
	tr := trigger.NewSimple(model.NewKey("t1", "mygroup"), job.Key, time.Now(), 0, 0)
	tr.ComputeFirstFireTime(nil)
	s.StoreTrigger(ctx, tr, false)

	if err := s.PauseTriggerGroup(ctx, "mygroup"); err != nil {
		t.Fatal(err)
	}
	paused, err := s.IsTriggerGroupPaused(ctx, "mygroup")
	if err != nil || !paused {
		t.Fatalf("expected group to be marked paused, got %v err=%v", paused, err)
	}
	state, _ := s.GetTriggerState(ctx, tr.Key())
	if state != model.TriggerStatePaused {
		t.Fatalf("expected trigger state PAUSED, got %v", state)
	}

	if err := s.ResumeTriggerGroup(ctx, "mygroup"); err != nil {
		t.Fatal(err)
	}
	state, _ = s.GetTriggerState(ctx, tr.Key())
	if state != model.TriggerStateNormal {
		t.Fatalf("expected trigger state NORMAL after resume, got %v", state)
	}
}

func TestCalendarRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cal := trigger.NewWeekdayCalendar(time.UTC, time.Saturday, time.Sunday)

	if err := s.StoreCalendar(ctx, "weekends-off", cal, false); err != nil {
		t.Fatalf("StoreCalendar: %v", err)
	}
	got, err := s.RetrieveCalendar(ctx, "weekends-off")
	if err != nil {
		t.Fatal(err)
	}
	wd, ok := got.(*trigger.WeekdayCalendar)
	if !ok {
		t.Fatalf("expected *trigger.WeekdayCalendar, got %T", got)
	}
	if wd.IsTimeIncluded(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected the restored calendar to still exclude Saturday")
	}

	removed, err := s.RemoveCalendar(ctx, "weekends-off")
	if err != nil || !removed {
		t.Fatalf("expected calendar removal, got removed=%v err=%v", removed, err)
	}
}

func TestSchedulerStartedIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SchedulerStarted(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SchedulerStarted(ctx); err != nil {
		t.Fatalf("expected a second SchedulerStarted call to succeed, got %v", err)
	}
}
