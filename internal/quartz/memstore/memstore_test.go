package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
)

func newJob(name string) *model.JobDetail {
	return &model.JobDetail{Key: model.NewKey(name, "g"), Durable: true}
}

func simpleTrigger(name, jobName string, fireAt time.Time) model.Trigger {
	tr := trigger.NewSimple(model.NewKey(name, "g"), model.NewKey(jobName, "g"), fireAt, 0, 0)
	tr.ComputeFirstFireTime(nil)
	return tr
}

func TestStoreJobAndRetrieve(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")

	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.RetrieveJob(ctx, job.Key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Key != job.Key {
		t.Fatalf("expected to retrieve stored job, got %v", got)
	}

	if err := s.StoreJob(ctx, job, false); !errors.Is(err, model.ErrObjectAlreadyExists) {
		t.Fatalf("expected ErrObjectAlreadyExists on duplicate store, got %v", err)
	}
	if err := s.StoreJob(ctx, job, true); err != nil {
		t.Fatalf("expected replaceExisting=true to succeed, got %v", err)
	}
}

func TestRemoveJobCascadesTriggers(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatal(err)
	}
	trig := simpleTrigger("t1", "j1", time.Now())
	if err := s.StoreTrigger(ctx, trig, false); err != nil {
		t.Fatal(err)
	}

	removed, err := s.RemoveJob(ctx, job.Key)
	if err != nil || !removed {
		t.Fatalf("expected job to be removed, got removed=%v err=%v", removed, err)
	}
	got, _ := s.RetrieveTrigger(ctx, trig.Key())
	if got != nil {
		t.Fatal("expected the job's trigger to be cascade-removed")
	}
}

func TestStoreTriggerRejectsUnknownJob(t *testing.T) {
	s := New()
	ctx := context.Background()
	trig := simpleTrigger("t1", "ghost", time.Now())
	if err := s.StoreTrigger(ctx, trig, false); err == nil {
		t.Fatal("expected an error for a trigger referencing an unknown job")
	}
}

func TestStoreJobAndTriggerAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	trig := simpleTrigger("t1", "j1", time.Now())

	if err := s.StoreJobAndTrigger(ctx, job, trig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotJob, _ := s.RetrieveJob(ctx, job.Key)
	gotTrig, _ := s.RetrieveTrigger(ctx, trig.Key())
	if gotJob == nil || gotTrig == nil {
		t.Fatal("expected both job and trigger to be stored")
	}
}

func TestAcquireNextTriggersOrdersByFireTimeThenPriority(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	early := simpleTrigger("early", "j1", now.Add(time.Second))
	late := simpleTrigger("late", "j1", now.Add(2*time.Second))
	for _, tr := range []model.Trigger{late, early} {
		if err := s.StoreTrigger(ctx, tr, false); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.AcquireNextTriggers(ctx, now.Add(3*time.Second), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 acquired triggers, got %d", len(got))
	}
	if got[0].Key() != early.Key() {
		t.Fatalf("expected the earlier trigger first, got %v", got[0].Key())
	}
}

func TestAcquireNextTriggersSkipsPausedGroup(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	s.StoreJob(ctx, job, false)
	trig := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(ctx, trig, false)

	if err := s.PauseTriggerGroup(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	got, err := s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected a paused group's triggers to be skipped, got %d", len(got))
	}

	if err := s.ResumeTriggerGroup(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if len(got) != 1 {
		t.Fatal("expected the trigger to be acquirable again after resume")
	}
}

func TestAcquireNextTriggersCatchesUpAMisfiredTrigger(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	if err := s.StoreJob(ctx, job, false); err != nil {
		t.Fatal(err)
	}

	overdue := trigger.NewSimple(model.NewKey("t1", "g"), job.Key, time.Now().Add(-2*time.Hour), time.Minute, trigger.RepeatForever)
	overdue.ComputeFirstFireTime(nil)
	if err := s.StoreTrigger(ctx, overdue, false); err != nil {
		t.Fatal(err)
	}

	got, err := s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected the overdue trigger to be caught up rather than acquired, got %d", len(got))
	}

	next, ok := overdue.GetNextFireTime()
	if !ok {
		t.Fatal("expected the misfired trigger to still have a next fire time")
	}
	if next.Before(time.Now().Add(-time.Minute)) {
		t.Fatalf("expected UpdateAfterMisfire to catch the trigger up to now, got %v", next)
	}

	got, err = s.AcquireNextTriggers(ctx, time.Now().Add(time.Hour), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the caught-up trigger to be acquirable, got %d", len(got))
	}
}

func TestTriggersFiredBlocksStatefulJobsUntilComplete(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := &model.JobDetail{Key: model.NewKey("stateful", "g"), Stateful: true, Durable: true}
	s.StoreJob(ctx, job, false)

	now := time.Now()
	trig := simpleTrigger("t1", "stateful", now)
	trig2 := simpleTrigger("t2", "stateful", now.Add(time.Second))
	s.StoreTrigger(ctx, trig, false)
	s.StoreTrigger(ctx, trig2, false)

	// Both triggers get acquired together (simulating one loop batch) before
	// either has fired, so the second one observes the first's block.
	acquired, err := s.AcquireNextTriggers(ctx, now.Add(time.Hour), 10, 0)
	if err != nil || len(acquired) != 2 {
		t.Fatalf("expected to acquire both triggers, got %v err=%v", acquired, err)
	}

	results, err := s.TriggersFired(ctx, acquired)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].NoFire {
		t.Fatal("expected the earlier trigger to fire")
	}
	if !results[1].NoFire {
		t.Fatal("expected the later trigger on the now-blocked stateful job to not fire")
	}

	if err := s.TriggeredJobComplete(ctx, trig, job, model.NoInstruction); err != nil {
		t.Fatal(err)
	}
	state, _ := s.GetTriggerState(ctx, trig2.Key())
	if state != model.TriggerStateNormal {
		t.Fatalf("expected the blocked trigger to unblock after completion, got %v", state)
	}
}

func TestTriggeredJobCompleteDeleteInstruction(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	s.StoreJob(ctx, job, false)
	trig := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(ctx, trig, false)

	if err := s.TriggeredJobComplete(ctx, trig, job, model.DeleteTrigger); err != nil {
		t.Fatal(err)
	}
	got, _ := s.RetrieveTrigger(ctx, trig.Key())
	if got != nil {
		t.Fatal("expected DeleteTrigger instruction to remove the trigger")
	}
}

func TestPauseAllAndResumeAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob("j1")
	s.StoreJob(ctx, job, false)
	trig := simpleTrigger("t1", "j1", time.Now())
	s.StoreTrigger(ctx, trig, false)

	if err := s.PauseAll(ctx); err != nil {
		t.Fatal(err)
	}
	state, _ := s.GetTriggerState(ctx, trig.Key())
	if state != model.TriggerStatePaused {
		t.Fatalf("expected PauseAll to pause every trigger, got %v", state)
	}

	if err := s.ResumeAll(ctx); err != nil {
		t.Fatal(err)
	}
	state, _ = s.GetTriggerState(ctx, trig.Key())
	if state != model.TriggerStateNormal {
		t.Fatalf("expected ResumeAll to restore NORMAL state, got %v", state)
	}
}

func TestJobKeysAndTriggerKeysFilterByGroup(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.StoreJob(ctx, &model.JobDetail{Key: model.NewKey("a", "g1"), Durable: true}, false)
	s.StoreJob(ctx, &model.JobDetail{Key: model.NewKey("b", "g2"), Durable: true}, false)

	keys, err := s.JobKeys(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].Name != "a" {
		t.Fatalf("expected only group g1's job, got %v", keys)
	}

	all, _ := s.JobKeys(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected both jobs when no group filter is given, got %v", all)
	}
}

func TestManualTriggerSuffixProducesDistinctValues(t *testing.T) {
	a := ManualTriggerSuffix()
	b := ManualTriggerSuffix()
	if a == b {
		t.Skip("extremely unlikely RNG collision; not a correctness failure")
	}
}
