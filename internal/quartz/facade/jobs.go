package facade

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
)

func (s *Scheduler) checkNotShutdown() error {
	if s.IsShutdown() {
		return model.NewSchedulerException(model.ErrSchedulerShutdown, "")
	}
	return nil
}

// ScheduleJob registers job (if not already durable-stored) and trig,
// returning trig's first computed fire time.
func (s *Scheduler) ScheduleJob(ctx context.Context, job *model.JobDetail, trig model.Trigger) (time.Time, error) {
	if err := s.checkNotShutdown(); err != nil {
		return time.Time{}, err
	}
	if trig.JobKey() != job.Key {
		return time.Time{}, model.NewSchedulerException(model.ErrInvalidTriggerBinding, trig.Key().String())
	}

	var cal model.Calendar
	if name := trig.CalendarName(); name != "" {
		c, err := s.store.RetrieveCalendar(ctx, name)
		if err != nil {
			return time.Time{}, err
		}
		if c == nil {
			return time.Time{}, model.NewSchedulerException(model.ErrCalendarNotFound, name)
		}
		cal = c
	}
	first, ok := trig.ComputeFirstFireTime(cal)
	if !ok {
		return time.Time{}, model.NewSchedulerException(model.ErrNeverFires, trig.Key().String())
	}

	existing, err := s.store.RetrieveJob(ctx, job.Key)
	if err != nil {
		return time.Time{}, err
	}
	if existing == nil {
		if err := s.store.StoreJobAndTrigger(ctx, job, trig); err != nil {
			return time.Time{}, err
		}
	} else {
		if err := s.store.StoreTrigger(ctx, trig, false); err != nil {
			return time.Time{}, err
		}
	}

	s.lr.NotifyJobScheduled(trig)
	s.signalIfEarlier(first)
	return first, nil
}

// ScheduleTrigger binds trig to an already-stored job.
func (s *Scheduler) ScheduleTrigger(ctx context.Context, trig model.Trigger) (time.Time, error) {
	if err := s.checkNotShutdown(); err != nil {
		return time.Time{}, err
	}
	job, err := s.store.RetrieveJob(ctx, trig.JobKey())
	if err != nil {
		return time.Time{}, err
	}
	if job == nil {
		return time.Time{}, model.NewSchedulerException(model.ErrInvalidArgument, "no such job "+trig.JobKey().String())
	}
	return s.ScheduleJob(ctx, job, trig)
}

// AddJob stores job without any trigger. Non-durable jobs must either be
// stored with replaceExisting=true onto an already-triggered job key or
// marked Durable.
func (s *Scheduler) AddJob(ctx context.Context, job *model.JobDetail, replaceExisting bool) error {
	if err := s.checkNotShutdown(); err != nil {
		return err
	}
	if !job.Durable && !replaceExisting {
		return model.NewSchedulerException(model.ErrNonDurableWithoutTrigger, job.Key.String())
	}
	if err := s.store.StoreJob(ctx, job, replaceExisting); err != nil {
		return err
	}
	s.lr.NotifyJobAdded(job)
	return nil
}

// DeleteJob unschedules every trigger referencing key, then removes the
// job itself. It aborts with ErrDeleteConflict if any trigger fails to
// unschedule, leaving the job and its remaining triggers in place.
func (s *Scheduler) DeleteJob(ctx context.Context, key model.Key) (bool, error) {
	if err := s.checkNotShutdown(); err != nil {
		return false, err
	}
	triggers, err := s.store.TriggersForJob(ctx, key)
	if err != nil {
		return false, err
	}
	for _, trig := range triggers {
		ok, err := s.store.RemoveTrigger(ctx, trig.Key())
		if err != nil {
			return false, model.NewSchedulerException(model.ErrDeleteConflict, err.Error())
		}
		if !ok {
			return false, model.NewSchedulerException(model.ErrDeleteConflict, trig.Key().String())
		}
		s.lr.NotifyJobUnscheduled(trig.Key())
	}

	ok, err := s.store.RemoveJob(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		s.lr.NotifyJobDeleted(key)
	}
	return ok, nil
}

// UnscheduleJob removes a single trigger. If that leaves a non-durable
// job triggerless, the store simply leaves the orphaned job behind;
// callers that care should pair this with TriggersForJob.
func (s *Scheduler) UnscheduleJob(ctx context.Context, triggerKey model.Key) (bool, error) {
	if err := s.checkNotShutdown(); err != nil {
		return false, err
	}
	ok, err := s.store.RemoveTrigger(ctx, triggerKey)
	if err != nil {
		return false, err
	}
	if ok {
		s.lr.NotifyJobUnscheduled(triggerKey)
	}
	return ok, nil
}

// RescheduleJob atomically swaps triggerKey's schedule for newTrig,
// returning newTrig's next fire time.
func (s *Scheduler) RescheduleJob(ctx context.Context, triggerKey model.Key, newTrig model.Trigger) (time.Time, error) {
	if err := s.checkNotShutdown(); err != nil {
		return time.Time{}, err
	}
	var cal model.Calendar
	if name := newTrig.CalendarName(); name != "" {
		c, err := s.store.RetrieveCalendar(ctx, name)
		if err != nil {
			return time.Time{}, err
		}
		cal = c
	}
	next, ok := newTrig.ComputeFirstFireTime(cal)
	if !ok {
		return time.Time{}, model.NewSchedulerException(model.ErrNeverFires, newTrig.Key().String())
	}
	replaced, err := s.store.ReplaceTrigger(ctx, triggerKey, newTrig)
	if err != nil {
		return time.Time{}, err
	}
	if !replaced {
		return time.Time{}, model.NewSchedulerException(model.ErrInvalidArgument, "no such trigger "+triggerKey.String())
	}
	s.lr.NotifyJobUnscheduled(triggerKey)
	s.lr.NotifyJobScheduled(newTrig)
	s.signalIfEarlier(next)
	return next, nil
}

// TriggerJob fires jobKey once, immediately, outside any regular
// schedule, via a one-shot SimpleTrigger in the reserved manual-trigger
// group. Trigger names collide with vanishingly small odds, but a
// collision is retried up to 100 times before giving up.
func (s *Scheduler) TriggerJob(ctx context.Context, jobKey model.Key, data model.JobDataMap) error {
	if err := s.checkNotShutdown(); err != nil {
		return err
	}
	job, err := s.store.RetrieveJob(ctx, jobKey)
	if err != nil {
		return err
	}
	if job == nil {
		return model.NewSchedulerException(model.ErrInvalidArgument, "no such job "+jobKey.String())
	}

	const maxAttempts = 100
	now := time.Now()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := fmt.Sprintf("MT_%d", rand.Int63())
		key := model.NewKey(name, model.ManualTriggerGroup)
		trig := trigger.NewSimple(key, jobKey, now, 0, 0)
		if data != nil {
			trig.SetJobDataOverlay(data)
		}
		err := s.store.StoreTrigger(ctx, trig, false)
		if err == nil {
			s.lr.NotifyJobScheduled(trig)
			s.signalIfEarlier(now)
			return nil
		}
		if err != model.ErrObjectAlreadyExists {
			return err
		}
	}
	return model.NewSchedulerException(model.ErrObjectAlreadyExists, "could not allocate a unique manual trigger name")
}

// InterruptJob asks every currently-executing instance of key's job to
// stop cooperatively.
func (s *Scheduler) InterruptJob(key model.Key) (int, error) {
	return s.tracker.Interrupt(key)
}

// GetCurrentlyExecutingJobs returns a snapshot of in-flight executions.
func (s *Scheduler) GetCurrentlyExecutingJobs() []*model.JobExecutionContext {
	return s.tracker.Executing()
}

func (s *Scheduler) GetJobDetail(ctx context.Context, key model.Key) (*model.JobDetail, error) {
	return s.store.RetrieveJob(ctx, key)
}

func (s *Scheduler) GetTrigger(ctx context.Context, key model.Key) (model.Trigger, error) {
	return s.store.RetrieveTrigger(ctx, key)
}

func (s *Scheduler) GetTriggerState(ctx context.Context, key model.Key) (model.TriggerState, error) {
	return s.store.GetTriggerState(ctx, key)
}

func (s *Scheduler) GetTriggersOfJob(ctx context.Context, jobKey model.Key) ([]model.Trigger, error) {
	return s.store.TriggersForJob(ctx, jobKey)
}

func (s *Scheduler) JobKeys(ctx context.Context, group string) ([]model.Key, error) {
	return s.store.JobKeys(ctx, group)
}

func (s *Scheduler) TriggerKeys(ctx context.Context, group string) ([]model.Key, error) {
	return s.store.TriggerKeys(ctx, group)
}

func (s *Scheduler) AddCalendar(ctx context.Context, name string, cal model.Calendar, replaceExisting bool) error {
	return s.store.StoreCalendar(ctx, name, cal, replaceExisting)
}

func (s *Scheduler) DeleteCalendar(ctx context.Context, name string) (bool, error) {
	return s.store.RemoveCalendar(ctx, name)
}

func (s *Scheduler) GetCalendar(ctx context.Context, name string) (model.Calendar, error) {
	return s.store.RetrieveCalendar(ctx, name)
}

func (s *Scheduler) PauseJob(ctx context.Context, key model.Key) error {
	if err := s.store.PauseJob(ctx, key); err != nil {
		return err
	}
	s.lr.NotifyJobPaused(key)
	return nil
}

func (s *Scheduler) ResumeJob(ctx context.Context, key model.Key) error {
	if err := s.store.ResumeJob(ctx, key); err != nil {
		return err
	}
	s.lr.NotifyJobResumed(key)
	s.signalIfEarlier(time.Time{})
	return nil
}

func (s *Scheduler) PauseJobGroup(ctx context.Context, group string) error {
	return s.store.PauseJobGroup(ctx, group)
}

func (s *Scheduler) ResumeJobGroup(ctx context.Context, group string) error {
	if err := s.store.ResumeJobGroup(ctx, group); err != nil {
		return err
	}
	s.signalIfEarlier(time.Time{})
	return nil
}

func (s *Scheduler) PauseTrigger(ctx context.Context, key model.Key) error {
	if err := s.store.PauseTrigger(ctx, key); err != nil {
		return err
	}
	s.lr.NotifyTriggerPaused(key)
	return nil
}

func (s *Scheduler) ResumeTrigger(ctx context.Context, key model.Key) error {
	if err := s.store.ResumeTrigger(ctx, key); err != nil {
		return err
	}
	s.lr.NotifyTriggerResumed(key)
	s.signalIfEarlier(time.Time{})
	return nil
}

func (s *Scheduler) PauseTriggerGroup(ctx context.Context, group string) error {
	return s.store.PauseTriggerGroup(ctx, group)
}

func (s *Scheduler) ResumeTriggerGroup(ctx context.Context, group string) error {
	if err := s.store.ResumeTriggerGroup(ctx, group); err != nil {
		return err
	}
	s.signalIfEarlier(time.Time{})
	return nil
}

func (s *Scheduler) PauseAll(ctx context.Context) error {
	return s.store.PauseAll(ctx)
}

func (s *Scheduler) ResumeAll(ctx context.Context) error {
	if err := s.store.ResumeAll(ctx); err != nil {
		return err
	}
	s.signalIfEarlier(time.Time{})
	return nil
}

// signalIfEarlier wakes the scheduling loop early if cand (the zero time
// means "something changed, just wake up and re-plan") might move the
// earliest due trigger sooner than the loop's current idle wait.
func (s *Scheduler) signalIfEarlier(cand time.Time) {
	if !s.cfg.SignalOnSchedulingChange {
		return
	}
	s.sig.SignalSchedulingChange(cand)
}
