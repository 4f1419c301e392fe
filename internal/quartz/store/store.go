// Package store defines the JobStore collaborator contract (§6 of the
// design): the durable set of jobs, triggers, and calendars, acquisition
// of due triggers, and pause-state bookkeeping. The scheduling core only
// ever talks to this interface -- concrete implementations (memstore,
// sqlitestore) are collaborators, not core.
package store

import (
	"context"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// FireResult is the outcome of trying to fire one acquired trigger,
// returned by TriggersFired.
type FireResult struct {
	Trigger model.Trigger
	Bundle  *TriggerFiredBundle
	// NoFire is true when the trigger vanished or became paused between
	// acquisition and firing, when its job no longer exists, or when its
	// stateful job is already executing (the trigger is then BLOCKED);
	// Bundle is nil in that case.
	NoFire bool
	Err    error
}

// TriggerFiredBundle is the resolved state the dispatcher needs to start
// an execution: the job, the applicable calendar, and the scheduled vs.
// actual fire times.
type TriggerFiredBundle struct {
	JobDetail         *model.JobDetail
	Trigger           model.Trigger
	Calendar          model.Calendar
	ScheduledFireTime time.Time
	ActualFireTime    time.Time
	// JobIsRecovering marks a re-delivery after an abnormal restart for a
	// RequestsRecovery job.
	JobIsRecovering bool
}

// JobStore is the durable collaborator the scheduling core delegates all
// job/trigger/calendar persistence and pause-state to. Implementations
// must treat every call as the serialisation point for trigger state: the
// core never holds a store transaction across listener or job-body code.
type JobStore interface {
	// Attributes.
	SupportsPersistence() bool
	Clustered() bool

	// Job CRUD.
	StoreJob(ctx context.Context, job *model.JobDetail, replaceExisting bool) error
	RetrieveJob(ctx context.Context, key model.Key) (*model.JobDetail, error)
	RemoveJob(ctx context.Context, key model.Key) (bool, error)

	// Trigger CRUD.
	StoreTrigger(ctx context.Context, trig model.Trigger, replaceExisting bool) error
	StoreJobAndTrigger(ctx context.Context, job *model.JobDetail, trig model.Trigger) error
	RetrieveTrigger(ctx context.Context, key model.Key) (model.Trigger, error)
	RemoveTrigger(ctx context.Context, key model.Key) (bool, error)
	ReplaceTrigger(ctx context.Context, key model.Key, newTrig model.Trigger) (bool, error)
	TriggersForJob(ctx context.Context, jobKey model.Key) ([]model.Trigger, error)
	GetTriggerState(ctx context.Context, key model.Key) (model.TriggerState, error)

	// Calendars.
	StoreCalendar(ctx context.Context, name string, cal model.Calendar, replaceExisting bool) error
	RetrieveCalendar(ctx context.Context, name string) (model.Calendar, error)
	RemoveCalendar(ctx context.Context, name string) (bool, error)

	// Acquisition and firing -- the SchedulingLoop's only way in.
	//
	// AcquireNextTriggers atomically selects up to maxCount triggers whose
	// next fire time is <= noLaterThan+timeWindow, moves them to ACQUIRED,
	// and returns them ordered by (nextFireTime asc, priority desc,
	// identity). A trigger found misfired is run through its misfire
	// policy here and left NORMAL instead of being acquired.
	// A transient failure must be returned wrapped in model.ErrStoreTransient.
	AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]model.Trigger, error)
	// ReleaseAcquiredTrigger returns an acquired trigger to NORMAL without
	// firing it (used when a sooner candidate preempts an in-flight wait).
	ReleaseAcquiredTrigger(ctx context.Context, trig model.Trigger) error
	// TriggersFired resolves each acquired trigger to a fire/no-fire/error
	// outcome and advances fired triggers; misfire policy is not applied
	// here (see AcquireNextTriggers).
	TriggersFired(ctx context.Context, triggers []model.Trigger) ([]FireResult, error)
	// TriggeredJobComplete persists the trigger's post-execution state and,
	// for stateful jobs, releases the concurrency lock.
	TriggeredJobComplete(ctx context.Context, trig model.Trigger, job *model.JobDetail, instruction model.InstructionCode) error

	// Pause / resume.
	PauseTrigger(ctx context.Context, key model.Key) error
	ResumeTrigger(ctx context.Context, key model.Key) error
	PauseTriggerGroup(ctx context.Context, group string) error
	ResumeTriggerGroup(ctx context.Context, group string) error
	PauseJob(ctx context.Context, key model.Key) error
	ResumeJob(ctx context.Context, key model.Key) error
	PauseJobGroup(ctx context.Context, group string) error
	ResumeJobGroup(ctx context.Context, group string) error
	PauseAll(ctx context.Context) error
	ResumeAll(ctx context.Context) error
	GetPausedTriggerGroups(ctx context.Context) ([]string, error)
	IsJobGroupPaused(ctx context.Context, group string) (bool, error)
	IsTriggerGroupPaused(ctx context.Context, group string) (bool, error)

	// Listing.
	JobKeys(ctx context.Context, group string) ([]model.Key, error)
	TriggerKeys(ctx context.Context, group string) ([]model.Key, error)

	// Lifecycle.
	SchedulerStarted(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
