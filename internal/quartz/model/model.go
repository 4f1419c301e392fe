// Package model defines the scheduler's core data types: job and trigger
// identity, payload, and the per-fire execution context. It has no
// dependency on any particular store or worker pool implementation.
package model

import (
	"fmt"
	"time"
)

// DefaultGroup is the canonical group name any nil/empty group is
// normalised to before reaching the store.
const DefaultGroup = "DEFAULT"

// ManualTriggerGroup is the reserved group used for triggerJob-generated
// one-shot triggers.
const ManualTriggerGroup = "MANUAL_TRIGGER"

// Key identifies a JobDetail or Trigger by (name, group).
type Key struct {
	Name  string
	Group string
}

// NewKey canonicalises an empty group to DefaultGroup.
func NewKey(name, group string) Key {
	if group == "" {
		group = DefaultGroup
	}
	return Key{Name: name, Group: group}
}

func (k Key) String() string { return fmt.Sprintf("%s.%s", k.Group, k.Name) }

// JobDataMap is a string-keyed payload carried by jobs and triggers.
type JobDataMap map[string]any

// Clone returns a shallow copy.
func (m JobDataMap) Clone() JobDataMap {
	if m == nil {
		return nil
	}
	cp := make(JobDataMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Job is the user-supplied unit of work. Implementations that also
// implement Interruptible may be cooperatively interrupted.
type Job interface {
	Execute(ctx *JobExecutionContext) error
}

// Interruptible is implemented by job instances that support cooperative
// interruption via Interrupt.
type Interruptible interface {
	Interrupt() error
}

// JobFactory resolves a JobDetail to a runnable Job instance.
type JobFactory interface {
	NewJob(detail *JobDetail) (Job, error)
}

// JobDetail is a job's identity, implementation reference, and payload.
type JobDetail struct {
	Key Key

	// JobType identifies which JobFactory-registered implementation backs
	// this detail (analogous to a Java job class name).
	JobType string

	JobData JobDataMap

	// Durable jobs may exist without any trigger referencing them.
	Durable bool
	// Stateful jobs forbid concurrent executions of the same JobDetail.
	Stateful bool
	// RequestsRecovery marks jobs that should be re-fired after an
	// abnormal scheduler restart while they were executing.
	RequestsRecovery bool

	Description string
}

func (d *JobDetail) Clone() *JobDetail {
	if d == nil {
		return nil
	}
	cp := *d
	cp.JobData = d.JobData.Clone()
	return &cp
}

// TriggerState is the lifecycle state of a Trigger as surfaced by
// getTriggerState. Transitions are owned solely by the store.
type TriggerState int

const (
	TriggerStateNone TriggerState = iota
	TriggerStateNormal
	TriggerStatePaused
	TriggerStateComplete
	TriggerStateError
	TriggerStateBlocked
	TriggerStateAcquired
)

func (s TriggerState) String() string {
	switch s {
	case TriggerStateNormal:
		return "NORMAL"
	case TriggerStatePaused:
		return "PAUSED"
	case TriggerStateComplete:
		return "COMPLETE"
	case TriggerStateError:
		return "ERROR"
	case TriggerStateBlocked:
		return "BLOCKED"
	case TriggerStateAcquired:
		return "ACQUIRED"
	default:
		return "NONE"
	}
}

// MisfireInstruction is a trigger's policy for recovering from a fire time
// that elapsed without the scheduler acting on it.
type MisfireInstruction int

const (
	// MisfireSmartPolicy lets the concrete trigger kind choose.
	MisfireSmartPolicy MisfireInstruction = iota
	// MisfireIgnore re-fires at every missed occurrence's original time is
	// not attempted; the trigger simply recomputes its next fire time as
	// if nothing happened.
	MisfireIgnore
	// MisfireFireOnceNow fires exactly once immediately, then resumes
	// normal cadence from now.
	MisfireFireOnceNow
	// MisfireDoNothing silently advances to the next future fire time
	// without firing for the missed occurrence(s).
	MisfireDoNothing
)

// InstructionCode steers the store's follow-up action on a trigger after
// a job execution (or an exception raised from one) completes.
type InstructionCode int

const (
	NoInstruction InstructionCode = iota
	ReExecuteJob
	SetTriggerComplete
	DeleteTrigger
	SetAllJobTriggersComplete
	SetTriggerError
	SetAllJobTriggersError
)

func (c InstructionCode) String() string {
	switch c {
	case ReExecuteJob:
		return "RE_EXECUTE_JOB"
	case SetTriggerComplete:
		return "SET_TRIGGER_COMPLETE"
	case DeleteTrigger:
		return "DELETE_TRIGGER"
	case SetAllJobTriggersComplete:
		return "SET_ALL_JOB_TRIGGERS_COMPLETE"
	case SetTriggerError:
		return "SET_TRIGGER_ERROR"
	case SetAllJobTriggersError:
		return "SET_ALL_JOB_TRIGGERS_ERROR"
	default:
		return "NO_INSTRUCTION"
	}
}

// Calendar is a predicate on time that excludes windows from firing.
type Calendar interface {
	// IsTimeIncluded reports whether t is NOT excluded by this calendar.
	IsTimeIncluded(t time.Time) bool
	// NextIncludedTime returns the first time at or after t not excluded
	// by this calendar.
	NextIncludedTime(t time.Time) time.Time
}

// Trigger is the abstract schedule-algebra contract every concrete
// trigger kind (cron, interval, one-shot, ...) implements. The core never
// assumes anything about how fire times are computed.
type Trigger interface {
	Key() Key
	JobKey() Key

	// CalendarName is the optional exclusion-calendar name, or "".
	CalendarName() string

	Priority() int
	MisfirePolicy() MisfireInstruction
	// Volatile triggers are excluded from durable recovery.
	Volatile() bool

	JobDataOverlay() JobDataMap

	// ComputeFirstFireTime returns the first time this trigger should
	// fire given the supplied exclusion calendar (nil if none), or the
	// zero time with ok=false if it will never fire.
	ComputeFirstFireTime(cal Calendar) (t time.Time, ok bool)

	// GetNextFireTime returns the currently computed next fire time, or
	// ok=false if there is none (trigger exhausted).
	GetNextFireTime() (t time.Time, ok bool)
	// GetPreviousFireTime returns the last time this trigger fired, if any.
	GetPreviousFireTime() (t time.Time, ok bool)

	// Triggered advances the trigger's internal state after a fire,
	// recomputing its next fire time against cal.
	Triggered(cal Calendar)

	// MayFireAgain reports whether GetNextFireTime can still return ok=true
	// after the most recent Triggered call.
	MayFireAgain() bool

	// UpdateAfterMisfire applies this trigger's misfire policy, mutating
	// its next fire time (or exhausting it) when a fire time elapsed
	// without the scheduler acting on it.
	UpdateAfterMisfire(cal Calendar)
}

// JobExecutionContext is the per-fire instance passed to a job's Execute
// method and to every listener callback for that fire.
type JobExecutionContext struct {
	FireInstanceID string

	JobDetail *JobDetail
	Trigger   Trigger

	ScheduledFireTime time.Time
	ActualFireTime    time.Time

	JobInstance Job

	// Result is a mutable slot the job body may populate; listeners
	// observe it after the job returns.
	Result any

	// err is set by the dispatcher if the job body returned an error.
	// Use Err()/SetErr to access it so zero-value contexts stay safe.
	err error
}

func (c *JobExecutionContext) Err() error { return c.err }
func (c *JobExecutionContext) SetErr(err error) { c.err = err }

// MergedJobDataMap overlays the trigger's job-data onto the job's own,
// trigger fields winning on conflict. Neither the facade nor the
// dispatcher merges the maps when building a JobExecutionContext; a job
// that wants the combined view calls this itself.
func MergedJobDataMap(detail *JobDetail, trig Trigger) JobDataMap {
	out := JobDataMap{}
	if detail != nil {
		for k, v := range detail.JobData {
			out[k] = v
		}
	}
	if trig != nil {
		for k, v := range trig.JobDataOverlay() {
			out[k] = v
		}
	}
	return out
}
