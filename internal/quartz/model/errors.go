package model

import "errors"

// Error taxonomy (§7 error handling design). These are kinds, not classes:
// callers match with errors.Is, and the dispatcher/loop distinguish
// "surfaced to caller" from "escalated to SchedulerError listeners" based
// on which of these a failure wraps.
var (
	ErrSchedulerShutdown = errors.New("scheduler: operation invoked after shutdown")
	ErrInvalidArgument   = errors.New("scheduler: invalid argument")
	ErrNeverFires        = errors.New("scheduler: trigger's first fire time is never")
	ErrCalendarNotFound  = errors.New("scheduler: referenced calendar not found")
	ErrObjectAlreadyExists = errors.New("scheduler: object already exists")
	ErrInvalidTriggerBinding = errors.New("scheduler: trigger is already bound to a different job")
	ErrNonDurableWithoutTrigger = errors.New("scheduler: non-durable job requires at least one trigger")
	ErrDeleteConflict    = errors.New("scheduler: could not unschedule all triggers for job")
	ErrDuplicateScheduler = errors.New("scheduler: duplicate scheduler name in repository")
	ErrJobNotInterruptible = errors.New("scheduler: job instance does not support interruption")

	// ErrStoreTransient is returned by a JobStore to signal a recoverable
	// failure during acquisition; the loop backs off and retries
	// indefinitely until shutdown.
	ErrStoreTransient = errors.New("jobstore: transient failure")
	// ErrStoreFatal is returned by a JobStore to signal an unrecoverable
	// failure; escalated to SchedulerError listeners and the loop halts.
	ErrStoreFatal = errors.New("jobstore: fatal failure")
)

// JobExecutionException wraps an error raised from a job body, carrying
// the instruction code that should steer the store's follow-up action.
type JobExecutionException struct {
	Err         error
	Instruction InstructionCode
	// Refire mirrors quartz's refireImmediately flag. The dispatcher does
	// not read it; re-execution is requested through Instruction
	// (ReExecuteJob).
	Refire bool
}

func (e *JobExecutionException) Error() string {
	if e.Err == nil {
		return "job execution exception"
	}
	return e.Err.Error()
}

func (e *JobExecutionException) Unwrap() error { return e.Err }

// ListenerException wraps an error thrown from a listener callback.
type ListenerException struct {
	ListenerName string
	Category     string // "job", "trigger", or "scheduler"
	Err          error
}

func (e *ListenerException) Error() string {
	return e.Category + " listener " + e.ListenerName + ": " + e.Err.Error()
}

func (e *ListenerException) Unwrap() error { return e.Err }

// SchedulerException is returned by facade operations. Kind identifies
// which of the sentinel errors above this wraps, for callers that want to
// switch on it without errors.Is chains.
type SchedulerException struct {
	Kind error
	Msg  string
}

func (e *SchedulerException) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *SchedulerException) Unwrap() error { return e.Kind }

func NewSchedulerException(kind error, msg string) *SchedulerException {
	return &SchedulerException{Kind: kind, Msg: msg}
}
