// Package listener implements the ListenerRegistry collaborator (§4.4):
// name- or position-keyed lists of job, trigger, and scheduler listeners,
// split into a "global" sublist (applies to every job/trigger) and a
// name-keyed sublist matched against the job's or trigger's key name
// (the key's group is not consulted), plus the two built-in listeners
// (ExecutionTracker, ErrorLogger) every facade registers by default.
package listener

import (
	"sync"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// JobListener observes a job's execution lifecycle. It cannot veto a
// fire: only TriggerListener.TriggerFired can, and JobExecutionVetoed
// reports such a veto to job listeners.
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx *model.JobExecutionContext)
	JobExecutionVetoed(ctx *model.JobExecutionContext)
	JobWasExecuted(ctx *model.JobExecutionContext, jobErr error)
}

// TriggerListener observes a trigger firing. TriggerFired may veto the
// execution by returning true.
type TriggerListener interface {
	Name() string
	TriggerFired(ctx *model.JobExecutionContext) (veto bool)
	TriggerMisfired(trig model.Trigger)
	TriggerComplete(ctx *model.JobExecutionContext, instruction model.InstructionCode)
}

// SchedulerListener observes scheduler-wide lifecycle and error events.
type SchedulerListener interface {
	SchedulerStarted()
	SchedulerStandby()
	SchedulerShuttingDown()
	SchedulerShutdown()
	SchedulerError(msg string, err error)
	JobScheduled(trig model.Trigger)
	JobUnscheduled(key model.Key)
	JobAdded(job *model.JobDetail)
	JobDeleted(key model.Key)
	JobPaused(key model.Key)
	JobResumed(key model.Key)
	TriggerPaused(key model.Key)
	TriggerResumed(key model.Key)
}

// Registry holds every registered listener, split into global sublists
// and name-keyed maps; a name-keyed listener applies to every job or
// trigger whose key name matches, whatever its group.
type Registry struct {
	mu sync.RWMutex

	globalJob     []JobListener
	jobByName     map[string]JobListener
	globalTrigger []TriggerListener
	triggerByName map[string]TriggerListener
	scheduler     []SchedulerListener
}

func New() *Registry {
	return &Registry{
		jobByName:     map[string]JobListener{},
		triggerByName: map[string]TriggerListener{},
	}
}

func (r *Registry) AddGlobalJobListener(l JobListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalJob = append(r.globalJob, l)
}

func (r *Registry) AddJobListener(name string, l JobListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobByName[name] = l
}

func (r *Registry) RemoveJobListener(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobByName[name]; !ok {
		return false
	}
	delete(r.jobByName, name)
	return true
}

func (r *Registry) AddGlobalTriggerListener(l TriggerListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalTrigger = append(r.globalTrigger, l)
}

func (r *Registry) AddTriggerListener(name string, l TriggerListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggerByName[name] = l
}

func (r *Registry) RemoveTriggerListener(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.triggerByName[name]; !ok {
		return false
	}
	delete(r.triggerByName, name)
	return true
}

func (r *Registry) AddSchedulerListener(l SchedulerListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduler = append(r.scheduler, l)
}

func (r *Registry) RemoveSchedulerListener(l SchedulerListener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.scheduler {
		if existing == l {
			r.scheduler = append(r.scheduler[:i], r.scheduler[i+1:]...)
			return true
		}
	}
	return false
}

// jobListenersFor returns a stable snapshot: every global listener, then
// the job's own name-bound listener if one is registered. Copied under
// lock so callers never iterate while a concurrent Add/Remove mutates the
// registry.
func (r *Registry) jobListenersFor(job *model.JobDetail) []JobListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JobListener, len(r.globalJob), len(r.globalJob)+1)
	copy(out, r.globalJob)
	if job != nil {
		if l, ok := r.jobByName[job.Key.Name]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *Registry) triggerListenersFor(trig model.Trigger) []TriggerListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TriggerListener, len(r.globalTrigger), len(r.globalTrigger)+1)
	copy(out, r.globalTrigger)
	if trig != nil {
		if l, ok := r.triggerByName[trig.Key().Name]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *Registry) schedulerListeners() []SchedulerListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SchedulerListener, len(r.scheduler))
	copy(out, r.scheduler)
	return out
}

// NotifyTriggerFired calls TriggerFired on every applicable trigger
// listener, stopping and reporting veto=true as soon as one vetoes.
func (r *Registry) NotifyTriggerFired(ctx *model.JobExecutionContext) (veto bool) {
	for _, l := range r.triggerListenersFor(ctx.Trigger) {
		if l.TriggerFired(ctx) {
			return true
		}
	}
	return false
}

func (r *Registry) NotifyTriggerMisfired(trig model.Trigger) {
	for _, l := range r.triggerListenersFor(trig) {
		l.TriggerMisfired(trig)
	}
}

func (r *Registry) NotifyTriggerComplete(ctx *model.JobExecutionContext, instruction model.InstructionCode) {
	for _, l := range r.triggerListenersFor(ctx.Trigger) {
		l.TriggerComplete(ctx, instruction)
	}
}

func (r *Registry) NotifyJobToBeExecuted(ctx *model.JobExecutionContext) {
	for _, l := range r.jobListenersFor(ctx.JobDetail) {
		l.JobToBeExecuted(ctx)
	}
}

func (r *Registry) NotifyJobVetoed(ctx *model.JobExecutionContext) {
	for _, l := range r.jobListenersFor(ctx.JobDetail) {
		l.JobExecutionVetoed(ctx)
	}
}

func (r *Registry) NotifyJobWasExecuted(ctx *model.JobExecutionContext, jobErr error) {
	for _, l := range r.jobListenersFor(ctx.JobDetail) {
		l.JobWasExecuted(ctx, jobErr)
	}
}

func (r *Registry) NotifySchedulerError(msg string, err error) {
	for _, l := range r.schedulerListeners() {
		l.SchedulerError(msg, err)
	}
}

func (r *Registry) NotifySchedulerStarted() {
	for _, l := range r.schedulerListeners() {
		l.SchedulerStarted()
	}
}

func (r *Registry) NotifySchedulerStandby() {
	for _, l := range r.schedulerListeners() {
		l.SchedulerStandby()
	}
}

func (r *Registry) NotifySchedulerShuttingDown() {
	for _, l := range r.schedulerListeners() {
		l.SchedulerShuttingDown()
	}
}

func (r *Registry) NotifySchedulerShutdown() {
	for _, l := range r.schedulerListeners() {
		l.SchedulerShutdown()
	}
}

func (r *Registry) NotifyJobScheduled(trig model.Trigger) {
	for _, l := range r.schedulerListeners() {
		l.JobScheduled(trig)
	}
}

func (r *Registry) NotifyJobUnscheduled(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.JobUnscheduled(key)
	}
}

func (r *Registry) NotifyJobAdded(job *model.JobDetail) {
	for _, l := range r.schedulerListeners() {
		l.JobAdded(job)
	}
}

func (r *Registry) NotifyJobDeleted(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.JobDeleted(key)
	}
}

func (r *Registry) NotifyJobPaused(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.JobPaused(key)
	}
}

func (r *Registry) NotifyJobResumed(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.JobResumed(key)
	}
}

func (r *Registry) NotifyTriggerPaused(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.TriggerPaused(key)
	}
}

func (r *Registry) NotifyTriggerResumed(key model.Key) {
	for _, l := range r.schedulerListeners() {
		l.TriggerResumed(key)
	}
}
