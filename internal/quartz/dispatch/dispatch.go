// Package dispatch implements the Dispatcher collaborator (§4.3): it
// turns one TriggerFiredBundle into a JobExecutionContext, runs the
// trigger/job listener notification sequence, and submits the job body to
// the worker pool with panic-safe invocation.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/listener"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/workerpool"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// Submitter is the subset of workerpool.Pool the dispatcher needs.
type Submitter interface {
	Submit(ctx context.Context, t workerpool.Task) error
}

// Dispatcher wires an acquired, fired trigger through to an executing
// job instance.
type Dispatcher struct {
	store    store.JobStore
	pool     Submitter
	lr       *listener.Registry
	factory  model.JobFactory
	tracker  *listener.ExecutionTracker
	log      logx.Logger
}

func New(st store.JobStore, pool Submitter, lr *listener.Registry, factory model.JobFactory, tracker *listener.ExecutionTracker, log logx.Logger) *Dispatcher {
	return &Dispatcher{store: st, pool: pool, lr: lr, factory: factory, tracker: tracker, log: log}
}

// Dispatch runs the full fire sequence for one bundle: listener
// notification, job resolution, worker pool submission, and the
// store's post-execution instruction.
func (d *Dispatcher) Dispatch(ctx context.Context, bundle *store.TriggerFiredBundle) {
	execCtx := &model.JobExecutionContext{
		FireInstanceID:    uuid.NewString(),
		JobDetail:         bundle.JobDetail,
		Trigger:           bundle.Trigger,
		ScheduledFireTime: bundle.ScheduledFireTime,
		ActualFireTime:    bundle.ActualFireTime,
	}

	if veto := d.lr.NotifyTriggerFired(execCtx); veto {
		d.lr.NotifyJobVetoed(execCtx)
		d.lr.NotifyTriggerComplete(execCtx, model.NoInstruction)
		if err := d.store.TriggeredJobComplete(ctx, execCtx.Trigger, execCtx.JobDetail, model.NoInstruction); err != nil {
			d.lr.NotifySchedulerError("triggeredJobComplete failed", err)
		}
		return
	}

	job, err := d.factory.NewJob(bundle.JobDetail)
	if err != nil {
		d.completeWithError(ctx, execCtx, fmt.Errorf("resolve job: %w", err))
		return
	}
	execCtx.JobInstance = job

	d.lr.NotifyJobToBeExecuted(execCtx)

	task := workerpool.Task{
		Label:  bundle.JobDetail.Key.String(),
		Key:    bundle.JobDetail.Key.String(),
		Policy: overlapFor(bundle.JobDetail),
		Run: func(runCtx context.Context) error {
			return d.invoke(runCtx, execCtx)
		},
		OnDone: func(res workerpool.Result) {
			d.onDone(ctx, execCtx, res)
		},
	}

	if err := d.pool.Submit(ctx, task); err != nil {
		d.completeWithError(ctx, execCtx, fmt.Errorf("submit to worker pool: %w", err))
	}
}

func overlapFor(job *model.JobDetail) workerpool.OverlapPolicy {
	if job.Stateful {
		return workerpool.OverlapQueue
	}
	return workerpool.OverlapAllow
}

// invoke runs the job body with panic recovery, wrapping any panic into
// a model.JobExecutionException so it surfaces through the same path as
// an ordinary returned error.
func (d *Dispatcher) invoke(ctx context.Context, execCtx *model.JobExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("job panicked", logx.String("job", execCtx.JobDetail.Key.String()), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = &model.JobExecutionException{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	start := time.Now()
	err = execCtx.JobInstance.Execute(execCtx)
	execCtx.ActualFireTime = start
	return err
}

func (d *Dispatcher) onDone(ctx context.Context, execCtx *model.JobExecutionContext, res workerpool.Result) {
	execCtx.SetErr(res.Err)
	d.lr.NotifyJobWasExecuted(execCtx, res.Err)

	instruction := model.NoInstruction
	if jee, ok := asJobExecutionException(res.Err); ok {
		instruction = jee.Instruction
	}

	d.lr.NotifyTriggerComplete(execCtx, instruction)

	if err := d.store.TriggeredJobComplete(ctx, execCtx.Trigger, execCtx.JobDetail, instruction); err != nil {
		d.lr.NotifySchedulerError("triggeredJobComplete failed", err)
	}
}

func (d *Dispatcher) completeWithError(ctx context.Context, execCtx *model.JobExecutionContext, err error) {
	execCtx.SetErr(err)
	d.lr.NotifyJobWasExecuted(execCtx, err)
	d.lr.NotifyTriggerComplete(execCtx, model.NoInstruction)
	if serr := d.store.TriggeredJobComplete(ctx, execCtx.Trigger, execCtx.JobDetail, model.NoInstruction); serr != nil {
		d.lr.NotifySchedulerError("triggeredJobComplete failed", serr)
	}
}

func asJobExecutionException(err error) (*model.JobExecutionException, bool) {
	jee, ok := err.(*model.JobExecutionException)
	return jee, ok
}
