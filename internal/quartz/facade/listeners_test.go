package facade

import (
	"testing"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

type stubJobListener struct {
	name string
	toBeExecuted int
}

func (l *stubJobListener) Name() string { return l.name }
func (l *stubJobListener) JobToBeExecuted(ctx *model.JobExecutionContext) { l.toBeExecuted++ }
func (l *stubJobListener) JobExecutionVetoed(ctx *model.JobExecutionContext) {}
func (l *stubJobListener) JobWasExecuted(ctx *model.JobExecutionContext, jobErr error) {}

func TestAddAndRemoveJobListenerDelegatesToRegistry(t *testing.T) {
	s := newTestScheduler(t, Config{})
	l := &stubJobListener{name: "x"}
	s.AddJobListener("x", l)

	s.Listeners().NotifyJobToBeExecuted(&model.JobExecutionContext{JobDetail: &model.JobDetail{Key: model.NewKey("j", "g")}})
	// A name-bound listener only fires for a job whose key.Name matches its
	// registered name; "j" != "x" so it must not have fired here.
	if l.toBeExecuted != 0 {
		t.Fatalf("expected no notification for a non-matching job name, got %d", l.toBeExecuted)
	}

	s.Listeners().NotifyJobToBeExecuted(&model.JobExecutionContext{JobDetail: &model.JobDetail{Key: model.NewKey("x", "g")}})
	if l.toBeExecuted != 1 {
		t.Fatalf("expected one notification for the matching job name, got %d", l.toBeExecuted)
	}

	if !s.RemoveJobListener("x") {
		t.Fatal("expected RemoveJobListener to report true")
	}
	if s.RemoveJobListener("x") {
		t.Fatal("expected a second removal to report false")
	}
}

type stubSchedulerListener struct{ started int }

func (l *stubSchedulerListener) SchedulerStarted()           { l.started++ }
func (*stubSchedulerListener) SchedulerStandby()              {}
func (*stubSchedulerListener) SchedulerShuttingDown()         {}
func (*stubSchedulerListener) SchedulerShutdown()             {}
func (*stubSchedulerListener) SchedulerError(string, error)   {}
func (*stubSchedulerListener) JobScheduled(model.Trigger)     {}
func (*stubSchedulerListener) JobUnscheduled(model.Key)       {}
func (*stubSchedulerListener) JobAdded(*model.JobDetail)      {}
func (*stubSchedulerListener) JobDeleted(model.Key)           {}
func (*stubSchedulerListener) JobPaused(model.Key)            {}
func (*stubSchedulerListener) JobResumed(model.Key)           {}
func (*stubSchedulerListener) TriggerPaused(model.Key)        {}
func (*stubSchedulerListener) TriggerResumed(model.Key)       {}

func TestAddAndRemoveSchedulerListener(t *testing.T) {
	s := newTestScheduler(t, Config{})
	l := &stubSchedulerListener{}
	s.AddSchedulerListener(l)
	s.Listeners().NotifySchedulerStarted()
	if l.started != 1 {
		t.Fatalf("expected 1 notification, got %d", l.started)
	}

	if !s.RemoveSchedulerListener(l) {
		t.Fatal("expected RemoveSchedulerListener to report true")
	}
	s.Listeners().NotifySchedulerStarted()
	if l.started != 1 {
		t.Fatalf("expected no further notifications after removal, got %d", l.started)
	}
}
