package listener

import (
	"testing"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

type recordingJobListener struct {
	name        string
	toBeExec    int
	vetoed      int
	wasExecuted int
	vetoNext    bool
}

func (l *recordingJobListener) Name() string { return l.name }
func (l *recordingJobListener) JobToBeExecuted(ctx *model.JobExecutionContext) { l.toBeExec++ }
func (l *recordingJobListener) JobExecutionVetoed(ctx *model.JobExecutionContext) { l.vetoed++ }
func (l *recordingJobListener) JobWasExecuted(ctx *model.JobExecutionContext, jobErr error) {
	l.wasExecuted++
}

type recordingTriggerListener struct {
	name string
	veto bool
	hits int
}

func (l *recordingTriggerListener) Name() string { return l.name }
func (l *recordingTriggerListener) TriggerFired(ctx *model.JobExecutionContext) bool {
	l.hits++
	return l.veto
}
func (l *recordingTriggerListener) TriggerMisfired(trig model.Trigger)                        {}
func (l *recordingTriggerListener) TriggerComplete(ctx *model.JobExecutionContext, i model.InstructionCode) {}

type recordingSchedulerListener struct {
	started, standby, shuttingDown, shutdown int
	lastErrMsg                               string
}

func (l *recordingSchedulerListener) SchedulerStarted()      { l.started++ }
func (l *recordingSchedulerListener) SchedulerStandby()      { l.standby++ }
func (l *recordingSchedulerListener) SchedulerShuttingDown() { l.shuttingDown++ }
func (l *recordingSchedulerListener) SchedulerShutdown()     { l.shutdown++ }
func (l *recordingSchedulerListener) SchedulerError(msg string, err error) { l.lastErrMsg = msg }
func (l *recordingSchedulerListener) JobScheduled(trig model.Trigger)      {}
func (l *recordingSchedulerListener) JobUnscheduled(key model.Key)        {}
func (l *recordingSchedulerListener) JobAdded(job *model.JobDetail)       {}
func (l *recordingSchedulerListener) JobDeleted(key model.Key)            {}
func (l *recordingSchedulerListener) JobPaused(key model.Key)             {}
func (l *recordingSchedulerListener) JobResumed(key model.Key)            {}
func (l *recordingSchedulerListener) TriggerPaused(key model.Key)         {}
func (l *recordingSchedulerListener) TriggerResumed(key model.Key)        {}

func TestRegistryGlobalAndNamedJobListenersBothFire(t *testing.T) {
	r := New()
	global := &recordingJobListener{name: "global"}
	named := &recordingJobListener{name: "named"}
	r.AddGlobalJobListener(global)
	r.AddJobListener("target", named)

	detail := &model.JobDetail{Key: model.NewKey("target", "g")}
	ctx := &model.JobExecutionContext{JobDetail: detail}
	r.NotifyJobToBeExecuted(ctx)

	if global.toBeExec != 1 {
		t.Fatalf("expected global listener to fire once, got %d", global.toBeExec)
	}
	if named.toBeExec != 1 {
		t.Fatalf("expected named listener to fire once, got %d", named.toBeExec)
	}
}

func TestRegistryNamedJobListenerSkippedForOtherJobs(t *testing.T) {
	r := New()
	named := &recordingJobListener{name: "named"}
	r.AddJobListener("target", named)

	other := &model.JobDetail{Key: model.NewKey("other", "g")}
	r.NotifyJobToBeExecuted(&model.JobExecutionContext{JobDetail: other})

	if named.toBeExec != 0 {
		t.Fatalf("expected named listener bound to a different job to be skipped, got %d calls", named.toBeExec)
	}
}

func TestRegistryRemoveJobListener(t *testing.T) {
	r := New()
	r.AddJobListener("target", &recordingJobListener{name: "named"})
	if !r.RemoveJobListener("target") {
		t.Fatal("expected RemoveJobListener to report success for a registered name")
	}
	if r.RemoveJobListener("target") {
		t.Fatal("expected a second RemoveJobListener for the same name to report false")
	}
}

func TestRegistryTriggerFiredVetoStopsAtFirstVeto(t *testing.T) {
	r := New()
	first := &recordingTriggerListener{name: "first", veto: true}
	second := &recordingTriggerListener{name: "second"}
	r.AddGlobalTriggerListener(first)
	r.AddGlobalTriggerListener(second)

	veto := r.NotifyTriggerFired(&model.JobExecutionContext{})
	if !veto {
		t.Fatal("expected NotifyTriggerFired to report veto=true")
	}
	if second.hits != 0 {
		t.Fatal("expected the second listener to be skipped after the first vetoes")
	}
}

func TestRegistryRemoveSchedulerListener(t *testing.T) {
	r := New()
	l := &recordingSchedulerListener{}
	r.AddSchedulerListener(l)
	r.NotifySchedulerStarted()
	if l.started != 1 {
		t.Fatalf("expected scheduler listener to be notified, got %d", l.started)
	}
	if !r.RemoveSchedulerListener(l) {
		t.Fatal("expected RemoveSchedulerListener to report success")
	}
	r.NotifySchedulerStarted()
	if l.started != 1 {
		t.Fatal("expected a removed scheduler listener to stop receiving notifications")
	}
}

func TestRegistryNotifySchedulerShuttingDown(t *testing.T) {
	r := New()
	l := &recordingSchedulerListener{}
	r.AddSchedulerListener(l)
	r.NotifySchedulerShuttingDown()
	if l.shuttingDown != 1 {
		t.Fatalf("expected SchedulerShuttingDown to be notified once, got %d", l.shuttingDown)
	}
	r.NotifySchedulerShutdown()
	if l.shutdown != 1 {
		t.Fatalf("expected SchedulerShutdown to be notified once, got %d", l.shutdown)
	}
}
