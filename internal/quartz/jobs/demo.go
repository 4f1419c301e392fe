package jobs

import (
	"sync"
	"sync/atomic"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// LogJob logs its own fire, merging the job's and trigger's data maps.
// It registers itself under the "log" job type.
type LogJob struct {
	Log logx.Logger
}

func (j *LogJob) Execute(ctx *model.JobExecutionContext) error {
	data := model.MergedJobDataMap(ctx.JobDetail, ctx.Trigger)
	j.Log.Info("job fired",
		logx.String("job", ctx.JobDetail.Key.String()),
		logx.String("trigger", ctx.Trigger.Key().String()),
		logx.Any("data", data),
	)
	return nil
}

// CounterJob increments a shared counter every fire and supports
// cooperative interruption, making it useful for exercising
// InterruptJob in tests.
type CounterJob struct {
	Count     *int64
	interrupt chan struct{}
	once      sync.Once
}

func NewCounterJob(count *int64) *CounterJob {
	return &CounterJob{Count: count, interrupt: make(chan struct{})}
}

func (j *CounterJob) Execute(ctx *model.JobExecutionContext) error {
	select {
	case <-j.interrupt:
		return nil
	default:
	}
	atomic.AddInt64(j.Count, 1)
	return nil
}

func (j *CounterJob) Interrupt() error {
	j.once.Do(func() { close(j.interrupt) })
	return nil
}

var _ model.Interruptible = (*CounterJob)(nil)

// RegisterDemoJobs registers the example job types this package ships
// under "log" and "counter" into r.
func RegisterDemoJobs(r *Registry, log logx.Logger, counter *int64) {
	r.Register("log", func() model.Job { return &LogJob{Log: log} })
	r.Register("counter", func() model.Job { return NewCounterJob(counter) })
}
