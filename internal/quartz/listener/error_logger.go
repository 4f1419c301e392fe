package listener

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// ErrorLogger is the built-in SchedulerListener that logs SchedulerError
// events. A repeatedly-failing JobStore can otherwise flood the log at
// dbFailureRetryInterval cadence, so emission is token-bucket throttled;
// suppressed occurrences are still counted and reported on the next
// admitted log line.
type ErrorLogger struct {
	log     logx.Logger
	limiter *rate.Limiter

	suppressed atomic.Uint64
}

// NewErrorLogger logs at most ratePerSec SchedulerError events per second
// (burst allows an initial burst of that many before throttling kicks in).
func NewErrorLogger(log logx.Logger, ratePerSec float64, burst int) *ErrorLogger {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &ErrorLogger{log: log, limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

func (l *ErrorLogger) SchedulerError(msg string, err error) {
	if l.limiter.Allow() {
		fields := []logx.Field{logx.Err(err)}
		if n := l.suppressed.Swap(0); n > 0 {
			fields = append(fields, logx.Uint64("suppressed", n))
		}
		l.log.Error(msg, fields...)
		return
	}
	l.suppressed.Add(1)
}

func (l *ErrorLogger) SchedulerStarted()      { l.log.Info("scheduler started") }
func (l *ErrorLogger) SchedulerStandby()      { l.log.Info("scheduler entered standby") }
func (l *ErrorLogger) SchedulerShuttingDown() { l.log.Info("scheduler shutting down") }
func (l *ErrorLogger) SchedulerShutdown()     { l.log.Info("scheduler shut down") }

func (l *ErrorLogger) JobScheduled(trig model.Trigger) {
	l.log.Debug("job scheduled", logx.String("trigger", trig.Key().String()), logx.String("job", trig.JobKey().String()))
}
func (l *ErrorLogger) JobUnscheduled(key model.Key) { l.log.Debug("job unscheduled", logx.String("trigger", key.String())) }
func (l *ErrorLogger) JobAdded(job *model.JobDetail) { l.log.Debug("job added", logx.String("job", job.Key.String())) }
func (l *ErrorLogger) JobDeleted(key model.Key)      { l.log.Debug("job deleted", logx.String("job", key.String())) }
func (l *ErrorLogger) JobPaused(key model.Key)       { l.log.Debug("job paused", logx.String("job", key.String())) }
func (l *ErrorLogger) JobResumed(key model.Key)      { l.log.Debug("job resumed", logx.String("job", key.String())) }
func (l *ErrorLogger) TriggerPaused(key model.Key)   { l.log.Debug("trigger paused", logx.String("trigger", key.String())) }
func (l *ErrorLogger) TriggerResumed(key model.Key)  { l.log.Debug("trigger resumed", logx.String("trigger", key.String())) }
