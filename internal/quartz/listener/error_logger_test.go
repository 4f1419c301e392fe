package listener

import (
	"errors"
	"testing"

	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

func TestNewErrorLoggerDefaultsInvalidRateAndBurst(t *testing.T) {
	l := NewErrorLogger(logx.Logger{}, 0, 0)
	if l.limiter == nil {
		t.Fatal("expected a limiter to be constructed even with invalid inputs")
	}
}

func TestErrorLoggerDoesNotPanicOnBurstOfErrors(t *testing.T) {
	l := NewErrorLogger(logx.Logger{}, 1, 2)
	for i := 0; i < 10; i++ {
		l.SchedulerError("store failure", errors.New("boom"))
	}
	if l.suppressed.Load() == 0 {
		t.Fatal("expected some events to be throttled and counted as suppressed")
	}
}

func TestErrorLoggerLifecycleMethodsDoNotPanic(t *testing.T) {
	l := NewErrorLogger(logx.Logger{}, 10, 10)
	l.SchedulerStarted()
	l.SchedulerStandby()
	l.SchedulerShuttingDown()
	l.SchedulerShutdown()
}
