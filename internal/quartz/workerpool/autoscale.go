package workerpool

import (
	"context"
	"runtime"
	"time"

	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// autoscaler periodically nudges the pool's permit count between
// Config.MinWorkers and Config.MaxWorkers based on GC pressure: it
// shrinks when the GC pause time over the last interval exceeds a tenth
// of the interval, and grows back toward MaxWorkers when the queue is
// more than half full and GC is not heavy.
type autoscaler struct {
	pool *Pool
	log  logx.Logger

	interval time.Duration
}

func newAutoscaler(p *Pool) *autoscaler {
	return &autoscaler{pool: p, log: p.log, interval: 5 * time.Second}
}

func (a *autoscaler) run(ctx context.Context) error {
	if a.pool.cfg.MinWorkers == a.pool.cfg.MaxWorkers {
		return nil
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	var lastNumGC uint32
	var lastPause time.Duration
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(&lastNumGC, &lastPause)
		}
	}
}

func (a *autoscaler) tick(lastNumGC *uint32, lastPause *time.Duration) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	gcDelta := stats.NumGC - *lastNumGC
	pauseDelta := time.Duration(stats.PauseTotalNs) - *lastPause
	*lastNumGC = stats.NumGC
	*lastPause = time.Duration(stats.PauseTotalNs)

	heavyGC := gcDelta > 0 && pauseDelta > a.interval/10
	queueBacklog := a.pool.QueueDepth() > a.pool.cfg.QueueSize/2

	cur := a.pool.Capacity()
	switch {
	case heavyGC && cur > a.pool.cfg.MinWorkers:
		a.pool.resize(cur - 1)
		a.log.Debug("workerpool scaling down", logx.Int("to", cur-1), logx.Duration("gc_pause_delta", pauseDelta))
	case !heavyGC && queueBacklog && cur < a.pool.cfg.MaxWorkers:
		a.pool.resize(cur + 1)
		a.log.Debug("workerpool scaling up", logx.Int("to", cur+1), logx.Int("queue_depth", a.pool.QueueDepth()))
	}
}
