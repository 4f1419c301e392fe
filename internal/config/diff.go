package config

import (
	"reflect"
	"sort"
	"strings"

	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// safe structured attrs for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.idle_wait_time", newCfg.Scheduler.IdleWaitTime),
			logx.String("scheduler.db_failure_retry_interval", newCfg.Scheduler.DBFailureRetryInterval),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.Int("scheduler.batch_size_max", newCfg.Scheduler.BatchSizeMax),
			logx.Bool("scheduler.interrupt_jobs_on_shutdown", newCfg.Scheduler.InterruptJobsOnShutdown),
		)
	}

	if !reflect.DeepEqual(oldCfg.WorkerPool, newCfg.WorkerPool) {
		changed = append(changed, "worker_pool")
		attrs = append(attrs,
			logx.Int("worker_pool.workers", newCfg.WorkerPool.Workers),
			logx.Int("worker_pool.queue_size", newCfg.WorkerPool.QueueSize),
			logx.String("worker_pool.default_timeout", strings.TrimSpace(newCfg.WorkerPool.DefaultTimeout)),
			logx.Int("worker_pool.retry_max", newCfg.WorkerPool.RetryMax),
		)
	}

	if !reflect.DeepEqual(oldCfg.Store, newCfg.Store) {
		changed = append(changed, "store")
		attrs = append(attrs,
			logx.String("store.driver", strings.TrimSpace(newCfg.Store.Driver)),
			logx.Bool("store.path_set", strings.TrimSpace(newCfg.Store.Path) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
