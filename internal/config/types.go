package config

// Config is the root configuration document for the scheduler daemon.
//
// Unknown fields are rejected by the decoder (see manager.go) so typos and
// removed legacy keys are caught at load time instead of being silently
// ignored.
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	WorkerPool WorkerPoolConfig `json:"worker_pool"`
	Store      StoreConfig      `json:"store"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig carries the configuration knobs the scheduling loop and
// facade recognise.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type SchedulerConfig struct {
	// IdleWaitTime is how long the loop sleeps when no trigger is due.
	// Default ~30s when omitted/zero.
	IdleWaitTime string `json:"idle_wait_time,omitempty"`

	// DBFailureRetryInterval is how long the loop backs off after a
	// retry-worthy store failure during acquisition. Default ~15s.
	DBFailureRetryInterval string `json:"db_failure_retry_interval,omitempty"`

	// SignalOnSchedulingChange toggles whether facade mutations wake a
	// sleeping loop early. Disabling it is used by bulk-insert/recovery
	// paths that don't need prompt firing.
	SignalOnSchedulingChange *bool `json:"signal_on_scheduling_change,omitempty"`

	// InterruptJobsOnShutdown asks interruptible job instances to stop
	// when shutdown begins.
	InterruptJobsOnShutdown bool `json:"interrupt_jobs_on_shutdown,omitempty"`
	// InterruptJobsOnShutdownWithWait does the same but only once
	// shutdown(waitForCompletion=true) is actually blocking on drain.
	InterruptJobsOnShutdownWithWait bool `json:"interrupt_jobs_on_shutdown_with_wait,omitempty"`

	// BatchSizeMax upper-bounds how many triggers the loop acquires in a
	// single batch, regardless of available worker slots.
	BatchSizeMax int `json:"batch_size_max,omitempty"`

	// Timezone is an IANA timezone name. It is reported in config diffs
	// only; quartznetd builds its cron triggers in time.Local and does
	// not read this field.
	Timezone string `json:"timezone,omitempty"`
}

// WorkerPoolConfig configures the bounded, adaptive-concurrency worker
// pool dispatched jobs run on.
type WorkerPoolConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`

	// DefaultTimeout is a Go duration string. "0s" disables a global
	// default per-execution timeout.
	DefaultTimeout string `json:"default_timeout,omitempty"`
	// MaxQueueDelay drops executions queued longer than this. "0s" disables.
	MaxQueueDelay string `json:"max_queue_delay,omitempty"`

	HistorySize   int    `json:"history_size,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// StoreConfig selects and configures the JobStore collaborator.
//
// Driver values:
//   - "mem": dependency-free in-memory store (default)
//   - "sqlite": persistent SQLite-backed store
type StoreConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}
