// Command quartznetd runs the job scheduler as a standalone daemon: it
// loads a config file, wires a JobStore/WorkerPool/Scheduler from it, and
// blocks until terminated, driving two demo job types so the wiring is
// exercisable out of the box.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/config"
	"github.com/yitzchokneuhaus1/quartznet/internal/eventbus"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/facade"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/jobs"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/memstore"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/sqlitestore"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/workerpool"
	logx "github.com/yitzchokneuhaus1/quartznet/pkg/logx"
)

func main() {
	configPath := flag.String("config", "quartznetd.yaml", "path to the daemon config file")
	schedulerName := flag.String("name", "quartznet", "scheduler instance name")
	flag.Parse()

	if err := run(*configPath, *schedulerName); err != nil {
		fmt.Fprintln(os.Stderr, "quartznetd:", err)
		os.Exit(1)
	}
}

func run(configPath, schedulerName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := config.NewConfigManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log)
	defer logSvc.Close()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	pool := workerpool.New(workerPoolConfig(cfg.WorkerPool), log)

	var counter int64
	registry := jobs.NewRegistry()
	jobs.RegisterDemoJobs(registry, log, &counter)

	bus := eventbus.New()

	fc, err := facade.New(schedulerConfig(schedulerName, cfg.Scheduler), st, pool, registry, log, facade.WithEventBus(bus))
	if err != nil {
		return fmt.Errorf("construct scheduler: %w", err)
	}

	if err := seedDemoSchedule(ctx, fc); err != nil {
		return fmt.Errorf("seed demo schedule: %w", err)
	}

	if err := fc.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("quartznetd started", logx.String("scheduler", fc.SchedulerName()), logx.String("instance", fc.SchedulerInstanceID()))

	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("quartznetd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fc.Shutdown(shutdownCtx, true)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.JobStore, func(), error) {
	switch cfg.Driver {
	case "", "mem":
		return memstore.New(), func() {}, nil
	case "sqlite":
		busyTimeout, err := config.ParseDurationOrDefault("store.busy_timeout", cfg.BusyTimeout, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		path := cfg.Path
		if path == "" {
			path = "quartznetd.db"
		}
		st, err := sqlitestore.Open(ctx, sqlitestore.Config{Path: path, BusyTimeout: busyTimeout})
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func workerPoolConfig(cfg config.WorkerPoolConfig) workerpool.Config {
	defaultTimeout, _ := config.ParseDurationField("worker_pool.default_timeout", cfg.DefaultTimeout)
	maxQueueDelay, _ := config.ParseDurationField("worker_pool.max_queue_delay", cfg.MaxQueueDelay)
	retryBase, _ := config.ParseDurationOrDefault("worker_pool.retry_base", cfg.RetryBase, 200*time.Millisecond)
	retryMaxDelay, _ := config.ParseDurationOrDefault("worker_pool.retry_max_delay", cfg.RetryMaxDelay, 5*time.Second)
	return workerpool.Config{
		Workers:        cfg.Workers,
		QueueSize:      cfg.QueueSize,
		DefaultTimeout: defaultTimeout,
		MaxQueueDelay:  maxQueueDelay,
		HistorySize:    cfg.HistorySize,
		RetryMax:       cfg.RetryMax,
		RetryBase:      retryBase,
		RetryMaxDelay:  retryMaxDelay,
	}
}

func schedulerConfig(name string, cfg config.SchedulerConfig) facade.Config {
	idleWait, _ := config.ParseDurationOrDefault("scheduler.idle_wait_time", cfg.IdleWaitTime, 30*time.Second)
	dbRetry, _ := config.ParseDurationOrDefault("scheduler.db_failure_retry_interval", cfg.DBFailureRetryInterval, 15*time.Second)
	signalOnChange := true
	if cfg.SignalOnSchedulingChange != nil {
		signalOnChange = *cfg.SignalOnSchedulingChange
	}
	return facade.Config{
		Name:                            name,
		IdleWaitTime:                    idleWait,
		DBFailureRetryInterval:          dbRetry,
		BatchSizeMax:                    cfg.BatchSizeMax,
		SignalOnSchedulingChange:        signalOnChange,
		InterruptJobsOnShutdown:         cfg.InterruptJobsOnShutdown,
		InterruptJobsOnShutdownWithWait: cfg.InterruptJobsOnShutdownWithWait,
	}
}

// seedDemoSchedule registers the two demo job types against a durable job
// each, firing every 30s and every minute respectively, so a freshly
// started daemon has visible activity without any external caller.
func seedDemoSchedule(ctx context.Context, fc *facade.Scheduler) error {
	logJob := &model.JobDetail{Key: model.NewKey("heartbeat", "demo"), JobType: "log", Durable: true}
	if err := fc.AddJob(ctx, logJob, true); err != nil {
		return err
	}
	heartbeatTrigger := trigger.NewSimple(model.NewKey("heartbeat-every-30s", "demo"), logJob.Key, time.Now(), 30*time.Second, trigger.RepeatForever)
	if _, err := fc.ScheduleTrigger(ctx, heartbeatTrigger); err != nil {
		return err
	}

	counterJob := &model.JobDetail{Key: model.NewKey("tick", "demo"), JobType: "counter", Durable: true}
	if err := fc.AddJob(ctx, counterJob, true); err != nil {
		return err
	}
	tickTrigger, err := trigger.NewCron(model.NewKey("tick-every-minute", "demo"), counterJob.Key, "0 * * * * *", time.Local)
	if err != nil {
		return err
	}
	_, err = fc.ScheduleTrigger(ctx, tickTrigger)
	return err
}
