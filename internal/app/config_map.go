package app

import (
	"time"

	"chorebot/internal/config"
	"chorebot/internal/notifier"
	"chorebot/internal/observability/ops"
	"chorebot/internal/storage"
	"chorebot/internal/task/engine"
	"chorebot/internal/task/scheduler"
	logx "chorebot/pkg/logx"
)

// Mapping from the file schema to component configs. Config.Validate has
// already rejected malformed durations, so errors here are rare.

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
	}
}

func mapTaskEngineConfig(cfg *config.Config) (engine.Config, error) {
	out := engine.Config{
		Enabled:     cfg.Scheduler.Enabled,
		Workers:     2,
		QueueSize:   256,
		HistorySize: 200,
	}
	te := cfg.TaskEngine
	if te == nil {
		return out, nil
	}
	if te.Enabled != nil {
		out.Enabled = *te.Enabled
	}
	if te.Workers > 0 {
		out.Workers = te.Workers
	}
	if te.QueueSize > 0 {
		out.QueueSize = te.QueueSize
	}
	if te.HistorySize > 0 {
		out.HistorySize = te.HistorySize
	}
	d, err := config.ParseDurationField("task_engine.default_timeout", te.DefaultTimeout)
	if err != nil {
		return engine.Config{}, err
	}
	out.DefaultTimeout = d
	return out, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := config.DefaultNotifier()
	if cfg.Notifier != nil {
		n = *cfg.Notifier
	}
	base, err := config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:       n.Enabled,
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapOpsConfig(cfg *config.Config) (ops.Config, error) {
	o := cfg.Ops
	read, err := config.ParseDurationField("ops.read_timeout", o.ReadTimeout)
	if err != nil {
		return ops.Config{}, err
	}
	write, err := config.ParseDurationField("ops.write_timeout", o.WriteTimeout)
	if err != nil {
		return ops.Config{}, err
	}
	idle, err := config.ParseDurationField("ops.idle_timeout", o.IdleTimeout)
	if err != nil {
		return ops.Config{}, err
	}
	return ops.Config{
		Enabled:       o.Enabled,
		Addr:          o.Addr,
		Token:         o.Token,
		AllowInsecure: o.AllowInsecure,
		Pprof:         o.Pprof,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}

type choreTimeouts struct {
	fire time.Duration
	save time.Duration
}

func mapChoreTimeouts(cfg *config.Config) (choreTimeouts, error) {
	fire, err := config.ParseDurationField("chores.fire_timeout", cfg.Chores.FireTimeout)
	if err != nil {
		return choreTimeouts{}, err
	}
	save, err := config.ParseDurationField("chores.save_timeout", cfg.Chores.SaveTimeout)
	if err != nil {
		return choreTimeouts{}, err
	}
	return choreTimeouts{fire: fire, save: save}, nil
}
