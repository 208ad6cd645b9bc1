package config

import (
	"reflect"
	"sort"
	"strings"

	logx "chorebot/pkg/logx"
)

// SummarizeConfigChange returns the sorted list of changed sections and
// structured attrs safe for logging (tokens are reported only as set/unset).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 24)

	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Bool("telegram.group_log_set", strings.TrimSpace(newCfg.Telegram.GroupLog) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}

	oTE, nTE := derefTaskEngine(oldCfg.TaskEngine), derefTaskEngine(newCfg.TaskEngine)
	if (oldCfg.TaskEngine != nil) != (newCfg.TaskEngine != nil) || !reflect.DeepEqual(oTE, nTE) {
		changed = append(changed, "task_engine")
		attrs = append(attrs,
			logx.Bool("task_engine.present", newCfg.TaskEngine != nil),
			logx.Int("task_engine.workers", nTE.Workers),
			logx.Int("task_engine.queue_size", nTE.QueueSize),
			logx.String("task_engine.default_timeout", strings.TrimSpace(nTE.DefaultTimeout)),
		)
	}

	// A missing notifier section means runtime defaults.
	oN, nN := derefNotifier(oldCfg.Notifier), derefNotifier(newCfg.Notifier)
	if oN != nN {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", nN.Enabled),
			logx.Int("notifier.workers", nN.Workers),
			logx.Int("notifier.rate_per_sec", nN.RatePerSec),
			logx.Int("notifier.retry_max", nN.RetryMax),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
		)
	}

	if oldCfg.Chores != newCfg.Chores {
		changed = append(changed, "chores")
		attrs = append(attrs,
			logx.String("chores.locale", newCfg.Chores.Locale),
			logx.String("chores.fire_timeout", newCfg.Chores.FireTimeout),
		)
	}

	if oldCfg.Ops != newCfg.Ops {
		changed = append(changed, "ops")
		attrs = append(attrs,
			logx.Bool("ops.enabled", newCfg.Ops.Enabled),
			logx.String("ops.addr", strings.TrimSpace(newCfg.Ops.Addr)),
			logx.Bool("ops.token_set", strings.TrimSpace(newCfg.Ops.Token) != ""),
			logx.Bool("ops.pprof", newCfg.Ops.Pprof),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired reports changed sections that only take effect after a
// restart.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "telegram", "storage", "chores":
			out = append(out, s)
		}
	}
	return out
}

func derefTaskEngine(te *TaskEngineConfig) TaskEngineConfig {
	if te == nil {
		return TaskEngineConfig{}
	}
	return *te
}

// DefaultNotifier is the notifier section used when the file omits it.
func DefaultNotifier() NotifierConfig {
	return NotifierConfig{
		Enabled:       true,
		Workers:       2,
		QueueSize:     512,
		RatePerSec:    3,
		RetryMax:      0,
		RetryBase:     "500ms",
		RetryMaxDelay: "10s",
	}
}

func derefNotifier(n *NotifierConfig) NotifierConfig {
	if n == nil {
		return DefaultNotifier()
	}
	return *n
}
