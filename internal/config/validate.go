package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"chorebot/internal/chores"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator adds the "locale" tag, which accepts the codes of the
// reply catalogs.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
		return slices.Contains(chores.Locales(), fl.Field().String())
	})
	return v
}

// Validate checks struct constraints plus the fields validator tags cannot
// express: duration strings, the timezone and the log chat id.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := map[string]string{
		"telegram.poll_timeout": cfg.Telegram.PollTimeout,
		"storage.busy_timeout":  cfg.Storage.BusyTimeout,
		"chores.fire_timeout":   cfg.Chores.FireTimeout,
		"chores.save_timeout":   cfg.Chores.SaveTimeout,
		"ops.read_timeout":      cfg.Ops.ReadTimeout,
		"ops.write_timeout":     cfg.Ops.WriteTimeout,
		"ops.idle_timeout":      cfg.Ops.IdleTimeout,
	}
	if cfg.TaskEngine != nil {
		durations["task_engine.default_timeout"] = cfg.TaskEngine.DefaultTimeout
		if cfg.Scheduler.Enabled && cfg.TaskEngine.Enabled != nil && !*cfg.TaskEngine.Enabled {
			return errors.New("task_engine.enabled cannot be false while scheduler.enabled is true")
		}
	}
	if cfg.Notifier != nil {
		durations["notifier.retry_base"] = cfg.Notifier.RetryBase
		durations["notifier.retry_max_delay"] = cfg.Notifier.RetryMaxDelay
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := cfg.Telegram.GroupLogID(); err != nil {
		return err
	}
	return nil
}

// GroupLogID parses telegram.group_log. Zero means unset.
func (t TelegramConfig) GroupLogID() (int64, error) {
	raw := strings.TrimSpace(t.GroupLog)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.group_log: invalid chat id %q", raw)
	}
	return id, nil
}
