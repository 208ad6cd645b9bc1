package config

import (
	"os"
	"strings"

	"github.com/Netflix/go-env"
)

// Env holds the environment overrides. Non-empty values win over the file.
type Env struct {
	Token         string `env:"TELEGRAM_BOT_TOKEN"`
	StorageDriver string `env:"CHOREBOT_STORAGE_DRIVER"`
	DataPath      string `env:"CHOREBOT_DATA_PATH"`
	LogLevel      string `env:"CHOREBOT_LOG_LEVEL"`
	Locale        string `env:"CHOREBOT_LOCALE"`
	Timezone      string `env:"CHOREBOT_TIMEZONE"`
}

// ProcessEnv reads the current process environment.
func ProcessEnv() (env.EnvSet, error) {
	return env.EnvironToEnvSet(os.Environ())
}

// ApplyEnv overlays es onto cfg.
func ApplyEnv(cfg *Config, es env.EnvSet) error {
	if cfg == nil || len(es) == 0 {
		return nil
	}
	var e Env
	if err := env.Unmarshal(es, &e); err != nil {
		return err
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.Token, e.Token)
	set(&cfg.Storage.Driver, e.StorageDriver)
	set(&cfg.Storage.Path, e.DataPath)
	set(&cfg.Logging.Level, e.LogLevel)
	set(&cfg.Chores.Locale, e.Locale)
	set(&cfg.Scheduler.Timezone, e.Timezone)
	return nil
}

// normalize lowercases enum-like fields so validation and lookups are
// case-insensitive.
func normalize(cfg *Config) {
	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Logging.Level = lower(cfg.Logging.Level)
	cfg.Logging.Telegram.MinLevel = lower(cfg.Logging.Telegram.MinLevel)
	cfg.Storage.Driver = lower(cfg.Storage.Driver)
	cfg.Chores.Locale = lower(cfg.Chores.Locale)
	cfg.Scheduler.Timezone = strings.TrimSpace(cfg.Scheduler.Timezone)
}
