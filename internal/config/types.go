package config

// Config is the on-disk configuration (JSON or YAML). Every section is
// optional; Default fills in what a bare deployment needs, and the
// environment overlay (see env.go) can supply the token and a few common
// settings without a file at all.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Scheduler controls chore timers (cron triggers).
	Scheduler SchedulerConfig `json:"scheduler"`

	// TaskEngine controls execution of fired triggers.
	TaskEngine *TaskEngineConfig `json:"task_engine,omitempty"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  StorageConfig   `json:"storage"`
	Chores   ChoresConfig    `json:"chores"`
	Ops      OpsConfig       `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token" validate:"required"`

	// GroupLog is the operator chat id that receives forwarded WARN+ logs.
	GroupLog string `json:"group_log,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id" validate:"gte=0"`
	MinLevel   string `json:"min_level" validate:"omitempty,oneof=trace debug info warn warning error"`
	RatePerSec int    `json:"rate_per_sec" validate:"gte=0"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// Timezone is an IANA zone name used for every chore schedule.
	// Empty means the host's local time.
	Timezone string `json:"timezone,omitempty"`
}

// TaskEngineConfig controls the worker pool that runs fired chore timers.
//
// Defaults (when fields are omitted or zero):
//   - enabled: scheduler.enabled
//   - workers: 2
//   - queue_size: 256
//   - default_timeout: "0s" (disabled)
//   - history_size: 200
type TaskEngineConfig struct {
	Enabled   *bool `json:"enabled,omitempty"`
	Workers   int   `json:"workers,omitempty" validate:"gte=0,lte=64"`
	QueueSize int   `json:"queue_size,omitempty" validate:"gte=0"`

	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty" validate:"gte=0"`
}

// NotifierConfig controls the async send pipeline used for timer
// notifications. Omitting the section keeps it enabled with defaults.
type NotifierConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers" validate:"gte=0,lte=64"`
	QueueSize     int    `json:"queue_size" validate:"gte=0"`
	RatePerSec    int    `json:"rate_per_sec" validate:"gte=0"`
	RetryMax      int    `json:"retry_max" validate:"gte=0,lte=10"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/chorebot.db" }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=file json sqlite sqlite3 badger memory none"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type ChoresConfig struct {
	// Locale selects the reply catalog ("de" or "en").
	Locale string `json:"locale" validate:"omitempty,locale"`

	// FireTimeout bounds one timer firing (assignment, send and save).
	FireTimeout string `json:"fire_timeout,omitempty"`

	// SaveTimeout bounds one persistence write.
	SaveTimeout string `json:"save_timeout,omitempty"`
}

// OpsConfig controls the operator HTTP server (/healthz, /metrics, pprof).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:9464").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type OpsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty" validate:"omitempty,hostname_port"`
	Token         string `json:"token,omitempty"` // bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// Default returns the configuration used when no file exists, and the base
// that a config file is decoded over.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Scheduler: SchedulerConfig{Enabled: true},
		Storage:   StorageConfig{Driver: "file"},
		Chores:    ChoresConfig{Locale: "de"},
	}
}
