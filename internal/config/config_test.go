package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Netflix/go-env"
)

func newManager(t *testing.T, name, body string, es env.EnvSet) *ConfigManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if body != "" {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	m := NewConfigManager(path)
	m.SetEnviron(func() (env.EnvSet, error) { return es, nil })
	return m
}

func TestLoadMissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Parallel()
	m := newManager(t, "config.json", "", env.EnvSet{
		"TELEGRAM_BOT_TOKEN":      "123:abc",
		"CHOREBOT_STORAGE_DRIVER": "SQLite",
		"CHOREBOT_LOCALE":         "EN",
	})
	if m.FileExists() {
		t.Fatal("config file should not exist")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Chores.Locale != "en" {
		t.Fatalf("env overlay not normalized: driver=%q locale=%q", cfg.Storage.Driver, cfg.Chores.Locale)
	}
	if !cfg.Scheduler.Enabled || cfg.Logging.Level != "info" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit the config")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Parallel()
	m := newManager(t, "config.json", "", nil)
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "Token") {
		t.Fatalf("expected token validation error, got %v", err)
	}
}

func TestParseYAMLOverDefaults(t *testing.T) {
	t.Parallel()
	body := `
telegram:
  token: "file-token"
  poll_timeout: 20s
chores:
  locale: en
storage:
  driver: badger
  path: ./state
`
	m := newManager(t, "config.yaml", body, env.EnvSet{"TELEGRAM_BOT_TOKEN": "env-token"})
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("env should win over file, got %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.PollTimeout != "20s" || cfg.Storage.Driver != "badger" || cfg.Storage.Path != "./state" {
		t.Fatalf("yaml values not decoded: %+v", cfg)
	}
	// Sections the file omits keep their defaults.
	if !cfg.Logging.Console || !cfg.Scheduler.Enabled {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"unknown":  `{"telegram":{"token":"x"},"plugins":{}}`,
		"trailing": `{"telegram":{"token":"x"}}{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := newManager(t, "config.json", body, nil)
			if _, err := m.Parse(); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	f := false
	cases := []struct {
		name string
		mut  func(c *Config)
		ok   bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, false},
		{"bad locale", func(c *Config) { c.Chores.Locale = "fr" }, false},
		{"english locale", func(c *Config) { c.Chores.Locale = "en" }, true},
		{"bad duration", func(c *Config) { c.Chores.FireTimeout = "soon" }, false},
		{"negative duration", func(c *Config) { c.Telegram.PollTimeout = "-1s" }, false},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, false},
		{"good timezone", func(c *Config) { c.Scheduler.Timezone = "UTC" }, true},
		{"bad group log", func(c *Config) { c.Telegram.GroupLog = "ops-chat" }, false},
		{"negative workers", func(c *Config) { c.Notifier = &NotifierConfig{Workers: -1} }, false},
		{"engine off with scheduler on", func(c *Config) { c.TaskEngine = &TaskEngineConfig{Enabled: &f} }, false},
		{"bad ops addr", func(c *Config) { c.Ops.Addr = "nope" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Telegram.Token = "x"
			tc.mut(cfg)
			err := Validate(cfg)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGroupLogID(t *testing.T) {
	t.Parallel()
	id, err := TelegramConfig{GroupLog: " -100123 "}.GroupLogID()
	if err != nil || id != -100123 {
		t.Fatalf("GroupLogID = %d, %v", id, err)
	}
	if id, err := (TelegramConfig{}).GroupLogID(); err != nil || id != 0 {
		t.Fatalf("empty GroupLogID = %d, %v", id, err)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "250ms", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "abc", time.Second); err == nil || !strings.HasPrefix(err.Error(), "x:") {
		t.Fatalf("expected field-prefixed error, got %v", err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := Default()
	a.Telegram.Token = "one"
	b := Default()
	b.Telegram.Token = "two"
	b.Logging.Level = "debug"
	b.Ops.Enabled = true

	sections, attrs := SummarizeConfigChange(a, b)
	want := []string{"logging", "ops", "telegram"}
	if strings.Join(sections, ",") != strings.Join(want, ",") {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if got := RestartRequired(sections); len(got) != 1 || got[0] != "telegram" {
		t.Fatalf("RestartRequired = %v", got)
	}

	if s, _ := SummarizeConfigChange(a, a); len(s) != 0 {
		t.Fatalf("no-op diff = %v", s)
	}
	// An omitted notifier section equals the explicit defaults.
	n := DefaultNotifier()
	c := Default()
	c.Telegram.Token = "one"
	c.Notifier = &n
	if s, _ := SummarizeConfigChange(a, c); len(s) != 0 {
		t.Fatalf("default notifier diff = %v", s)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	m := newManager(t, "config.json", `{"telegram":{"token":"x"},"chores":{"locale":"de"}}`, nil)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Writes are spaced wider than the watcher's 250ms debounce; a burst of
	// rewrites would keep resetting the reload timer.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(600 * time.Millisecond)
	defer tick.Stop()
	time.Sleep(300 * time.Millisecond)
	for {
		// Rewrite until the watcher is registered and picks the change up.
		if err := os.WriteFile(m.Path(), []byte(`{"telegram":{"token":"x"},"chores":{"locale":"en"}}`), 0o644); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
		select {
		case cfg := <-sub:
			if cfg.Chores.Locale != "en" {
				t.Fatalf("published locale = %q", cfg.Chores.Locale)
			}
			cancel()
			<-done
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no config published")
		}
	}
}
