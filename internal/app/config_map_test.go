package app

import (
	"testing"
	"time"

	"chorebot/internal/config"
)

func TestMapTaskEngineConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	got, err := mapTaskEngineConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if !got.Enabled || got.Workers != 2 || got.QueueSize != 256 || got.HistorySize != 200 {
		t.Fatalf("defaults = %+v", got)
	}

	off := false
	cfg.Scheduler.Enabled = false
	cfg.TaskEngine = &config.TaskEngineConfig{Enabled: &off, Workers: 5, DefaultTimeout: "45s"}
	got, err = mapTaskEngineConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got.Enabled || got.Workers != 5 || got.DefaultTimeout != 45*time.Second {
		t.Fatalf("overrides = %+v", got)
	}
}

func TestMapNotifierConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	got, err := mapNotifierConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if !got.Enabled || got.RetryMax != 0 || got.RetryBase != 500*time.Millisecond || got.RetryMaxDelay != 10*time.Second {
		t.Fatalf("defaults = %+v", got)
	}

	cfg.Notifier = &config.NotifierConfig{Enabled: true, RetryMax: 2, RetryBase: "1s"}
	got, err = mapNotifierConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got.RetryMax != 2 || got.RetryBase != time.Second || got.RetryMaxDelay != 10*time.Second {
		t.Fatalf("explicit = %+v", got)
	}

	cfg.Notifier.RetryBase = "often"
	if _, err := mapNotifierConfig(cfg); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestMapStorageAndOpsConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{Driver: "sqlite", Path: "/tmp/x.db", BusyTimeout: "2s"}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	if sc.Driver != "sqlite" || sc.Path != "/tmp/x.db" || sc.BusyTimeout != 2*time.Second {
		t.Fatalf("storage = %+v", sc)
	}

	cfg.Ops = config.OpsConfig{Enabled: true, Addr: "127.0.0.1:9999", Pprof: true, ReadTimeout: "5s"}
	oc, err := mapOpsConfig(cfg)
	if err != nil {
		t.Fatalf("ops: %v", err)
	}
	if !oc.Enabled || !oc.Pprof || oc.Addr != "127.0.0.1:9999" || oc.ReadTimeout != 5*time.Second {
		t.Fatalf("ops = %+v", oc)
	}
}

func TestMapLoggingConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Logging.Telegram = config.LoggingTelegram{Enabled: true, ThreadID: 7, MinLevel: "error", RatePerSec: 2}
	lc := mapLoggingConfig(cfg)
	if !lc.Chat.Enabled || lc.Chat.ThreadID != 7 || lc.Chat.MinLevel != "error" || lc.Level != "info" {
		t.Fatalf("logging = %+v", lc)
	}
}

func TestSdStatus(t *testing.T) {
	t.Parallel()
	if got := sdStatus("serving 1 chats"); got != "STATUS=serving 1 chats" {
		t.Fatalf("sdStatus = %q", got)
	}
}
