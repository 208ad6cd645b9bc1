package storage

import (
	"errors"
	"strings"

	logx "chorebot/pkg/logx"
)

// Open initializes the configured store. An empty driver selects "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg.Path = strings.TrimSpace(cfg.Path)

	switch driver {
	case "", "file", "json":
		if cfg.Path == "" {
			cfg.Path = DefaultFilePath
		}
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		if cfg.Path == "" {
			cfg.Path = DefaultSQLitePath
		}
		return openSQLite(cfg, log)
	case "badger":
		if cfg.Path == "" {
			cfg.Path = DefaultBadgerPath
		}
		return openBadger(cfg, log)
	case "memory", "none":
		log.Warn("memory storage selected; chore state is lost on restart")
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
