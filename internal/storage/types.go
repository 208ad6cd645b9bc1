package storage

import (
	"context"
	"errors"
	"time"

	"chorebot/internal/chores"
)

// DataVersion is the version of the persisted document layout.
const DataVersion = "1.0"

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values: "file" (default), "sqlite", "badger", "memory"/"none".
// Path is a file for file and sqlite, a directory for badger.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence collaborator of the chore registry.
type Store interface {
	chores.Store
	Close() error
}

const (
	DefaultFilePath   = "./data/bot_data.json"
	DefaultSQLitePath = "./data/chorebot.db"
	DefaultBadgerPath = "./data/badger"
)

// emptyIfNil keeps "chats" an object rather than null on disk.
func emptyIfNil(snap chores.Snapshot) chores.Snapshot {
	if snap.Chats == nil {
		snap.Chats = map[int64]*chores.ChatState{}
	}
	return snap
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
