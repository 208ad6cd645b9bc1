package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chorebot/internal/chores"
	logx "chorebot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// sqliteStore keeps one JSON row per chat. Save replaces every row inside a
// single transaction.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (chores.Snapshot, bool, error) {
	var version string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'data_version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return chores.Snapshot{}, false, nil
	}
	if err != nil {
		return chores.Snapshot{}, false, err
	}
	if version != DataVersion {
		s.log.Warn("stored data version differs", logx.String("stored", version), logx.String("current", DataVersion))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, data FROM chat_state ORDER BY chat_id`)
	if err != nil {
		return chores.Snapshot{}, false, err
	}
	defer rows.Close()

	snap := chores.Snapshot{Chats: map[int64]*chores.ChatState{}}
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return chores.Snapshot{}, false, err
		}
		var st chores.ChatState
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return chores.Snapshot{}, false, fmt.Errorf("decode chat %d: %w", id, err)
		}
		snap.Chats[id] = &st
	}
	if err := rows.Err(); err != nil {
		return chores.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *sqliteStore) Save(ctx context.Context, snap chores.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM chat_state`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for id, st := range snap.Chats {
		if st == nil {
			continue
		}
		var b []byte
		if b, err = json.Marshal(st); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_state(chat_id, data, updated_at) VALUES(?,?,?)`,
			id, string(b), now,
		); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('data_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		DataVersion,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
