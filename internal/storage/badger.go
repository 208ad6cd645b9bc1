package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"chorebot/internal/chores"
	logx "chorebot/pkg/logx"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerChatPrefix = "chat:"
	badgerVersionKey = "meta:data_version"
)

// badgerStore keeps one JSON value per chat under "chat:<id>".
type badgerStore struct {
	db  *badger.DB
	log logx.Logger
}

func openBadger(cfg Config, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, err
	}
	db, err := badger.Open(badger.DefaultOptions(cfg.Path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", cfg.Path, err)
	}
	return &badgerStore{db: db, log: log}, nil
}

func chatKey(id int64) []byte {
	return []byte(badgerChatPrefix + strconv.FormatInt(id, 10))
}

func (s *badgerStore) Load(ctx context.Context) (chores.Snapshot, bool, error) {
	snap := chores.Snapshot{Chats: map[int64]*chores.ChatState{}}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(badgerVersionKey)); err == nil {
			found = true
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerChatPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctxErr(ctx); err != nil {
				return err
			}
			item := it.Item()
			raw := strings.TrimPrefix(string(item.Key()), badgerChatPrefix)
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				s.log.Warn("skipping malformed badger key", logx.String("key", string(item.Key())))
				continue
			}
			var st chores.ChatState
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &st)
			}); err != nil {
				return fmt.Errorf("decode chat %d: %w", id, err)
			}
			snap.Chats[id] = &st
			found = true
		}
		return nil
	})
	if err != nil {
		return chores.Snapshot{}, false, err
	}
	if !found {
		return chores.Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (s *badgerStore) Save(ctx context.Context, snap chores.Snapshot) error {
	return s.db.Update(func(txn *badger.Txn) error {
		keep := make(map[string]struct{}, len(snap.Chats))
		for id, st := range snap.Chats {
			if st == nil {
				continue
			}
			b, err := json.Marshal(st)
			if err != nil {
				return err
			}
			k := chatKey(id)
			if err := txn.Set(k, b); err != nil {
				return err
			}
			keep[string(k)] = struct{}{}
		}

		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := []byte(badgerChatPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if _, ok := keep[string(k)]; !ok {
				stale = append(stale, k)
			}
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		if err := ctxErr(ctx); err != nil {
			return err
		}
		return txn.Set([]byte(badgerVersionKey), []byte(DataVersion))
	})
}

func (s *badgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
