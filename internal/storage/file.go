package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"chorebot/internal/chores"
	logx "chorebot/pkg/logx"
)

// fileStore keeps the snapshot as one indented JSON document. Saves go to a
// temp file in the same directory which is then renamed over the target, so
// a crash never leaves a half-written document behind.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: cfg.Path}, nil
}

func (s *fileStore) Load(ctx context.Context) (chores.Snapshot, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return chores.Snapshot{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chores.Snapshot{}, false, ErrClosed
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return chores.Snapshot{}, false, nil
	}
	if err != nil {
		return chores.Snapshot{}, false, err
	}
	if len(b) == 0 {
		return chores.Snapshot{}, false, nil
	}
	var snap chores.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return chores.Snapshot{}, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return emptyIfNil(snap), true, nil
}

func (s *fileStore) Save(ctx context.Context, snap chores.Snapshot) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	b, err := json.MarshalIndent(emptyIfNil(snap), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	// CreateTemp uses 0600; keep the data file readable like a plain write.
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("snapshot written", logx.String("path", s.path), logx.Int("bytes", len(b)))
	return nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
