package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"chorebot/internal/chores"
	logx "chorebot/pkg/logx"

	"github.com/stretchr/testify/require"
)

func sampleSnapshot() chores.Snapshot {
	return chores.Snapshot{Chats: map[int64]*chores.ChatState{
		-100123: {
			Chores: []chores.Chore{
				{Key: 0, Titles: []string{"dishes", "trash"}, Schedule: "0 9 * * *", Assignees: []string{"alice", "bob"}, ThreadID: 7},
				{Key: 2, Titles: []string{"laundry"}, Schedule: "@weekly", Assignees: []string{"carol"}},
			},
			AssignmentCounts: map[string]int{"alice": 3, "bob": 2, "carol": 0},
			DefaultAssignees: []string{"bob", "alice"},
		},
		55: {
			Chores:           []chores.Chore{},
			AssignmentCounts: map[string]int{},
			DefaultAssignees: []string{"dave"},
		},
	}}
}

func openDriver(t *testing.T, driver string) Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "state")
	if driver == "file" {
		path += ".json"
	}
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite", "badger", "memory"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openDriver(t, driver)

			_, ok, err := st.Load(ctx)
			require.NoError(t, err)
			require.False(t, ok)

			want := sampleSnapshot()
			require.NoError(t, st.Save(ctx, want))

			got, ok, err := st.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, want, got)

			// A chat missing from the next snapshot is gone after reload.
			next := sampleSnapshot()
			delete(next.Chats, 55)
			next.Chats[-100123].AssignmentCounts["alice"] = 4
			require.NoError(t, st.Save(ctx, next))

			got, ok, err = st.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, next, got)
		})
	}
}

func TestStoreEmptySnapshot(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite", "badger"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openDriver(t, driver)

			require.NoError(t, st.Save(ctx, chores.Snapshot{}))
			got, ok, err := st.Load(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			require.Empty(t, got.Chats)
		})
	}
}

func TestFileLayout(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "bot_data.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), sampleSnapshot()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "\n  \"chats\": {")

	var doc map[string]map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &doc))
	chat := doc["chats"]["-100123"]
	require.Contains(t, chat, "chores")
	require.Contains(t, chat, "assignmentCountMap")
	require.Contains(t, chat, "defaultUsers")
	require.Contains(t, string(chat["chores"]), `"cronSchedule": "0 9 * * *"`)
	require.Contains(t, string(chat["chores"]), `"messageThreadId": 7`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileCorruptDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bot_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	_, _, err = st.Load(context.Background())
	require.Error(t, err)
}

func TestFileClosed(t *testing.T) {
	t.Parallel()
	st := openDriver(t, "file")
	require.NoError(t, st.Close())
	require.ErrorIs(t, st.Save(context.Background(), sampleSnapshot()), ErrClosed)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "etcd"}, logx.Nop())
	require.Error(t, err)
}
