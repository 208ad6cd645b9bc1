package commands

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"chorebot/internal/chores"
	"chorebot/internal/storage"
	"chorebot/internal/task/scheduler"
	kit "chorebot/internal/transport"
	"chorebot/internal/transport/telegram/router"
	logx "chorebot/pkg/logx"

	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	opt  *kit.SendOptions
}

type fakeSender struct {
	mu  sync.Mutex
	out []reply
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, reply{text: text, opt: opt})
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID}, nil
}

func (f *fakeSender) last(t *testing.T) reply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.out)
	return f.out[len(f.out)-1]
}

type fixture struct {
	h      *Handlers
	reg    *chores.Registry
	sched  *scheduler.Service
	sender *fakeSender
	cat    *chores.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sched := scheduler.New(scheduler.Config{}, nil, logx.Nop())
	cat := chores.CatalogFor("de")
	reg, err := chores.NewRegistry(chores.Options{
		Store:     storage.NewMemory(),
		Scheduler: sched,
		Allocator: chores.NewAllocator(rand.NewSource(3)),
		Catalog:   cat,
	})
	require.NoError(t, err)
	return &fixture{
		h:      New(Deps{Registry: reg, BotVersion: "1.2.3"}),
		reg:    reg,
		sched:  sched,
		sender: &fakeSender{},
		cat:    cat,
	}
}

const chatID = int64(-1001)

// run executes text as if it arrived in chatID, thread 9.
func (f *fixture) run(t *testing.T, text string) reply {
	t.Helper()
	name, argText, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	var handler router.HandlerFunc
	for _, c := range f.h.Commands() {
		if c.Name == name {
			handler = c.Handle
		}
	}
	require.NotNil(t, handler, "no handler for %q", name)

	argText = strings.TrimSpace(argText)
	req := &router.Request{
		Chat:    kit.ChatTarget{ChatID: chatID, ThreadID: 9},
		Command: name,
		Args:    strings.Fields(argText),
		ArgText: argText,
		Sender:  f.sender,
		Logger:  logx.Nop(),
	}
	require.NoError(t, handler(context.Background(), req))
	return f.sender.last(t)
}

func TestAddListRemove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.NoChatData, f.run(t, "/list_chores").text)
	require.Equal(t, f.cat.AddOK, f.run(t, "/add_chore Abwasch,Bad;0 9 * * *;@Alice,@bob").text)
	require.Equal(t, f.cat.AddOK, f.run(t, "/add_chore Müll;0 18 * * 1,4;@carol").text)
	require.True(t, f.sched.Has(chores.BindingName(chatID, 0)))
	require.True(t, f.sched.Has(chores.BindingName(chatID, 1)))

	list := f.run(t, "/list_chores").text
	require.Contains(t, list, "🔑 Schlüssel: 0\n🧹 Aufgaben:\n- Abwasch\n- Bad\n⏰ Cron-Schedule: 0 9 * * *\n👷🏼 Zuständige:\n- @alice\n- @bob\n")
	require.Contains(t, list, "⏰ Cron-Schedule: 0 18 * * 1,4")

	require.Equal(t, f.cat.RemoveOK, f.run(t, "/remove_chore 0").text)
	require.False(t, f.sched.Has(chores.BindingName(chatID, 0)))
	require.True(t, f.sched.Has(chores.BindingName(chatID, 1)))

	require.Equal(t, f.cat.InvalidKey, f.run(t, "/remove_chore 0").text)
	require.Equal(t, f.cat.InvalidKey, f.run(t, "/remove_chore abc").text)
	require.Equal(t, f.cat.RemoveUsage, f.run(t, "/remove_chore").text)

	require.Equal(t, f.cat.RemoveOK, f.run(t, "/remove_chore 1").text)
	require.Equal(t, f.cat.NoChores, f.run(t, "/list_chores").text)

	left, _ := f.reg.ListChores(chatID)
	require.Empty(t, left)
}

func TestAddChoreErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.AddUsage, f.run(t, "/add_chore").text)
	require.Equal(t, f.cat.AddUsage, f.run(t, "/add_chore nur titel").text)
	require.Equal(t, f.cat.InvalidSchedule, f.run(t, "/add_chore Abwasch;jeden Tag;@alice").text)
	require.Equal(t, f.cat.NoDefaultAssignees, f.run(t, "/add_chore Abwasch;@daily;@default").text)
}

func TestAddChoreNow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text := f.run(t, "/add_chore dishes,trash;@now;@alice,@bob").text
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "🧹 dishes wurde @"))
	require.True(t, strings.HasPrefix(lines[1], "🧹 trash wurde @"))

	list, ok := f.reg.ListChores(chatID)
	require.True(t, ok)
	require.Empty(t, list)
	require.False(t, f.sched.Has(chores.BindingName(chatID, 0)))
}

func TestDefaultUsersFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.DefaultsUsage, f.run(t, "/set_default_users").text)
	require.Equal(t, f.cat.DefaultsOK, f.run(t, "/set_default_users @Alice, @bob").text)
	require.Equal(t, f.cat.AddOK, f.run(t, "/add_chore laundry;0 0 * * 0;@default").text)

	list, _ := f.reg.ListChores(chatID)
	require.Len(t, list, 1)
	require.Equal(t, []string{"@alice", "@bob"}, list[0].Assignees)
	require.Equal(t, 9, list[0].ThreadID)
}

func TestTrash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.TrashUsage, f.run(t, "/trash").text)
	require.Equal(t, f.cat.NoDefaultAssignees, f.run(t, "/trash Bio").text)

	f.run(t, "/set_default_users alice")
	require.Equal(t, "🧹 Biomüll rausbringen wurde alice zugewiesen.", f.run(t, "/trash Bio").text)

	counts, _ := f.reg.AssignmentCounts(chatID)
	require.Equal(t, map[string]int{"alice": 1}, counts)
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.NoChatData, f.run(t, "/show_leaderboard").text)
	f.run(t, "/add_chore a,b,c;@now;alice,bob")

	r := f.run(t, "/show_leaderboard")
	require.NotNil(t, r.opt)
	require.Equal(t, "HTML", r.opt.ParseMode)
	require.True(t, strings.HasPrefix(r.text, "<pre>"))
	require.Contains(t, r.text, "alice")
	require.Contains(t, r.text, "bob")
}

func TestStaticReplies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.Equal(t, f.cat.Welcome, f.run(t, "/start").text)
	require.Equal(t, "🤖 Bot-Version: 1.2.3\n📊 Datenstruktur-Version: "+storage.DataVersion, f.run(t, "/version").text)

	help := f.run(t, "/help").text
	require.True(t, strings.HasPrefix(help, f.cat.HelpHeader))
	for _, c := range f.h.Commands() {
		require.Contains(t, help, "/"+c.Name+" - "+c.Description)
		require.NotEmpty(t, c.Description, c.Name)
	}
}
