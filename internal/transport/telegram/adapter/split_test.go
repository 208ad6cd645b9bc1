package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"

	kit "chorebot/internal/transport"

	tele "gopkg.in/telebot.v4"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		limit int
		mode  string
		want  []string
	}{
		{name: "short", in: "hello", limit: 10, want: []string{"hello"}},
		{name: "exact", in: "0123456789", limit: 10, want: []string{"0123456789"}},
		{name: "hard cut", in: "0123456789abc", limit: 10, want: []string{"0123456789", "abc"}},
		{name: "newline preferred", in: "aaaaaa\nbbbbbbbb", limit: 10, want: []string{"aaaaaa", "bbbbbbbb"}},
		{name: "html tag kept whole", in: "abcdefg<b>x</b>", limit: 9, mode: "HTML", want: []string{"abcdefg", "<b>x</b>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTelegramText(tt.in, tt.limit, tt.mode)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("split = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitTelegramTextCountsRunes(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("🧹", telegramTextLimit+1)
	got := splitTelegramText(in, 0, "")
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2", len(got))
	}
	if n := utf8.RuneCountInString(got[0]); n != telegramTextLimit {
		t.Fatalf("first chunk runes = %d", n)
	}
}

func TestToUpdate(t *testing.T) {
	t.Parallel()
	m := &tele.Message{
		ID:       9,
		Text:     "/list_chores",
		ThreadID: 4,
		Chat:     &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		Sender:   &tele.User{ID: 42, Username: "alice"},
	}
	up, ok := toUpdate(m)
	if !ok {
		t.Fatal("expected update")
	}
	want := kit.Message{ID: 9, ChatID: -100, ThreadID: 4, FromID: 42, FromUsername: "alice", Text: "/list_chores", IsGroup: true}
	if *up.Message != want {
		t.Fatalf("message = %+v, want %+v", *up.Message, want)
	}

	if _, ok := toUpdate(&tele.Message{Text: "x"}); ok {
		t.Fatal("message without chat must be ignored")
	}
}

func TestMenuHashChangesWithContent(t *testing.T) {
	t.Parallel()
	a := menuHash([]kit.BotCommand{{Command: "help", Description: "Hilfe"}})
	b := menuHash([]kit.BotCommand{{Command: "help", Description: "Help"}})
	if a == b {
		t.Fatal("hash should differ")
	}
}
