package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chorebot/internal/eventbus"
	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []kit.Notification
	fails int
}

func (f *fakeSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return kit.MessageRef{}, errors.New("telegram: flood")
	}
	f.sent = append(f.sent, kit.Notification{Target: to, Text: text, Options: opt})
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) eventbus.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func TestNotifyDeliversThroughQueue(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, fs, logx.Nop(), bus)
	s.Start(context.Background())

	n := kit.Notification{Target: kit.ChatTarget{ChatID: 5, ThreadID: 2}, Text: "🧹 dishes assigned to alice."}
	if err := s.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	e := waitEvent(t, events, eventbus.NotifierSent)
	if ev := e.Data.(NotificationEvent); ev.ChatID != 5 || ev.ThreadID != 2 {
		t.Fatalf("event = %+v", ev)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if fs.count() != 1 {
		t.Fatalf("sent = %d", fs.count())
	}
	if err := s.Notify(context.Background(), n); !errors.Is(err, ErrStopped) {
		t.Fatalf("Notify after stop = %v", err)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{fails: 1}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	defer unsub()

	s := New(Config{Enabled: true, Workers: 1, RatePerSec: 100}, fs, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_ = s.Notify(context.Background(), kit.Notification{Target: kit.ChatTarget{ChatID: 1}, Text: "x"})
	e := waitEvent(t, events, eventbus.NotifierFailed)
	if ev := e.Data.(NotificationEvent); ev.Attempts != 1 || ev.Error == "" {
		t.Fatalf("event = %+v", ev)
	}
	if h := s.History(); len(h) != 1 || h[0].Error == "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestRetryWhenConfigured(t *testing.T) {
	t.Parallel()
	fs := &fakeSender{fails: 2}
	s := New(Config{Enabled: false, RatePerSec: 100, RetryMax: 2, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond}, fs, logx.Nop(), nil)

	// disabled notifier sends inline
	if err := s.Notify(context.Background(), kit.Notification{Target: kit.ChatTarget{ChatID: 1}, Text: "x"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("sent = %d, want 1", fs.count())
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 6; attempt++ {
		d := retryDelay(cfg, attempt)
		if d < 0 || d > time.Second {
			t.Fatalf("attempt %d: delay %v out of bounds", attempt, d)
		}
	}
}
