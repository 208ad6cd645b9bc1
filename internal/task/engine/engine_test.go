package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"chorebot/internal/eventbus"
	logx "chorebot/pkg/logx"
)

func startEngine(t *testing.T, cfg Config, bus eventbus.Bus) *Service {
	t.Helper()
	cfg.Enabled = true
	s := New(cfg, logx.Nop(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestEnqueueRunsTask(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()
	s := startEngine(t, Config{Workers: 1}, bus)

	done := make(chan struct{})
	if err := s.Enqueue(Task{Name: "hello", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == eventbus.TaskFinished {
				if ev := e.Data.(TaskEvent); ev.Name != "hello" || ev.ID == "" {
					t.Fatalf("unexpected event %+v", ev)
				}
				return
			}
		case <-deadline:
			t.Fatal("no task.finished event")
		}
	}
}

func TestOverlapSkip(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1}, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	slow := Task{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}
	if err := s.Enqueue(slow); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	<-started
	if err := s.Enqueue(slow); !errors.Is(err, ErrOverlapSkip) {
		t.Fatalf("second enqueue = %v, want ErrOverlapSkip", err)
	}
	close(release)
}

func TestPanicBecomesFailure(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1}, nil)

	var ran atomic.Int32
	_ = s.Enqueue(Task{Name: "boom", Run: func(ctx context.Context) error { panic("x") }})
	done := make(chan struct{})
	_ = s.Enqueue(Task{Name: "after", Run: func(ctx context.Context) error {
		ran.Add(1)
		close(done)
		return nil
	}})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}

	// history is written after Run returns
	var h []HistoryItem
	for i := 0; i < 100; i++ {
		if h = s.Snapshot().History; len(h) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(h) != 2 || h[0].Error == "" || h[1].Error != "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestEnqueueWhenStopped(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop(), nil)
	err := s.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("err = %v, want ErrStopped", err)
	}

	s = New(Config{}, logx.Nop(), nil)
	err = s.Enqueue(Task{Name: "x", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestTimeoutApplied(t *testing.T) {
	t.Parallel()
	s := startEngine(t, Config{Workers: 1, DefaultTimeout: 20 * time.Millisecond}, nil)

	got := make(chan error, 1)
	_ = s.Enqueue(Task{Name: "wait", Run: func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}})
	select {
	case err := <-got:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout not applied")
	}
}
