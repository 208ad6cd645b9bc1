package scheduler

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"chorebot/internal/task/engine"
	logx "chorebot/pkg/logx"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		spec string
		ok   bool
	}{
		{"0 9 * * *", true},
		{"*/5 * * * *", true},
		{"30 0 9 * * 1-5", true},
		{"@daily", true},
		{"@every 1h30m", true},
		{"", false},
		{"not a schedule", false},
		{"61 * * * *", false},
		{"@now", false},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := Validate(tt.spec)
			if (err == nil) != tt.ok {
				t.Fatalf("Validate(%q) = %v, want ok=%v", tt.spec, err, tt.ok)
			}
		})
	}
}

func TestAddCronUpsertAndRemove(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, nil, logx.Nop())
	job := func(context.Context) error { return nil }

	if _, err := s.AddCron("chore:1:0", "0 9 * * *", 0, job); err != nil {
		t.Fatalf("AddCron: %v", err)
	}
	if _, err := s.AddCron("chore:1:0", "0 10 * * *", 0, job); err != nil {
		t.Fatalf("AddCron upsert: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "0 10 * * *" {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}

	if _, err := s.AddCron("bad", "nope", 0, job); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if s.Has("bad") {
		t.Fatal("invalid schedule must not be kept")
	}

	if !s.Remove("chore:1:0") {
		t.Fatal("Remove returned false")
	}
	if s.Remove("chore:1:0") {
		t.Fatal("second Remove returned true")
	}
}

func TestTriggerEnqueuesIntoEngine(t *testing.T) {
	t.Parallel()
	eng := engine.New(engine.Config{Enabled: true, Workers: 1}, logx.Nop(), nil)
	eng.Start(context.Background())
	s := New(Config{Enabled: true, Timezone: "UTC"}, eng, logx.Nop())
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
		eng.Stop(ctx)
	})

	fired := make(chan struct{}, 4)
	if _, err := s.AddCron("tick", "@every 1s", time.Second, func(context.Context) error {
		fired <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("AddCron: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("schedule never fired")
	}

	snap := s.Snapshot()
	if !snap.Running || snap.Timezone != "UTC" || snap.Schedules[0].Next.IsZero() {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestApplyTimezoneKeepsDefinitions(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Timezone: "UTC"}, nil, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_, _ = s.AddCron("a", "0 9 * * *", 0, func(context.Context) error { return nil })
	s.Apply(Config{Enabled: true, Timezone: "Europe/Berlin"})

	snap := s.Snapshot()
	if snap.Timezone != "Europe/Berlin" || len(snap.Schedules) != 1 || snap.Schedules[0].Next.IsZero() {
		t.Fatalf("snapshot after tz change = %+v", snap)
	}
}
