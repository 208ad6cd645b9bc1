package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chorebot/internal/task/engine"
	logx "chorebot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// AddCron registers job under name, replacing any schedule with the same
// name. The spec is validated even when the scheduler is not running, so a
// nil error means the schedule will fire once Start has been called.
// It returns the name, the stable identifier for Remove.
func (s *Service) AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) (string, error) {
	name = strings.TrimSpace(name)
	spec = strings.TrimSpace(spec)
	if name == "" {
		return "", errors.New("name required")
	}
	if job == nil {
		return "", errors.New("job required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeScheduleLocked(name)
	s.defs = append(s.defs, scheduleDef{
		name:    name,
		spec:    spec,
		timeout: timeout,
		job:     job,
		state:   &engine.RunState{},
	})
	if s.c == nil {
		return name, nil
	}

	d := &s.defs[len(s.defs)-1]
	if err := s.addCronLocked(d); err != nil {
		s.defs = s.defs[:len(s.defs)-1]
		s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
		return "", err
	}
	args := []logx.Field{logx.String("name", name), logx.String("spec", spec), logx.Duration("timeout", timeout)}
	if next := s.previewNextRunsLocked(spec, 3); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("schedule registered", args...)
	return name, nil
}

// Remove unschedules name. It returns true if something was removed and is
// safe to call when the scheduler is not running.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeScheduleLocked(name)
	s.mu.Unlock()

	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// Has reports whether a schedule with name is registered.
func (s *Service) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.defs {
		if d.name == name {
			return true
		}
	}
	return false
}

// removeScheduleLocked drops all defs matching name and unregisters them from
// cron if running. Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	name, timeout, run, state := d.name, d.timeout, d.job, d.state
	job := cron.FuncJob(func() {
		if s.engine == nil {
			return
		}
		err := s.engine.Enqueue(engine.Task{
			Name:    name,
			Timeout: timeout,
			Run:     run,
			Overlap: engine.OverlapSkipIfRunning,
			State:   state,
		})
		if err != nil {
			s.reportEnqueueError(name, err)
		}
	})

	eid, err := s.c.AddJob(d.spec, job)
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

// previewNextRunsLocked lists upcoming run times for debug logs.
// Call with s.mu held.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	loc := s.loc
	if loc == nil {
		loc = time.Local
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	t := time.Now().In(loc)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
