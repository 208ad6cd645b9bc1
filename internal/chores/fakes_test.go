package chores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"chorebot/internal/task/scheduler"
	"chorebot/internal/transport"
)

type fakeJob struct {
	spec string
	run  func(ctx context.Context) error
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs map[string]fakeJob
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]fakeJob{}}
}

func (f *fakeScheduler) AddCron(name, spec string, _ time.Duration, job func(ctx context.Context) error) (string, error) {
	if err := scheduler.Validate(spec); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[name] = fakeJob{spec: spec, run: job}
	return name, nil
}

func (f *fakeScheduler) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[name]
	delete(f.jobs, name)
	return ok
}

func (f *fakeScheduler) job(name string) (fakeJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[name]
	return j, ok
}

func (f *fakeScheduler) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.jobs))
	for n := range f.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type fakeStore struct {
	mu    sync.Mutex
	snap  Snapshot
	has   bool
	saves int
	err   error
}

func (s *fakeStore) Load(context.Context) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), s.has, nil
}

func (s *fakeStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.snap = snap.Clone()
	s.has = true
	s.saves++
	return nil
}

func (s *fakeStore) saved() (Snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), s.saves
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []transport.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, msg transport.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) messages() []transport.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]transport.Notification(nil), n.sent...)
}

var errDiskFull = errors.New("disk full")
