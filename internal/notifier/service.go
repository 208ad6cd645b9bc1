package notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"chorebot/internal/eventbus"
	rtsup "chorebot/internal/runtime/supervisor"
	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"

	"golang.org/x/time/rate"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

const historySize = 300

// Service is an async notification pipeline: queue, worker pool, rate
// limit and optional retry. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sender kit.Sender
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan kit.Notification
	sup      *rtsup.Supervisor
	stopDone chan struct{} // non-nil while stopping

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log, bus: bus}
	s.applyLocked(cfg)
	return s
}

// Supervisor returns the notifier's internal supervisor (nil if not started).
func (s *Service) Supervisor() *rtsup.Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply updates rate and retry settings. Pool sizing takes effect on the
// next Start.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 512
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	s.cfg = cfg
	// burst = rate per sec, so short spikes don't block too hard
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}

	s.queue = make(chan kit.Notification, s.cfg.QueueSize)
	s.accepting = true
	workers := s.cfg.Workers
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "notifier"))),
		// notifier failures should not take down the whole app
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	q := s.queue
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.GoRestart(fmt.Sprintf("worker.%d", i), func(c context.Context) error {
			s.workerLoop(c, q)
			s.mu.Lock()
			stopping := s.stopDone != nil
			s.mu.Unlock()
			if stopping {
				return context.Canceled
			}
			if c.Err() != nil {
				return c.Err()
			}
			return errors.New("notifier worker exited unexpectedly")
		})
	}
	s.log.Info("notifier started", logx.Int("workers", workers), logx.Int("queue", cap(q)))
}

// Stop stops intake and drains the queue until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	q := s.queue
	sup := s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		// In-flight Notify calls finish before the queue closes.
		s.sendWG.Wait()
		close(q)
		_ = sup.Wait(context.Background())

		s.mu.Lock()
		s.queue = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
		s.log.Info("notifier stopped")
	case <-ctx.Done():
		sup.Cancel()
		s.log.Warn("notifier stop timed out; pending notifications dropped", logx.Err(ctx.Err()))
	}
}

// Notify queues n for delivery. A disabled notifier sends inline.
func (s *Service) Notify(ctx context.Context, n kit.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return s.send(ctx, n)
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	now := time.Now()
	select {
	case q <- n:
		eventbus.Publish(s.bus, eventbus.NotifierQueued, NotificationEvent{ChatID: n.Target.ChatID, ThreadID: n.Target.ThreadID, At: now})
		return nil
	default:
		eventbus.Publish(s.bus, eventbus.NotifierDropped, NotificationEvent{ChatID: n.Target.ChatID, ThreadID: n.Target.ThreadID, At: now, Error: ErrQueueFull.Error()})
		return ErrQueueFull
	}
}

func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) appendHistory(it HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan kit.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-q:
			if !ok {
				return
			}
			_ = s.send(ctx, n)
		}
	}
}

// send delivers n with rate limiting and up to RetryMax retries.
func (s *Service) send(ctx context.Context, n kit.Notification) error {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	if s.sender == nil || n.Text == "" {
		return nil
	}

	maxAttempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := s.sender.SendText(callCtx, n.Target, n.Text, n.Options)
		cancel()
		if err == nil {
			now := time.Now()
			s.appendHistory(HistoryItem{At: now, ChatID: n.Target.ChatID, Text: n.Text})
			eventbus.Publish(s.bus, eventbus.NotifierSent, NotificationEvent{ChatID: n.Target.ChatID, ThreadID: n.Target.ThreadID, At: now, Attempts: attempt})
			return nil
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", maxAttempts))

		if attempt >= maxAttempts {
			break
		}
		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	now := time.Now()
	s.appendHistory(HistoryItem{At: now, ChatID: n.Target.ChatID, Text: n.Text, Error: lastErr.Error()})
	s.log.Warn("notification failed", logx.Int64("chat_id", n.Target.ChatID), logx.Int("attempts", maxAttempts), logx.Err(lastErr))
	eventbus.Publish(s.bus, eventbus.NotifierFailed, NotificationEvent{ChatID: n.Target.ChatID, ThreadID: n.Target.ThreadID, At: now, Attempts: maxAttempts, Error: lastErr.Error()})
	return lastErr
}

// retryDelay is the wait before attempt+1: exponential from RetryBase,
// capped at RetryMaxDelay, with 0.7..1.3 jitter.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(max(d, 0), cfg.RetryMaxDelay)
}
