package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chorebot/internal/chores"
	"chorebot/internal/commands"
	"chorebot/internal/config"
	"chorebot/internal/eventbus"
	"chorebot/internal/notifier"
	"chorebot/internal/observability/metrics"
	"chorebot/internal/observability/ops"
	rtsup "chorebot/internal/runtime/supervisor"
	"chorebot/internal/storage"
	"chorebot/internal/task/engine"
	"chorebot/internal/task/scheduler"
	kit "chorebot/internal/transport"
	telegram "chorebot/internal/transport/telegram/adapter"
	"chorebot/internal/transport/telegram/router"
	logx "chorebot/pkg/logx"
)

type App struct {
	version string

	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter *telegram.Adapter
	router  *router.CommandManager

	engine   *engine.Service
	sched    *scheduler.Service
	notif    *notifier.Service
	registry *chores.Registry
	metrics  *metrics.Collector
	ops      *ops.Service

	updates chan kit.Update
}

// New loads the config and builds every component. Nothing talks to the
// network until Start.
func New(cfgPath, version string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	// Set the chat target before enabling the chat sink so Apply does not
	// warn about a missing group_log.
	logCfg := mapLoggingConfig(cfg)
	chatEnabled := logCfg.Chat.Enabled
	logCfg.Chat.Enabled = false
	logSvc, root := logx.New(logCfg, ad)
	if chatID, _ := cfg.Telegram.GroupLogID(); chatID != 0 {
		logSvc.SetChatTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}
	logCfg.Chat.Enabled = chatEnabled
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))

	bus := eventbus.New()

	engCfg, err := mapTaskEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	engineSvc := engine.New(engCfg, root.With(logx.String("comp", "taskengine")), bus)
	schedSvc := scheduler.New(mapSchedulerConfig(cfg), engineSvc, root.With(logx.String("comp", "scheduler")))

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, ad, root.With(logx.String("comp", "notifier")), bus)

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	timeouts, err := mapChoreTimeouts(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	catalog := chores.CatalogFor(cfg.Chores.Locale)
	registry, err := chores.NewRegistry(chores.Options{
		Store:       store,
		Scheduler:   schedSvc,
		Notifier:    notifSvc,
		Allocator:   chores.NewAllocator(nil),
		Catalog:     catalog,
		Bus:         bus,
		Log:         root,
		FireTimeout: timeouts.fire,
		SaveTimeout: timeouts.save,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cmdm := router.NewCommandManager(root.With(logx.String("comp", "commands")), ad, router.Config{
		UnknownReply: catalog.Unknown,
		BusyReply:    catalog.GenericError,
	})
	cmdm.SetCommands(commands.New(commands.Deps{
		Registry:   registry,
		Catalog:    catalog,
		BotVersion: version,
	}).Commands())

	mc := metrics.New(version, registry.Stats)

	opsCfg, err := mapOpsConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		version:  version,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		adapter:  ad,
		router:   cmdm,
		engine:   engineSvc,
		sched:    schedSvc,
		notif:    notifSvc,
		registry: registry,
		metrics:  mc,
		updates:  make(chan kit.Update, 256),
	}
	a.ops = ops.New(opsCfg, ops.Deps{Health: a.health, Metrics: mc.Handler()}, root.With(logx.String("comp", "ops")))

	log.Info("app configured",
		logx.String("version", version),
		logx.String("locale", catalog.Locale),
		logx.String("storage", sc.Driver),
		logx.Bool("config_file", cfgm.FileExists()),
	)
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	runCtx := a.sup.Context()

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapTaskEngineConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		_, err := mapOpsConfig(cfg)
		return err
	})

	// Engine before scheduler: a trigger must always find a running pool.
	if a.engine.Enabled() {
		a.engine.Start(runCtx)
	}
	if a.notif.Enabled() {
		a.notif.Start(runCtx)
	}

	restoreCtx, cancel := context.WithTimeout(runCtx, 30*time.Second)
	err := a.registry.Restore(restoreCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("restore chores: %w", err)
	}
	if a.sched.Enabled() {
		a.sched.Start(runCtx)
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})
	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	a.sup.Go0("telegram.menu", func(c context.Context) {
		mctx, cancel := context.WithTimeout(c, 15*time.Second)
		defer cancel()
		if err := a.adapter.UpdateMenuCommands(mctx, a.router.MenuCommands()); err != nil {
			a.log.Warn("menu update failed", logx.Err(err))
		}
	})

	a.sup.Go("metrics", func(c context.Context) error {
		return a.metrics.Run(c, a.bus)
	})
	a.sup.Go0("eventbus.log", a.logEvents)

	if a.ops.Enabled() {
		a.ops.Start(runCtx)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	if a.cfgm.FileExists() {
		a.sup.Go("config.watch", a.cfgm.Watch)
	}

	stats := a.registry.Stats()
	sdNotify(a.log, sdReady)
	sdNotify(a.log, sdStatus(fmt.Sprintf("serving %d chats, %d chores", stats.Chats, stats.Chores)))
	a.log.Info("app started",
		logx.Int("chats", stats.Chats),
		logx.Int("chores", stats.Chores),
		logx.Int("timers", stats.Bindings),
	)
	return nil
}

func (a *App) logEvents(c context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-c.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

// reloadLoop applies hot-reloadable sections: logging, scheduler, task
// engine, notifier and ops. The rest needs a restart.
func (a *App) reloadLoop(c context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}
			if restart := config.RestartRequired(sections); len(restart) > 0 {
				a.log.Warn("config sections changed that need a restart", logx.Strings("sections", restart))
			}
			a.applyConfig(c, newCfg)
			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func (a *App) applyConfig(c context.Context, cfg *config.Config) {
	chatID, _ := cfg.Telegram.GroupLogID()
	a.logs.SetChatTarget(chatID, cfg.Logging.Telegram.ThreadID)
	a.logs.Apply(mapLoggingConfig(cfg))

	if engCfg, err := mapTaskEngineConfig(cfg); err != nil {
		a.log.Warn("invalid task_engine config; keeping previous", logx.Err(err))
	} else {
		wasOn := a.engine.Enabled()
		a.engine.Apply(c, engCfg)
		switch {
		case wasOn && !engCfg.Enabled:
			a.log.Info("task engine disabled via config")
			stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
			a.engine.Stop(stopCtx)
			cancel()
		case !wasOn && engCfg.Enabled:
			a.log.Info("task engine enabled via config")
			a.engine.Start(c)
		}
	}

	schedCfg := mapSchedulerConfig(cfg)
	wasOn := a.sched.Enabled()
	a.sched.Apply(schedCfg)
	switch {
	case wasOn && !schedCfg.Enabled:
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	case !wasOn && schedCfg.Enabled:
		a.log.Info("scheduler enabled via config")
		a.sched.Start(c)
	}

	if ncfg, err := mapNotifierConfig(cfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		wasOn := a.notif.Enabled()
		a.notif.Apply(ncfg)
		switch {
		case wasOn && !ncfg.Enabled:
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(c, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !wasOn && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(c)
		}
	}

	if oc, err := mapOpsConfig(cfg); err != nil {
		a.log.Warn("invalid ops config; keeping previous", logx.Err(err))
	} else {
		a.ops.Reconfigure(c, oc)
	}
}

// Stop shuts components down in reverse dependency order. Each step is
// bounded so one stuck component cannot stall the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, sdStopping)

	a.sup.Cancel()

	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < limit {
			limit = time.Until(dl)
		}
		if limit <= 0 {
			a.log.Warn("stop step skipped (no time left)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Triggers first so nothing fires into a half-stopped pipeline.
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("taskengine", 3*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	step("ops", time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", 2*time.Second, func(c context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	return a.logs.Close()
}
