package app

import (
	"context"
	"time"

	"chorebot/internal/chores"
	rtsup "chorebot/internal/runtime/supervisor"
	"chorebot/internal/task/scheduler"
)

type healthReport struct {
	Status    string               `json:"status"`
	Version   string               `json:"version"`
	Time      time.Time            `json:"time"`
	Registry  chores.RegistryStats `json:"registry"`
	Scheduler scheduler.Snapshot   `json:"scheduler"`
	Notifier  notifierHealth       `json:"notifier"`
	Runtime   rtsup.Snapshot       `json:"runtime"`
	Adapter   *rtsup.Snapshot      `json:"adapter,omitempty"`
	Router    *rtsup.Snapshot      `json:"router,omitempty"`
}

type notifierHealth struct {
	Enabled bool `json:"enabled"`
	Recent  int  `json:"recent"`
	Failed  int  `json:"recent_failed"`
}

// health backs the ops /healthz endpoint. The process is unhealthy once
// the app supervisor recorded a fatal error or was canceled.
func (a *App) health(ctx context.Context) (any, bool) {
	rep := healthReport{
		Status:    "ok",
		Version:   a.version,
		Time:      time.Now(),
		Registry:  a.registry.Stats(),
		Scheduler: a.sched.Snapshot(),
		Notifier:  a.notifierHealth(),
		Runtime:   a.sup.Snapshot(),
	}
	if sup := a.adapter.Supervisor(); sup != nil {
		snap := sup.Snapshot()
		rep.Adapter = &snap
	}
	if sup := a.router.Supervisor(); sup != nil {
		snap := sup.Snapshot()
		rep.Router = &snap
	}

	healthy := a.sup.Err() == nil && a.sup.Context().Err() == nil && ctx.Err() == nil
	if !healthy {
		rep.Status = "degraded"
	}
	return rep, healthy
}

func (a *App) notifierHealth() notifierHealth {
	h := notifierHealth{Enabled: a.notif.Enabled()}
	for _, it := range a.notif.History() {
		h.Recent++
		if it.Error != "" {
			h.Failed++
		}
	}
	return h
}
