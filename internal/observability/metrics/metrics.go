// Package metrics exposes chorebot counters in Prometheus format. Counters
// are fed from the event bus; gauges read the registry on scrape.
package metrics

import (
	"context"
	"net/http"

	"chorebot/internal/chores"
	"chorebot/internal/eventbus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chorebot"

type Collector struct {
	reg *prometheus.Registry

	choreChanges  *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	tasks         *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers every chorebot metric. stats may be nil.
func New(version string, stats func() chores.RegistryStats) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		reg: reg,
		choreChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chore_changes_total",
			Help:      "Chore definition changes by kind (added, removed, defaults).",
		}, []string{"kind"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Chore titles assigned, by trigger (scheduled, immediate).",
		}, []string{"trigger"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Task engine runs by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifier deliveries by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		c.choreChanges, c.assignments, c.tasks, c.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version"})
	info.WithLabelValues(version).Set(1)
	reg.MustRegister(info)

	if stats != nil {
		gauge := func(name, help string, pick func(chores.RegistryStats) int) prometheus.Collector {
			return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(pick(stats())) })
		}
		reg.MustRegister(
			gauge("chats", "Chats with stored state.", func(s chores.RegistryStats) int { return s.Chats }),
			gauge("chores", "Stored chore definitions.", func(s chores.RegistryStats) int { return s.Chores }),
			gauge("timer_bindings", "Live chore timers.", func(s chores.RegistryStats) int { return s.Bindings }),
		)
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Observe updates counters for one bus event. Unknown types are ignored.
func (c *Collector) Observe(e eventbus.Event) {
	switch e.Type {
	case eventbus.ChoreAdded:
		c.choreChanges.WithLabelValues("added").Inc()
	case eventbus.ChoreRemoved:
		c.choreChanges.WithLabelValues("removed").Inc()
	case eventbus.ChoreDefaults:
		c.choreChanges.WithLabelValues("defaults").Inc()
	case eventbus.ChoreAssigned:
		ev, ok := e.Data.(chores.AssignedEvent)
		if !ok {
			return
		}
		trigger := "scheduled"
		if ev.Key < 0 {
			trigger = "immediate"
		}
		c.assignments.WithLabelValues(trigger).Add(float64(len(ev.Assignments)))
	case eventbus.TaskStarted:
		c.tasks.WithLabelValues("started").Inc()
	case eventbus.TaskFinished:
		c.tasks.WithLabelValues("finished").Inc()
	case eventbus.TaskFailed:
		c.tasks.WithLabelValues("failed").Inc()
	case eventbus.TaskDropped:
		c.tasks.WithLabelValues("dropped").Inc()
	case eventbus.NotifierQueued:
		c.notifications.WithLabelValues("queued").Inc()
	case eventbus.NotifierSent:
		c.notifications.WithLabelValues("sent").Inc()
	case eventbus.NotifierFailed:
		c.notifications.WithLabelValues("failed").Inc()
	case eventbus.NotifierDropped:
		c.notifications.WithLabelValues("dropped").Inc()
	}
}

// Run feeds bus events into the collector until ctx is done.
func (c *Collector) Run(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			c.Observe(e)
		}
	}
}
