package scheduler

import (
	"context"
	"sync"
	"time"

	"chorebot/internal/task/engine"
	logx "chorebot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Config controls the scheduler (trigger) service.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Europe/Berlin"
}

type scheduleDef struct {
	name    string
	spec    string
	timeout time.Duration
	job     func(ctx context.Context) error
	entryID cron.EntryID
	state   *engine.RunState
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	engine *engine.Service

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// Enqueue error throttling, keyed by schedule name.
	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
}

type Snapshot struct {
	Enabled   bool            `json:"enabled"`
	Running   bool            `json:"running"`
	Timezone  string          `json:"timezone"`
	Schedules []ScheduleInfo  `json:"schedules"`
	Engine    engine.Snapshot `json:"engine"`
}
