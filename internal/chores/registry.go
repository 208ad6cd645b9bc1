package chores

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"chorebot/internal/eventbus"
	logx "chorebot/pkg/logx"
)

// Store is the persistence port. Load reports ok=false when nothing has been
// saved yet. Save overwrites the whole document.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

type Options struct {
	Store     Store
	Scheduler Scheduler
	Notifier  Notifier
	Allocator *Allocator
	Catalog   *Catalog
	Bus       eventbus.Bus
	Log       logx.Logger

	// FireTimeout bounds one timer fire (0 = task engine default).
	FireTimeout time.Duration
	// SaveTimeout bounds one persistence write.
	SaveTimeout time.Duration
}

// AddChoreRequest describes a chore to add. With UseDefaults the chat's
// default assignees replace Assignees.
type AddChoreRequest struct {
	Titles      []string
	Schedule    string
	Assignees   []string
	UseDefaults bool
	ThreadID    int
}

// AddResult is either a stored chore or, for the immediate schedule, the
// assignment text to deliver right away.
type AddResult struct {
	Chore     Chore
	Immediate bool
	Text      string
}

// ChoreEvent is published for chore.added, chore.removed and chore.defaults.
type ChoreEvent struct {
	ChatID    int64    `json:"chat_id"`
	Key       int      `json:"key"`
	Schedule  string   `json:"schedule,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// AssignedEvent is published for chore.assigned. Key is -1 for immediate
// assignments.
type AssignedEvent struct {
	ChatID      int64        `json:"chat_id"`
	Key         int          `json:"key"`
	Assignments []Assignment `json:"assignments"`
}

type RegistryStats struct {
	Chats    int `json:"chats"`
	Chores   int `json:"chores"`
	Bindings int `json:"bindings"`
}

// Registry owns all chat state and the timer bindings of persisted chores.
//
// mu guards chats, bindings, bindSeq and gen; a chore and its binding are always
// added or removed under one critical section. saveMu serializes writes to
// the store and is taken before mu, never after.
type Registry struct {
	mu       sync.Mutex
	chats    map[int64]*ChatState
	bindings map[int64]map[int]uint64
	bindSeq  uint64
	gen      uint64

	saveMu   sync.Mutex
	savedGen uint64

	store       Store
	sched       Scheduler
	notifier    Notifier
	alloc       *Allocator
	cat         *Catalog
	bus         eventbus.Bus
	log         logx.Logger
	fireTimeout time.Duration
	saveTimeout time.Duration
}

func NewRegistry(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, errors.New("chores: store required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("chores: scheduler required")
	}
	if opts.Allocator == nil {
		opts.Allocator = NewAllocator(nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = CatalogFor(DefaultLocale)
	}
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}
	return &Registry{
		chats:       map[int64]*ChatState{},
		bindings:    map[int64]map[int]uint64{},
		store:       opts.Store,
		sched:       opts.Scheduler,
		notifier:    opts.Notifier,
		alloc:       opts.Allocator,
		cat:         opts.Catalog,
		bus:         opts.Bus,
		log:         opts.Log.With(logx.String("comp", "chores")),
		fireTimeout: opts.FireTimeout,
		saveTimeout: opts.SaveTimeout,
	}, nil
}

// Catalog returns the message catalog used for assignment texts.
func (r *Registry) Catalog() *Catalog { return r.cat }

// Restore replaces the in-memory state with the stored snapshot and binds a
// timer for every persisted chore. Chores whose schedule cannot be bound are
// dropped (and the cleaned state saved) so every stored chore has a timer.
func (r *Registry) Restore(ctx context.Context) error {
	snap, ok, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chore state: %w", err)
	}
	if !ok {
		r.log.Info("no stored chore state, starting empty")
		snap = Snapshot{}
	}

	r.mu.Lock()
	r.unbindAllLocked()
	r.chats = make(map[int64]*ChatState, len(snap.Chats))
	dropped := 0
	for chatID, st := range snap.Chats {
		if st == nil {
			continue
		}
		st = st.clone()
		st.AssignmentCounts = normalizeCounts(st.AssignmentCounts)
		st.DefaultAssignees = NormalizeAssignees(st.DefaultAssignees)
		kept := st.Chores[:0]
		seen := make(map[int]struct{}, len(st.Chores))
		for _, c := range st.Chores {
			if _, dup := seen[c.Key]; dup {
				r.log.Warn("dropping stored chore with duplicate key", chatField(chatID), keyField(c.Key))
				dropped++
				continue
			}
			if IsImmediate(c.Schedule) || !IsValidSchedule(c.Schedule) {
				r.log.Warn("dropping stored chore with unusable schedule", chatField(chatID), keyField(c.Key), logx.String("schedule", c.Schedule))
				dropped++
				continue
			}
			if err := r.bindLocked(chatID, c); err != nil {
				r.log.Warn("dropping stored chore, timer bind failed", chatField(chatID), keyField(c.Key), logx.Err(err))
				dropped++
				continue
			}
			seen[c.Key] = struct{}{}
			kept = append(kept, c)
		}
		st.Chores = kept
		r.chats[chatID] = st
	}
	if dropped > 0 {
		r.gen++
	}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.log.Info("chore state restored", logx.Int("chats", stats.Chats), logx.Int("chores", stats.Chores), logx.Int("dropped", dropped))
	if dropped > 0 {
		r.persist(ctx)
	}
	return nil
}

// AddChore validates and stores a chore and binds its timer. For the
// immediate schedule nothing is stored; the assignment runs once and its
// text is returned in AddResult.Text.
func (r *Registry) AddChore(ctx context.Context, chatID int64, req AddChoreRequest) (AddResult, error) {
	schedule := strings.TrimSpace(req.Schedule)
	if !IsValidSchedule(schedule) {
		return AddResult{}, ErrInvalidSchedule
	}
	titles := normalizeTitles(req.Titles)
	if len(titles) == 0 {
		return AddResult{}, ErrNoTitles
	}

	r.mu.Lock()
	assignees := NormalizeAssignees(req.Assignees)
	if req.UseDefaults {
		st := r.chats[chatID]
		if st == nil || len(st.DefaultAssignees) == 0 {
			r.mu.Unlock()
			return AddResult{}, ErrNoDefaultAssignees
		}
		assignees = slices.Clone(st.DefaultAssignees)
	}
	if len(assignees) == 0 {
		r.mu.Unlock()
		return AddResult{}, ErrNoEligibleAssignees
	}

	if IsImmediate(schedule) {
		text, assigned, err := r.runAssignmentLocked(chatID, assignees, titles)
		r.mu.Unlock()
		if err != nil {
			return AddResult{}, err
		}
		if text != "" {
			r.publishAssigned(chatID, -1, assigned)
			r.persist(ctx)
		}
		return AddResult{Immediate: true, Text: text}, nil
	}

	st := r.stateLocked(chatID)
	c := Chore{
		Key:       nextKey(st.Chores),
		Titles:    titles,
		Schedule:  schedule,
		Assignees: assignees,
		ThreadID:  req.ThreadID,
	}
	if err := r.bindLocked(chatID, c); err != nil {
		r.mu.Unlock()
		return AddResult{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	st.Chores = append(st.Chores, c)
	r.gen++
	r.mu.Unlock()

	r.log.Info("chore added", chatField(chatID), keyField(c.Key), logx.String("schedule", c.Schedule), logx.Strings("assignees", c.Assignees))
	eventbus.Publish(r.bus, eventbus.ChoreAdded, ChoreEvent{ChatID: chatID, Key: c.Key, Schedule: c.Schedule, Assignees: c.Assignees})
	r.persist(ctx)
	return AddResult{Chore: c.clone()}, nil
}

// RemoveChore deletes the chore with key and stops its timer.
func (r *Registry) RemoveChore(ctx context.Context, chatID int64, key int) error {
	r.mu.Lock()
	st := r.chats[chatID]
	if st == nil || len(st.Chores) == 0 {
		r.mu.Unlock()
		return ErrUnknownChatData
	}
	idx := slices.IndexFunc(st.Chores, func(c Chore) bool { return c.Key == key })
	if idx < 0 {
		r.mu.Unlock()
		return ErrInvalidKey
	}
	r.unbindLocked(chatID, key)
	st.Chores = slices.Delete(st.Chores, idx, idx+1)
	r.gen++
	r.mu.Unlock()

	r.log.Info("chore removed", chatField(chatID), keyField(key))
	eventbus.Publish(r.bus, eventbus.ChoreRemoved, ChoreEvent{ChatID: chatID, Key: key})
	r.persist(ctx)
	return nil
}

// ListChores returns a copy of the chat's chores in stored order. ok is
// false when the chat has never been seen.
func (r *Registry) ListChores(chatID int64) ([]Chore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.chats[chatID]
	if st == nil {
		return nil, false
	}
	out := make([]Chore, 0, len(st.Chores))
	for _, c := range st.Chores {
		out = append(out, c.clone())
	}
	return out, true
}

func (r *Registry) AssignmentCounts(chatID int64) (map[string]int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.chats[chatID]
	if st == nil {
		return nil, false
	}
	return maps.Clone(st.AssignmentCounts), true
}

func (r *Registry) DefaultAssignees(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.chats[chatID]; st != nil {
		return slices.Clone(st.DefaultAssignees)
	}
	return nil
}

// SetDefaultAssignees overwrites the chat's default users with the
// normalized list.
func (r *Registry) SetDefaultAssignees(ctx context.Context, chatID int64, users []string) error {
	users = NormalizeAssignees(users)
	if len(users) == 0 {
		return ErrNoEligibleAssignees
	}
	r.mu.Lock()
	r.stateLocked(chatID).DefaultAssignees = users
	r.gen++
	r.mu.Unlock()

	r.log.Info("default assignees set", chatField(chatID), logx.Strings("users", users))
	eventbus.Publish(r.bus, eventbus.ChoreDefaults, ChoreEvent{ChatID: chatID, Key: -1, Assignees: slices.Clone(users)})
	r.persist(ctx)
	return nil
}

// RunAssignment assigns titles among assignees once and returns one line per
// title. Counters are updated and saved when anything was assigned; empty
// titles return "" without touching state.
func (r *Registry) RunAssignment(ctx context.Context, chatID int64, assignees, titles []string) (string, error) {
	r.mu.Lock()
	text, assigned, err := r.runAssignmentLocked(chatID, assignees, titles)
	r.mu.Unlock()
	if err != nil || text == "" {
		return "", err
	}
	r.publishAssigned(chatID, -1, assigned)
	r.persist(ctx)
	return text, nil
}

// runAssignmentLocked zero-initializes unseen counters, allocates and
// renders. Call with r.mu held.
func (r *Registry) runAssignmentLocked(chatID int64, assignees, titles []string) (string, []Assignment, error) {
	if len(titles) == 0 {
		return "", nil, nil
	}
	pool := NormalizeAssignees(assignees)
	if len(pool) == 0 {
		return "", nil, ErrNoEligibleAssignees
	}
	st := r.stateLocked(chatID)
	for _, p := range pool {
		if _, ok := st.AssignmentCounts[p]; !ok {
			st.AssignmentCounts[p] = 0
		}
	}
	assigned, err := r.alloc.Allocate(titles, pool, st.AssignmentCounts)
	if err != nil {
		return "", nil, err
	}
	r.gen++

	lines := make([]string, 0, len(assigned))
	for _, a := range assigned {
		lines = append(lines, r.cat.AssignmentLine(a))
	}
	return strings.Join(lines, "\n"), assigned, nil
}

func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() RegistryStats {
	st := RegistryStats{Chats: len(r.chats)}
	for _, c := range r.chats {
		st.Chores += len(c.Chores)
	}
	for _, keys := range r.bindings {
		st.Bindings += len(keys)
	}
	return st
}

// Snapshot returns a deep copy of all chat state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Chats: r.chats}.Clone()
}

// stateLocked returns the chat's state, creating it on first use.
func (r *Registry) stateLocked(chatID int64) *ChatState {
	st := r.chats[chatID]
	if st == nil {
		st = newChatState()
		r.chats[chatID] = st
	}
	if st.AssignmentCounts == nil {
		st.AssignmentCounts = map[string]int{}
	}
	return st
}

// persist writes a snapshot taken after the caller's mutation. Failures are
// logged and swallowed; the in-memory state stays authoritative.
func (r *Registry) persist(ctx context.Context) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	gen := r.gen
	snap := Snapshot{Chats: r.chats}.Clone()
	r.mu.Unlock()
	if gen == r.savedGen {
		return
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.saveTimeout)
	defer cancel()
	if err := r.store.Save(sctx, snap); err != nil {
		r.log.Error("saving chore state failed", logx.Err(fmt.Errorf("%w: %w", ErrPersistenceWrite, err)))
		return
	}
	r.savedGen = gen
}

func (r *Registry) publishAssigned(chatID int64, key int, assigned []Assignment) {
	eventbus.Publish(r.bus, eventbus.ChoreAssigned, AssignedEvent{ChatID: chatID, Key: key, Assignments: assigned})
}

// nextKey is the highest key in use + 1, or 0 for an empty chat.
func nextKey(list []Chore) int {
	if len(list) == 0 {
		return 0
	}
	return slices.MaxFunc(list, func(a, b Chore) int { return cmp.Compare(a.Key, b.Key) }).Key + 1
}

func chatField(id int64) logx.Field { return logx.Int64("chat_id", id) }
func keyField(key int) logx.Field   { return logx.Int("key", key) }
