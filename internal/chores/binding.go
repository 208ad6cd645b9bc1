package chores

import (
	"context"
	"fmt"
	"slices"
	"time"

	"chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

// Scheduler is the time-trigger facility chores are bound to. AddCron must
// replace an existing schedule of the same name.
type Scheduler interface {
	AddCron(name, spec string, timeout time.Duration, job func(ctx context.Context) error) (string, error)
	Remove(name string) bool
}

// Notifier delivers assignment messages produced by timer fires.
type Notifier interface {
	Notify(ctx context.Context, n transport.Notification) error
}

// firePlan is the immutable data a timer needs to fire.
type firePlan struct {
	ChatID    int64
	ThreadID  int
	Key       int
	Assignees []string
	Titles    []string

	// Seq identifies the binding, so a trigger from a removed chore never
	// fires a later chore that reused its key.
	Seq uint64
}

func planFor(chatID int64, c Chore, seq uint64) firePlan {
	return firePlan{
		ChatID:    chatID,
		ThreadID:  c.ThreadID,
		Key:       c.Key,
		Assignees: slices.Clone(c.Assignees),
		Titles:    slices.Clone(c.Titles),
		Seq:       seq,
	}
}

// BindingName is the scheduler name of a chore's timer. It is derived from
// the chore key, so removing one chore never touches another's timer.
func BindingName(chatID int64, key int) string {
	return fmt.Sprintf("chore:%d:%d", chatID, key)
}

// bindLocked registers the timer for c. Call with r.mu held.
func (r *Registry) bindLocked(chatID int64, c Chore) error {
	r.bindSeq++
	plan := planFor(chatID, c, r.bindSeq)
	if _, err := r.sched.AddCron(BindingName(chatID, c.Key), c.Schedule, r.fireTimeout, func(ctx context.Context) error {
		return r.fire(ctx, plan)
	}); err != nil {
		return err
	}
	keys := r.bindings[chatID]
	if keys == nil {
		keys = map[int]uint64{}
		r.bindings[chatID] = keys
	}
	keys[c.Key] = plan.Seq
	return nil
}

// unbindLocked stops the timer for key. Call with r.mu held.
func (r *Registry) unbindLocked(chatID int64, key int) {
	r.sched.Remove(BindingName(chatID, key))
	keys := r.bindings[chatID]
	delete(keys, key)
	if len(keys) == 0 {
		delete(r.bindings, chatID)
	}
}

func (r *Registry) unbindAllLocked() {
	for chatID, keys := range r.bindings {
		for key := range keys {
			r.sched.Remove(BindingName(chatID, key))
		}
		delete(r.bindings, chatID)
	}
}

// fire runs one scheduled assignment. A trigger that was queued before its
// chore got removed finds no chore and does nothing.
func (r *Registry) fire(ctx context.Context, plan firePlan) error {
	r.mu.Lock()
	if seq, ok := r.bindings[plan.ChatID][plan.Key]; !ok || seq != plan.Seq {
		r.mu.Unlock()
		r.log.Debug("stale chore trigger ignored", chatField(plan.ChatID), keyField(plan.Key))
		return nil
	}
	text, assigned, err := r.runAssignmentLocked(plan.ChatID, plan.Assignees, plan.Titles)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	r.publishAssigned(plan.ChatID, plan.Key, assigned)
	sendErr := r.deliver(ctx, plan.ChatID, plan.ThreadID, text)
	r.persist(ctx)
	return sendErr
}

func (r *Registry) deliver(ctx context.Context, chatID int64, threadID int, text string) error {
	if r.notifier == nil {
		return nil
	}
	err := r.notifier.Notify(ctx, transport.Notification{
		Target: transport.ChatTarget{ChatID: chatID, ThreadID: threadID},
		Text:   text,
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTransportSend, err)
		r.log.Warn("assignment delivery failed", chatField(chatID), logx.Err(err))
		return err
	}
	return nil
}
