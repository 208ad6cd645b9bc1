// Package chores is the chore scheduling and fair-assignment core.
//
// A Registry owns every chat's chore definitions and assignment counters.
// Each persisted chore is bound to a named cron schedule (see binding.go);
// when it fires, the Allocator hands every title to the least loaded
// assignee and the result is delivered through the Notifier port.
//
// The package talks to the outside world only through small ports (Store,
// Scheduler, Notifier) so it can be driven entirely from tests.
package chores
