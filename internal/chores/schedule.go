package chores

import (
	"strings"

	"chorebot/internal/task/scheduler"
)

// ImmediateSchedule runs the assignment once, right away, and is never
// stored as a recurring chore.
const ImmediateSchedule = "@now"

func IsImmediate(expr string) bool {
	return strings.EqualFold(strings.TrimSpace(expr), ImmediateSchedule)
}

// IsValidSchedule accepts the immediate sentinel or anything the scheduler's
// cron parser accepts (5 fields, optional seconds, @descriptors).
func IsValidSchedule(expr string) bool {
	if IsImmediate(expr) {
		return true
	}
	return scheduler.Validate(expr) == nil
}
