// Package scheduler registers named cron schedules and turns their triggers
// into task engine work.
//
// The scheduler never runs jobs itself. It is responsible only for:
//   - registering and removing schedules by name
//   - computing next trigger times in the configured timezone
//   - enqueueing tasks into the task engine
package scheduler
