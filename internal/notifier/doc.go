// Package notifier delivers scheduled chore announcements.
//
// Notifications are queued and sent by a small worker pool through a
// transport.Sender, under a token-bucket rate limit so a burst of cron
// triggers at the top of the hour does not trip Telegram's flood control.
// Retries are off by default (retry_max: 0).
//
// When the notifier is disabled, Notify sends inline instead of queueing.
package notifier
