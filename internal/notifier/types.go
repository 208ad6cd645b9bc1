package notifier

import "time"

// Config controls the async notification pipeline.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

type HistoryItem struct {
	At     time.Time `json:"at"`
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	Error  string    `json:"error,omitempty"`
}

// NotificationEvent is published on the event bus for notifier lifecycle
// events.
type NotificationEvent struct {
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	At       time.Time `json:"at"`
	Attempts int       `json:"attempts,omitempty"`
	Error    string    `json:"error,omitempty"`
}
