package models

import "time"

// Outbox event types. Unknown types found in storage are dead-lettered by the
// dispatcher, never retried.
const (
	EventCreateAuthor = "CREATE_AUTHOR"
	EventDeleteLink   = "DELETE_LINK"
)

// OutboxEvent is a durable record of work owed to the external author
// registry. Request paths only append; the dispatcher owns everything else.
type OutboxEvent struct {
	ID         int64
	EventType  string
	Payload    string
	UserID     int64
	CreatedAt  time.Time
	Processed  bool
	RetryCount int
}
