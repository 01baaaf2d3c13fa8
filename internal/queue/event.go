// Package queue defines the catalog activity messages exchanged over the
// broker and the consumer that records them.
package queue

import "time"

// ActivityQueue is the durable queue every activity event is routed to.
const ActivityQueue = "catalog.activity"

// Activity event types.
const (
	EventBookAdded      = "book.added"
	EventBookUpdated    = "book.updated"
	EventBookDeleted    = "book.deleted"
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventUserActivated  = "user.activated"
	EventUserDisabled   = "user.deactivated"
)

// ActivityEvent is published after a catalog or account change succeeds. It
// carries enough to write an audit line without querying the database.
type ActivityEvent struct {
	Type    string `json:"type"`
	BookID  uint64 `json:"book_id,omitempty"`
	UserID  uint64 `json:"user_id,omitempty"`
	ActorID uint64 `json:"actor_id,omitempty"`
	Title   string `json:"title,omitempty"`
	At      string `json:"at"`
}

// NewActivityEvent stamps an event with the current UTC time.
func NewActivityEvent(typ string) ActivityEvent {
	return ActivityEvent{Type: typ, At: time.Now().UTC().Format(time.RFC3339)}
}
