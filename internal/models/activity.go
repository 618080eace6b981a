package models

import "time"

type ActivityKind string

const (
	ActivityJoined       ActivityKind = "joined"
	ActivityLeft         ActivityKind = "left"
	ActivityDisconnected ActivityKind = "disconnected"
	ActivityMessage      ActivityKind = "message"
	ActivityRead         ActivityKind = "read"
)

// Activity is one lifecycle transition reported to the journal.
type Activity struct {
	Kind       ActivityKind
	Room       string
	Username   string
	MessageID  string
	OccurredAt time.Time
}
