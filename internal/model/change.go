package model

import "time"

// ChangeOp names the kind of write that produced an EventChange.
type ChangeOp string

const (
	ChangeOpCreated   ChangeOp = "created"
	ChangeOpUpdated   ChangeOp = "updated"
	ChangeOpWinnerSet ChangeOp = "winner_set"
	ChangeOpDeleted   ChangeOp = "deleted"
)

func (o ChangeOp) IsValid() bool {
	switch o {
	case ChangeOpCreated, ChangeOpUpdated, ChangeOpWinnerSet, ChangeOpDeleted:
		return true
	}
	return false
}

// EventChange is published on the change feed after a successful write.
// Event is nil for deletes and carries only the winner for winner_set.
type EventChange struct {
	Op         ChangeOp  `json:"op"`
	EventID    int64     `json:"event_id"`
	Event      *Event    `json:"event,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEventChange(op ChangeOp, eventID int64, event *Event) *EventChange {
	return &EventChange{
		Op:         op,
		EventID:    eventID,
		Event:      event,
		OccurredAt: time.Now().UTC(),
	}
}
