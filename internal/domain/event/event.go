// Package event holds the domain events a short link raises over its
// lifecycle and the base plumbing they share.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventID is the unique identifier of this occurrence.
	EventID() string
	// EventName is the stable name the event is routed by.
	EventName() string
	// OccurredAt is when the event happened.
	OccurredAt() time.Time
	// AggregateID identifies the aggregate that raised the event; for
	// link events this is the short code.
	AggregateID() string
}

// Base carries the fields common to all events. Concrete events embed it
// and add their own payload.
type Base struct {
	ID        string    `json:"event_id"`
	At        time.Time `json:"occurred_at"`
	Aggregate string    `json:"aggregate_id"`
}

// NewBase stamps a fresh Base for the given aggregate. IDs are UUIDv7 so
// event ids sort roughly by creation time.
func NewBase(aggregateID string) Base {
	return Base{
		ID:        uuid.Must(uuid.NewV7()).String(),
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
	}
}

func (e Base) EventID() string { return e.ID }

func (e Base) OccurredAt() time.Time { return e.At }

func (e Base) AggregateID() string { return e.Aggregate }
