// README: Order aggregate, status definitions, and the lifecycle transition table.
package order

import (
	"time"

	"dispatch/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusAssigned  Status = "assigned"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID           types.ID    `json:"order_id"`
	ClientID     types.ID    `json:"client_id"`
	RestaurantID types.ID    `json:"restaurant_id"`
	Restaurant   types.Point `json:"restaurant"`
	Items        []string    `json:"items,omitempty"`
	Status       Status      `json:"status"`
	// AssignedDriver is set exactly once, atomically with the transition to
	// StatusAssigned.
	AssignedDriver *types.ID `json:"assigned_driver,omitempty"`
	// ClientRating is recorded at most once, after delivery.
	ClientRating *int      `json:"client_rating,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is one recorded status transition for the journal.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow (diagram) as code.
// Cancellation is only reachable before a courier is committed.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusReady, StatusCancelled},
	StatusReady:    {StatusAssigned, StatusCancelled},
	StatusAssigned: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
