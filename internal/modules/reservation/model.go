// README: Reservation aggregate and status definitions.
package reservation

import (
	"time"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusConfirmed       Status = "confirmed"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// AllowedTransitions represents the reservation status flow as code. Statuses
// advance monotonically except cancellation, which is terminal from any
// non-terminal status.
var AllowedTransitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusConfirmed, StatusCancelled},
	StatusAwaitingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:       {StatusCompleted, StatusCancelled},
}

var allowedTransitionSet = buildTransitionSet(AllowedTransitions)

func buildTransitionSet(transitions map[Status][]Status) map[Status]map[Status]struct{} {
	set := make(map[Status]map[Status]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[Status]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

// CanTransition checks if a status transition is valid.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitionSet[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Reservation struct {
	ID             types.ID
	CompanyID      types.ID
	UserID         types.ID
	ConversationID string
	ServiceKey     string
	Date           types.Date
	Time           string // local clock, HH:MM
	Guests         int
	Phone          string
	Name           string
	Address        string
	Items          []catalog.Item
	ResourceID     types.ID // optional
	ServiceFee     int64    // delivery fee, when applicable
	Total          int64
	Status         Status
	StatusVersion  int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
}

// ComputeTotal is Σ(item.qty × price) plus the service fee.
func (r *Reservation) ComputeTotal() int64 {
	var total int64
	for _, it := range r.Items {
		total += int64(it.Quantity) * it.UnitPrice
	}
	return total + r.ServiceFee
}

// HasReservedStock reports whether stock was deducted for this reservation.
// Stock is deducted on entry to confirmed, never earlier.
func (r *Reservation) HasReservedStock() bool {
	return r.Status == StatusConfirmed || r.Status == StatusCompleted
}
