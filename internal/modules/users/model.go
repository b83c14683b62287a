// README: Users keyed by phone, plus per-tenant learned preferences.
package users

import (
	"errors"
	"time"

	"resbot/internal/types"
)

var ErrNotFound = errors.New("user not found")

// User is identified by an E.164-ish phone as natural key.
type User struct {
	ID        types.ID
	Phone     string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Preference is the learned profile for one (user, company) pair. It is only
// updated inside the reservation confirm transaction.
type Preference struct {
	UserID           types.ID
	CompanyID        types.ID
	PreferredTime    string // HH:MM
	PreferredDay     string // weekday name
	PreferredService string
	DefaultGuests    int
	FavoriteProducts []string
	ReservationCount int
	LastReservedAt   *time.Time
}
