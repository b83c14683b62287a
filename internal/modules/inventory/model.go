// README: Stock movements and inventory errors.
package inventory

import (
	"errors"
	"time"

	"resbot/internal/types"
)

type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

var (
	// ErrConflict is a failed row lock (FOR UPDATE NOWAIT) — another
	// transaction holds the product row; fail fast.
	ErrConflict = errors.New("stock row locked")
	// ErrInsufficientStock is stock < requested at lock time.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNegativeStock guards administrative adjustments.
	ErrNegativeStock = errors.New("stock would go negative")
)

// Movement is an append-only audit row for a stock change. Quantity is
// signed: negative for "out", positive for "in".
type Movement struct {
	ID            types.ID
	ProductID     types.ID
	Type          MovementType
	Quantity      int
	PreviousStock int
	NewStock      int
	Reason        string
	CorrelationID string // reservation id or admin action
	UserID        types.ID
	CreatedAt     time.Time
}

// StockStatus is the non-locking read result.
type StockStatus struct {
	Available    bool
	CurrentStock int
	HasStock     bool // whether the product tracks stock at all
}

// LowStockEvent fires after a reserve commit leaves a product at or below its
// minimum.
type LowStockEvent struct {
	ProductID types.ID
	Name      string
	Stock     int
	MinStock  int
}
