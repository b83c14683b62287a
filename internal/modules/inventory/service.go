// README: Inventory service — check/reserve/release/adjust with low-stock events.
package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

// LowStockFunc receives events after a reserve transaction commits.
type LowStockFunc func(LowStockEvent)

type Service struct {
	store      *Store
	log        zerolog.Logger
	onLowStock LowStockFunc
}

func NewService(store *Store, log zerolog.Logger, onLowStock LowStockFunc) *Service {
	return &Service{store: store, log: log.With().Str("component", "inventory").Logger(), onLowStock: onLowStock}
}

// CheckStock is the non-locking availability read.
func (s *Service) CheckStock(ctx context.Context, productID types.ID, qty int) (*StockStatus, error) {
	return s.store.ReadStock(ctx, productID, qty)
}

// ReserveTx deducts every item inside the caller's transaction. Items whose
// product does not track stock are skipped silently. Returned events must be
// emitted by the caller only after its transaction commits.
func (s *Service) ReserveTx(ctx context.Context, tx pgx.Tx, items []catalog.Item, correlationID string, userID types.ID) ([]LowStockEvent, error) {
	var events []LowStockEvent
	for _, it := range items {
		ev, err := s.store.DeductTx(ctx, tx, it.ProductID, it.Quantity, "reservation", correlationID, userID)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

// ReserveStock runs ReserveTx in its own transaction and emits events after
// commit.
func (s *Service) ReserveStock(ctx context.Context, items []catalog.Item, correlationID string, userID types.ID) error {
	var events []LowStockEvent
	err := pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		var err error
		events, err = s.ReserveTx(ctx, tx, items, correlationID, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.EmitLowStock(events)
	return nil
}

// EmitLowStock publishes post-commit events to the configured listener.
func (s *Service) EmitLowStock(events []LowStockEvent) {
	for _, ev := range events {
		s.log.Warn().
			Str("product_id", string(ev.ProductID)).
			Str("product", ev.Name).
			Int("stock", ev.Stock).
			Int("min_stock", ev.MinStock).
			Msg("low stock")
		if s.onLowStock != nil {
			s.onLowStock(ev)
		}
	}
}

// RestoreItemTx returns one item to stock inside the caller's transaction.
func (s *Service) RestoreItemTx(ctx context.Context, tx pgx.Tx, it catalog.Item, reason, correlationID string, userID types.ID) error {
	return s.store.RestoreTx(ctx, tx, it.ProductID, it.Quantity, reason, correlationID, userID)
}

// ReleaseStock returns items to stock. Releases commute, so each item commits
// in its own transaction; a partial failure can be retried safely.
func (s *Service) ReleaseStock(ctx context.Context, items []catalog.Item, reason, correlationID string) error {
	for _, it := range items {
		err := pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
			return s.store.RestoreTx(ctx, tx, it.ProductID, it.Quantity, reason, correlationID, "")
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AdjustStock applies an administrative delta, never below zero.
func (s *Service) AdjustStock(ctx context.Context, productID types.ID, delta int, reason string) error {
	return pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		return s.store.AdjustTx(ctx, tx, productID, delta, reason)
	})
}

// Movements exposes the audit trail for one correlation id.
func (s *Service) Movements(ctx context.Context, correlationID string) ([]Movement, error) {
	return s.store.ListMovements(ctx, correlationID)
}
