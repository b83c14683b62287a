// README: Inventory store — row-locked stock mutations and movement audit rows.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"resbot/internal/types"
)

// pgLockNotAvailable is the SQLSTATE raised by FOR UPDATE NOWAIT on contention.
const pgLockNotAvailable = "55P03"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

// ReadStock is the non-locking stock read.
func (s *Store) ReadStock(ctx context.Context, productID types.ID, qty int) (*StockStatus, error) {
	row := s.db.QueryRow(ctx, `
        SELECT track_stock, stock, active
        FROM products
        WHERE id = $1`, string(productID),
	)
	var trackStock, active bool
	var stock int
	if err := row.Scan(&trackStock, &stock, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: not found", productID)
		}
		return nil, err
	}
	st := &StockStatus{CurrentStock: stock, HasStock: trackStock}
	st.Available = active && (!trackStock || stock >= qty)
	return st, nil
}

// lockRow acquires the row-level exclusive lock, failing fast on contention.
func (s *Store) lockRow(ctx context.Context, tx pgx.Tx, productID types.ID) (name string, trackStock bool, stock, minStock int, err error) {
	row := tx.QueryRow(ctx, `
        SELECT name, track_stock, stock, min_stock
        FROM products
        WHERE id = $1
        FOR UPDATE NOWAIT`, string(productID),
	)
	err = row.Scan(&name, &trackStock, &stock, &minStock)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		err = fmt.Errorf("product %s: %w", productID, ErrConflict)
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("product %s: not found", productID)
	}
	return
}

// DeductTx locks the product row and deducts qty, appending the movement.
// Products that do not track stock are skipped silently. Returns a low-stock
// event when the new stock is at or below the minimum.
func (s *Store) DeductTx(ctx context.Context, tx pgx.Tx, productID types.ID, qty int, reason, correlationID string, userID types.ID) (*LowStockEvent, error) {
	name, trackStock, stock, minStock, err := s.lockRow(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if !trackStock {
		return nil, nil
	}
	if stock < qty {
		return nil, fmt.Errorf("product %s: have %d want %d: %w", productID, stock, qty, ErrInsufficientStock)
	}

	newStock := stock - qty
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, newStock, string(productID)); err != nil {
		return nil, err
	}
	if err := s.appendMovementTx(ctx, tx, Movement{
		ProductID:     productID,
		Type:          MovementOut,
		Quantity:      -qty,
		PreviousStock: stock,
		NewStock:      newStock,
		Reason:        reason,
		CorrelationID: correlationID,
		UserID:        userID,
	}); err != nil {
		return nil, err
	}

	if newStock <= minStock {
		return &LowStockEvent{ProductID: productID, Name: name, Stock: newStock, MinStock: minStock}, nil
	}
	return nil, nil
}

// RestoreTx locks the product row and returns qty to stock.
func (s *Store) RestoreTx(ctx context.Context, tx pgx.Tx, productID types.ID, qty int, reason, correlationID string, userID types.ID) error {
	_, trackStock, stock, _, err := s.lockRow(ctx, tx, productID)
	if err != nil {
		return err
	}
	if !trackStock {
		return nil
	}
	newStock := stock + qty
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, newStock, string(productID)); err != nil {
		return err
	}
	return s.appendMovementTx(ctx, tx, Movement{
		ProductID:     productID,
		Type:          MovementIn,
		Quantity:      qty,
		PreviousStock: stock,
		NewStock:      newStock,
		Reason:        reason,
		CorrelationID: correlationID,
		UserID:        userID,
	})
}

// AdjustTx applies an administrative delta, rejecting negative results.
func (s *Store) AdjustTx(ctx context.Context, tx pgx.Tx, productID types.ID, delta int, reason string) error {
	_, trackStock, stock, _, err := s.lockRow(ctx, tx, productID)
	if err != nil {
		return err
	}
	if !trackStock {
		return nil
	}
	newStock := stock + delta
	if newStock < 0 {
		return fmt.Errorf("product %s: %d%+d: %w", productID, stock, delta, ErrNegativeStock)
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, newStock, string(productID)); err != nil {
		return err
	}
	typ := MovementIn
	if delta < 0 {
		typ = MovementOut
	}
	return s.appendMovementTx(ctx, tx, Movement{
		ProductID:     productID,
		Type:          typ,
		Quantity:      delta,
		PreviousStock: stock,
		NewStock:      newStock,
		Reason:        reason,
		CorrelationID: "admin",
	})
}

func (s *Store) appendMovementTx(ctx context.Context, tx pgx.Tx, m Movement) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO stock_movements (
            id, product_id, type, quantity, previous_stock, new_stock,
            reason, correlation_id, user_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NOW())`,
		uuid.NewString(), string(m.ProductID), string(m.Type), m.Quantity,
		m.PreviousStock, m.NewStock, m.Reason, m.CorrelationID, string(m.UserID),
	)
	return err
}

// ListMovements returns the audit trail for a correlation id, oldest first.
func (s *Store) ListMovements(ctx context.Context, correlationID string) ([]Movement, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, product_id, type, quantity, previous_stock, new_stock,
               reason, correlation_id, COALESCE(user_id, ''), created_at
        FROM stock_movements
        WHERE correlation_id = $1
        ORDER BY created_at`, correlationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PreviousStock,
			&m.NewStock, &m.Reason, &m.CorrelationID, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
