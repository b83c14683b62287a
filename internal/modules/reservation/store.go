// README: Reservation store backed by PostgreSQL.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"resbot/internal/types"
)

var ErrNotFound = errors.New("reservation not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

// CreateTx inserts the reservation inside the caller's transaction.
func (s *Store) CreateTx(ctx context.Context, tx pgx.Tx, r *Reservation) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = tx.Exec(ctx, `
        INSERT INTO reservations (
            id, company_id, user_id, conversation_id, service_key,
            date, time, guests, phone, name, address, items, resource_id,
            service_fee, total, status, status_version, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''),
            $14, $15, $16, 0, NOW(), NOW()
        )`,
		string(r.ID), string(r.CompanyID), string(r.UserID), r.ConversationID, r.ServiceKey,
		r.Date.String(), r.Time, r.Guests, r.Phone, r.Name, r.Address, items, string(r.ResourceID),
		r.ServiceFee, r.Total, string(r.Status),
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, company_id, user_id, conversation_id, service_key,
               date, time, guests, phone, name, address, items, COALESCE(resource_id, ''),
               service_fee, total, status, status_version, created_at, updated_at, cancelled_at
        FROM reservations
        WHERE id = $1`, string(id),
	)
	return scanReservation(row)
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var dateStr string
	var items []byte
	var cancelledAt *time.Time
	err := row.Scan(&r.ID, &r.CompanyID, &r.UserID, &r.ConversationID, &r.ServiceKey,
		&dateStr, &r.Time, &r.Guests, &r.Phone, &r.Name, &r.Address, &items, &r.ResourceID,
		&r.ServiceFee, &r.Total, &r.Status, &r.StatusVersion, &r.CreatedAt, &r.UpdatedAt, &cancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.Date, err = types.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("reservation %s date: %w", r.ID, err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &r.Items); err != nil {
			return nil, fmt.Errorf("reservation %s items: %w", r.ID, err)
		}
	}
	r.CancelledAt = cancelledAt
	return &r, nil
}

// ListActiveByUser returns the user's non-terminal reservations for a tenant,
// oldest first.
func (s *Store) ListActiveByUser(ctx context.Context, companyID, userID types.ID) ([]*Reservation, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, company_id, user_id, conversation_id, service_key,
               date, time, guests, phone, name, address, items, COALESCE(resource_id, ''),
               service_fee, total, status, status_version, created_at, updated_at, cancelled_at
        FROM reservations
        WHERE company_id = $1 AND user_id = $2 AND status IN ('pending', 'awaiting_payment', 'confirmed')
        ORDER BY created_at`, string(companyID), string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStatusTx performs the optimistic status transition inside the
// caller's transaction; false means another writer got there first.
func (s *Store) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE reservations
        SET status = $1,
            status_version = status_version + 1,
            updated_at = NOW(),
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
