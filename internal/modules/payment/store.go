// README: Payment store backed by PostgreSQL.
package payment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO payments (
            id, company_id, conversation_id, reservation_id, amount,
            status, checkout_url, reference, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		string(p.ID), string(p.CompanyID), p.ConversationID, string(p.ReservationID),
		p.Amount, string(p.Status), p.CheckoutURL, p.Reference,
	)
	return err
}

func (s *Store) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, company_id, conversation_id, reservation_id, amount,
               status, checkout_url, reference, COALESCE(raw_event, 'null'), created_at, updated_at
        FROM payments
        WHERE reference = $1`, reference,
	)
	var p Payment
	err := row.Scan(&p.ID, &p.CompanyID, &p.ConversationID, &p.ReservationID, &p.Amount,
		&p.Status, &p.CheckoutURL, &p.Reference, &p.RawEvent, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkStatus flips a pending payment to its terminal status. The WHERE guard
// makes webhook redelivery a no-op; false means nothing changed.
func (s *Store) MarkStatus(ctx context.Context, reference string, status Status, rawEvent []byte) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE payments
        SET status = $1, raw_event = $2, updated_at = NOW()
        WHERE reference = $3 AND status = 'PENDING'`,
		string(status), rawEvent, reference,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
