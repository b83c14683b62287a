// README: User store backed by PostgreSQL.
package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"resbot/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindOrCreateByPhone resolves the user for a phone, inserting a fresh row on
// first contact. Concurrent first messages race safely on the phone unique
// constraint.
func (s *Store) FindOrCreateByPhone(ctx context.Context, phone string) (*User, error) {
	u, err := s.getByPhone(ctx, phone)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id := types.ID(uuid.NewString())
	_, err = s.db.Exec(ctx, `
        INSERT INTO users (id, phone)
        VALUES ($1, $2)
        ON CONFLICT (phone) DO NOTHING`, string(id), phone,
	)
	if err != nil {
		return nil, err
	}
	return s.getByPhone(ctx, phone)
}

func (s *Store) getByPhone(ctx context.Context, phone string) (*User, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, phone, COALESCE(name, ''), COALESCE(email, ''), created_at
        FROM users
        WHERE phone = $1`, phone,
	)
	return scanUser(row)
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, phone, COALESCE(name, ''), COALESCE(email, ''), created_at
        FROM users
        WHERE id = $1`, string(id),
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateName fills in the user's name once it is learned in conversation.
func (s *Store) UpdateName(ctx context.Context, id types.ID, name string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET name = $1 WHERE id = $2 AND (name IS NULL OR name = '')`,
		name, string(id))
	return err
}

func (s *Store) GetPreference(ctx context.Context, userID, companyID types.ID) (*Preference, error) {
	row := s.db.QueryRow(ctx, `
        SELECT user_id, company_id, COALESCE(preferred_time, ''), COALESCE(preferred_day, ''),
               COALESCE(preferred_service, ''), COALESCE(default_guests, 0),
               COALESCE(favorite_products, '{}'), reservation_count, last_reserved_at
        FROM user_preferences
        WHERE user_id = $1 AND company_id = $2`, string(userID), string(companyID),
	)
	var p Preference
	err := row.Scan(&p.UserID, &p.CompanyID, &p.PreferredTime, &p.PreferredDay,
		&p.PreferredService, &p.DefaultGuests, &p.FavoriteProducts, &p.ReservationCount, &p.LastReservedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// BumpPreferenceTx upserts the learned profile inside the caller's
// transaction, recording the latest confirmed choices and counters.
func (s *Store) BumpPreferenceTx(ctx context.Context, tx pgx.Tx, p Preference) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO user_preferences (
            user_id, company_id, preferred_time, preferred_day, preferred_service,
            default_guests, favorite_products, reservation_count, last_reserved_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, NOW())
        ON CONFLICT (user_id, company_id) DO UPDATE SET
            preferred_time = EXCLUDED.preferred_time,
            preferred_day = EXCLUDED.preferred_day,
            preferred_service = EXCLUDED.preferred_service,
            default_guests = EXCLUDED.default_guests,
            favorite_products = EXCLUDED.favorite_products,
            reservation_count = user_preferences.reservation_count + 1,
            last_reserved_at = NOW()`,
		string(p.UserID), string(p.CompanyID), p.PreferredTime, p.PreferredDay,
		p.PreferredService, p.DefaultGuests, p.FavoriteProducts,
	)
	return err
}
