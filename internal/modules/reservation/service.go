// README: Reservation flow — transactional confirm, payment handoff, cancellation.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"resbot/internal/dates"
	"resbot/internal/modules/inventory"
	"resbot/internal/modules/users"
	"resbot/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid reservation state transition")
	ErrConflict     = errors.New("reservation state conflict")
)

type Service struct {
	store     *Store
	inventory *inventory.Service
	users     *users.Store
	log       zerolog.Logger
}

func NewService(store *Store, inv *inventory.Service, usr *users.Store, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		inventory: inv,
		users:     usr,
		log:       log.With().Str("component", "reservation").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context, companyID, userID types.ID) ([]*Reservation, error) {
	return s.store.ListActiveByUser(ctx, companyID, userID)
}

// Confirm persists a draft as confirmed in a single transactional unit:
// reservation insert, stock deduction per item, and preference counters. Any
// failure rolls the whole unit back.
func (s *Service) Confirm(ctx context.Context, r *Reservation) error {
	s.prepare(r, StatusConfirmed)

	var events []inventory.LowStockEvent
	err := pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		if err := s.store.CreateTx(ctx, tx, r); err != nil {
			return err
		}
		var err error
		events, err = s.inventory.ReserveTx(ctx, tx, r.Items, string(r.ID), r.UserID)
		if err != nil {
			return err
		}
		return s.users.BumpPreferenceTx(ctx, tx, s.preference(r))
	})
	if err != nil {
		return err
	}
	s.inventory.EmitLowStock(events)
	s.log.Info().Str("reservation_id", string(r.ID)).Str("service", r.ServiceKey).Msg("reservation confirmed")
	return nil
}

// CreateAwaitingPayment persists a draft that still needs a checkout. Stock
// is not touched until the payment is approved.
func (s *Service) CreateAwaitingPayment(ctx context.Context, r *Reservation) error {
	s.prepare(r, StatusAwaitingPayment)
	return pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		return s.store.CreateTx(ctx, tx, r)
	})
}

func (s *Service) prepare(r *Reservation, status Status) {
	if r.ID == "" {
		r.ID = types.ID(uuid.NewString())
	}
	r.Status = status
	r.Total = r.ComputeTotal()
}

// ConfirmPaid advances awaiting_payment to confirmed, reserving stock and
// bumping preferences in the same transaction as the status flip.
func (s *Service) ConfirmPaid(ctx context.Context, id types.ID) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, StatusConfirmed) {
		return fmt.Errorf("%s -> confirmed: %w", r.Status, ErrInvalidState)
	}

	var events []inventory.LowStockEvent
	err = pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		ok, err := s.store.UpdateStatusTx(ctx, tx, id, r.Status, StatusConfirmed, r.StatusVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		events, err = s.inventory.ReserveTx(ctx, tx, r.Items, string(r.ID), r.UserID)
		if err != nil {
			return err
		}
		return s.users.BumpPreferenceTx(ctx, tx, s.preference(r))
	})
	if err != nil {
		return err
	}
	s.inventory.EmitLowStock(events)
	return nil
}

// CancelPaymentFailed cancels an awaiting_payment reservation after a
// declined, voided, or expired payment. No stock was reserved yet.
func (s *Service) CancelPaymentFailed(ctx context.Context, id types.ID) error {
	return s.cancel(ctx, id, false)
}

// Cancel cancels a reservation from any non-terminal status, releasing
// reserved stock when the reservation had been confirmed.
func (s *Service) Cancel(ctx context.Context, id types.ID) error {
	return s.cancel(ctx, id, true)
}

func (s *Service) cancel(ctx context.Context, id types.ID, releaseStock bool) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, StatusCancelled) {
		return fmt.Errorf("%s -> cancelled: %w", r.Status, ErrInvalidState)
	}
	release := releaseStock && r.HasReservedStock()

	err = pgx.BeginFunc(ctx, s.store.Pool(), func(tx pgx.Tx) error {
		ok, err := s.store.UpdateStatusTx(ctx, tx, id, r.Status, StatusCancelled, r.StatusVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		if !release {
			return nil
		}
		for _, it := range r.Items {
			if err := s.inventory.RestoreItemTx(ctx, tx, it, "cancellation", string(r.ID), r.UserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("reservation_id", string(id)).Bool("stock_released", release).Msg("reservation cancelled")
	return nil
}

func (s *Service) preference(r *Reservation) users.Preference {
	fav := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		fav = append(fav, string(it.ProductID))
	}
	return users.Preference{
		UserID:           r.UserID,
		CompanyID:        r.CompanyID,
		PreferredTime:    r.Time,
		PreferredDay:     dates.WeekdayName(r.Date.Weekday()),
		PreferredService: r.ServiceKey,
		DefaultGuests:    r.Guests,
		FavoriteProducts: fav,
	}
}
