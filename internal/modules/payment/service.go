// README: Payment service — checkout creation and idempotent webhook handling.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

type Service struct {
	store    *Store
	provider Provider
	log      zerolog.Logger
}

func NewService(store *Store, provider Provider, log zerolog.Logger) *Service {
	return &Service{store: store, provider: provider, log: log.With().Str("component", "payment").Logger()}
}

// CreateCheckoutCommand describes one checkout to open.
type CreateCheckoutCommand struct {
	Company        *catalog.Company
	ConversationID string
	ReservationID  types.ID
	Amount         int64 // minor units
	Description    string
	CustomerName   string
	CustomerEmail  string
}

// CreateCheckout opens a checkout with the provider and persists the PENDING
// payment with its correlation.
func (s *Service) CreateCheckout(ctx context.Context, cmd CreateCheckoutCommand) (*Payment, error) {
	reference := uuid.NewString()
	checkout, err := s.provider.CreateCheckout(ctx, cmd.Company.ProviderPrivateKey, CheckoutRequest{
		CompanyID:      string(cmd.Company.ID),
		ConversationID: cmd.ConversationID,
		Amount:         cmd.Amount,
		Description:    cmd.Description,
		CustomerEmail:  cmd.CustomerEmail,
		CustomerName:   cmd.CustomerName,
		Reference:      reference,
	})
	if err != nil {
		return nil, err
	}
	if checkout.Reference != "" {
		reference = checkout.Reference
	}

	p := &Payment{
		ID:             types.ID(uuid.NewString()),
		CompanyID:      cmd.Company.ID,
		ConversationID: cmd.ConversationID,
		ReservationID:  cmd.ReservationID,
		Amount:         cmd.Amount,
		Status:         StatusPending,
		CheckoutURL:    checkout.PaymentURL,
		Reference:      reference,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("reference", reference).Int64("amount", cmd.Amount).Msg("checkout created")
	return p, nil
}

// ApplyWebhook records a provider notification. Redeliveries are no-ops:
// the returned bool reports whether this event changed the payment.
func (s *Service) ApplyWebhook(ctx context.Context, ev WebhookEvent) (*Payment, bool, error) {
	if !ev.Status.Terminal() {
		return nil, false, fmt.Errorf("webhook with non-terminal status %q", ev.Status)
	}
	p, err := s.store.GetByReference(ctx, ev.Reference)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.store.MarkStatus(ctx, ev.Reference, ev.Status, ev.RawEvent)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		s.log.Debug().Str("reference", ev.Reference).Msg("webhook redelivery ignored")
		return p, false, nil
	}
	p.Status = ev.Status
	p.RawEvent = ev.RawEvent
	return p, true, nil
}
