// README: Payment rows and provider contract types.
package payment

import (
	"encoding/json"
	"errors"
	"time"

	"resbot/internal/types"
)

type Status string

// Wire-stable payment statuses (provider contract).
const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
	StatusVoided   Status = "VOIDED"
	StatusExpired  Status = "EXPIRED"
)

// Terminal reports whether the provider can no longer change this status.
func (s Status) Terminal() bool {
	return s != StatusPending
}

var (
	ErrNotFound = errors.New("payment not found")
	// ErrUnavailable wraps provider transport failures.
	ErrUnavailable = errors.New("payment provider unavailable")
)

type Payment struct {
	ID             types.ID
	CompanyID      types.ID
	ConversationID string
	ReservationID  types.ID
	Amount         int64 // minor units
	Status         Status
	CheckoutURL    string
	Reference      string
	RawEvent       json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CheckoutRequest is the provider-facing create-payment contract.
type CheckoutRequest struct {
	CompanyID      string `json:"companyId"`
	ConversationID string `json:"conversationId"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
	CustomerEmail  string `json:"customerEmail,omitempty"`
	CustomerName   string `json:"customerName,omitempty"`
	Reference      string `json:"reference"`
}

// Checkout is the provider's create-payment response.
type Checkout struct {
	PaymentID  string `json:"paymentId"`
	PaymentURL string `json:"paymentUrl"`
	Status     Status `json:"status"`
	Reference  string `json:"reference"`
}

// WebhookEvent is the provider's inbound notification, idempotent per
// reference.
type WebhookEvent struct {
	Reference string          `json:"reference"`
	Status    Status          `json:"status"`
	RawEvent  json.RawMessage `json:"rawEvent,omitempty"`
}
