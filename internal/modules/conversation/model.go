// README: Conversation state machine values and per-user short-term context.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"resbot/internal/modules/catalog"
	"resbot/internal/types"
)

type State string

// Wire-stable conversation states.
const (
	StateInitial         State = "initial"
	StateCollecting      State = "collecting"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirmed       State = "confirmed"
	StateCancelled       State = "cancelled"
	StateAbandoned       State = "abandoned"
)

// Turn is one prior message kept for LLM context.
type Turn struct {
	Role string `json:"role"` // "user" or "bot"
	Text string `json:"text"`
}

// maxTurns bounds the recent-messages window.
const maxTurns = 5

// Context is the short-TTL per-(tenant,user) conversation state.
type Context struct {
	ConversationID string   `json:"conversationId"`
	CompanyID      types.ID `json:"companyId"`
	Phone          string   `json:"phone"`
	State          State    `json:"state"`
	Intent         string   `json:"intent,omitempty"`
	ServiceKey     string   `json:"serviceKey,omitempty"`

	Collected catalog.Collected `json:"collected"`

	DraftReservationID string `json:"draftReservationId,omitempty"`
	PaymentRef         string `json:"paymentRef,omitempty"`
	PaymentURL         string `json:"paymentUrl,omitempty"`

	// PendingField is the missing field the bot asked for last turn; a bare
	// answer (an address, a name) is bound to it.
	PendingField string `json:"pendingField,omitempty"`

	// Cancel-flow bookkeeping: listed reservation ids and the pending pick.
	CancelOptions []string `json:"cancelOptions,omitempty"`
	CancelPick    int      `json:"cancelPick,omitempty"` // 1-based; 0 = none

	Turns    []Turn    `json:"turns,omitempty"`
	Retries  int       `json:"retries,omitempty"`
	LastTurn time.Time `json:"lastTurn"`
}

// NewContext starts an empty conversation for (company, phone).
func NewContext(companyID types.ID, phone string) *Context {
	return &Context{
		ConversationID: uuid.NewString(),
		CompanyID:      companyID,
		Phone:          phone,
		State:          StateInitial,
	}
}

// PushTurn appends a message to the recent window, trimming to the cap.
func (c *Context) PushTurn(role, text string) {
	c.Turns = append(c.Turns, Turn{Role: role, Text: text})
	if len(c.Turns) > maxTurns {
		c.Turns = c.Turns[len(c.Turns)-maxTurns:]
	}
}

// ResetFlow clears flow state after a terminal transition, keeping identity
// and history so the next message starts clean.
func (c *Context) ResetFlow() {
	c.State = StateInitial
	c.Intent = ""
	c.ServiceKey = ""
	c.Collected = catalog.Collected{Phone: c.Collected.Phone, Name: c.Collected.Name}
	c.DraftReservationID = ""
	c.PaymentRef = ""
	c.PaymentURL = ""
	c.PendingField = ""
	c.CancelOptions = nil
	c.CancelPick = 0
	c.Retries = 0
}

// Terminal reports whether the conversation reached a terminal state.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateAbandoned || s == StateConfirmed
}
