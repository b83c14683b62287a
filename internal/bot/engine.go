// README: Bot engine orchestrator — normalize, extract, classify, dispatch, reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"resbot/internal/ai"
	"resbot/internal/breaker"
	"resbot/internal/config"
	"resbot/internal/dates"
	"resbot/internal/maps"
	"resbot/internal/metrics"
	"resbot/internal/modules/catalog"
	"resbot/internal/modules/conversation"
	"resbot/internal/modules/intent"
	"resbot/internal/modules/payment"
	"resbot/internal/modules/reservation"
	"resbot/internal/modules/users"
	"resbot/internal/nlp"
	"resbot/internal/templates"
	"resbot/internal/types"
)

// Request is one inbound message. Exactly one of UserID or Phone is set.
type Request struct {
	CompanyID types.ID
	UserID    types.ID
	Phone     string
	Message   string
}

// Response is the outbound reply plus classification detail.
type Response struct {
	Reply          string             `json:"reply"`
	Intention      string             `json:"intention"`
	Confidence     float64            `json:"confidence"`
	MissingFields  []string           `json:"missingFields"`
	State          conversation.State `json:"conversationState"`
	ConversationID string             `json:"conversationId"`
}

// Collaborator contracts, consumer-side.
type (
	CatalogService interface {
		Company(ctx context.Context, id types.ID) (*catalog.Company, error)
		Products(ctx context.Context, id types.ID) ([]catalog.Product, error)
		Resolve(ctx context.Context, id types.ID, serviceKey string) (*catalog.ServiceConfig, error)
		MatchProducts(ctx context.Context, id types.ID, text string) ([]catalog.Item, error)
		Resources(ctx context.Context, id types.ID, typ string) ([]catalog.Resource, error)
	}

	IntentCorpus interface {
		CorpusFor(ctx context.Context, companyID types.ID) (*intent.Corpus, error)
	}

	ContextStore interface {
		Get(ctx context.Context, companyID types.ID, phone string) (*conversation.Context, error)
		Put(ctx context.Context, c *conversation.Context) error
		Delete(ctx context.Context, companyID types.ID, phone string) error
	}

	UserDirectory interface {
		FindOrCreateByPhone(ctx context.Context, phone string) (*users.User, error)
		Get(ctx context.Context, id types.ID) (*users.User, error)
		GetPreference(ctx context.Context, userID, companyID types.ID) (*users.Preference, error)
	}

	ReservationFlow interface {
		Confirm(ctx context.Context, r *reservation.Reservation) error
		CreateAwaitingPayment(ctx context.Context, r *reservation.Reservation) error
		ConfirmPaid(ctx context.Context, id types.ID) error
		CancelPaymentFailed(ctx context.Context, id types.ID) error
		Cancel(ctx context.Context, id types.ID) error
		ListActive(ctx context.Context, companyID, userID types.ID) ([]*reservation.Reservation, error)
		Get(ctx context.Context, id types.ID) (*reservation.Reservation, error)
	}

	PaymentService interface {
		CreateCheckout(ctx context.Context, cmd payment.CreateCheckoutCommand) (*payment.Payment, error)
		ApplyWebhook(ctx context.Context, ev payment.WebhookEvent) (*payment.Payment, bool, error)
	}

	AddressResolver interface {
		Resolve(ctx context.Context, raw, region string) (*maps.Address, error)
	}
)

// Engine wires the full pipeline for a single inbound message.
type Engine struct {
	catalog    CatalogService
	intents    IntentCorpus
	detector   *intent.Detector
	matcher    *intent.Matcher
	llm        ai.Classifier // nil disables tier 3 (degraded mode)
	breaker    *breaker.Breaker
	llmSem     chan struct{}
	contexts   ContextStore
	mutex      *conversation.KeyedMutex
	users      UserDirectory
	flow       ReservationFlow
	payments   PaymentService
	renderer   *templates.Renderer
	normalizer *nlp.Normalizer
	extractor  *nlp.Extractor
	dates      *dates.Resolver
	metrics    *metrics.Registry
	geocoder   AddressResolver
	cfg        config.EngineConfig
	log        zerolog.Logger
}

type Deps struct {
	Catalog    CatalogService
	Intents    IntentCorpus
	LLM        ai.Classifier
	Breaker    *breaker.Breaker
	Contexts   ContextStore
	Users      UserDirectory
	Flow       ReservationFlow
	Payments   PaymentService
	Renderer   *templates.Renderer
	Normalizer *nlp.Normalizer
	Extractor  *nlp.Extractor
	Dates      *dates.Resolver
	Metrics    *metrics.Registry
	Geocoder   AddressResolver
	Engine     config.EngineConfig
	Log        zerolog.Logger
}

func NewEngine(d Deps) *Engine {
	sem := make(chan struct{}, max(1, d.Engine.MaxLLMInFlight))
	return &Engine{
		catalog:    d.Catalog,
		intents:    d.Intents,
		detector:   intent.NewDetector(),
		matcher:    intent.NewMatcher(),
		llm:        d.LLM,
		breaker:    d.Breaker,
		llmSem:     sem,
		contexts:   d.Contexts,
		mutex:      conversation.NewKeyedMutex(),
		users:      d.Users,
		flow:       d.Flow,
		payments:   d.Payments,
		renderer:   d.Renderer,
		normalizer: d.Normalizer,
		extractor:  d.Extractor,
		dates:      d.Dates,
		metrics:    d.Metrics,
		geocoder:   d.Geocoder,
		cfg:        d.Engine,
		log:        d.Log.With().Str("component", "bot").Logger(),
	}
}

// HandleMessage runs the full pipeline for one inbound message. Context-store
// writes happen only on success; errors leave the conversation untouched.
func (e *Engine) HandleMessage(ctx context.Context, req Request) (*Response, error) {
	e.metrics.Messages.Add(1)
	if e.cfg.MessageDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.MessageDeadline)
		defer cancel()
	}

	company, err := e.catalog.Company(ctx, req.CompanyID)
	if err != nil {
		return nil, e.systemError(err, "load company")
	}

	user, err := e.resolveUser(ctx, req)
	if err != nil {
		return nil, e.systemError(err, "resolve user")
	}

	release, err := e.mutex.Acquire(ctx, string(req.CompanyID)+":"+user.Phone)
	if errors.Is(err, conversation.ErrBusy) {
		reply, _ := e.render(company, "busy", nil, nil)
		return &Response{Reply: reply, Intention: intent.Otro, State: conversation.StateInitial}, nil
	}
	if err != nil {
		return nil, e.systemError(err, "acquire conversation")
	}
	defer release()

	convo, err := e.contexts.Get(ctx, req.CompanyID, user.Phone)
	if errors.Is(err, conversation.ErrNotFound) {
		convo = conversation.NewContext(req.CompanyID, user.Phone)
		convo.Collected.Phone = user.Phone
		convo.Collected.Name = user.Name
		err = nil
	}
	if err != nil {
		return nil, e.systemError(err, "load context")
	}
	if convo.State.Terminal() {
		// A terminal conversation starts over on the next message.
		convo.ResetFlow()
	}

	text, _ := e.normalizer.Normalize(req.Message)
	entities := e.extractor.Extract(text)

	res, llmExtract, err := e.classify(ctx, company, convo, text)
	if err != nil {
		return nil, e.systemError(err, "classify")
	}

	resp, err := e.dispatch(ctx, company, user, convo, text, entities, res, llmExtract)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, e.timeoutError(err)
		}
		return nil, e.systemError(err, "dispatch")
	}

	convo.Intent = res.Intent
	convo.PushTurn("user", req.Message)
	convo.PushTurn("bot", resp.Reply)
	convo.LastTurn = time.Now()
	if err := e.contexts.Put(ctx, convo); err != nil {
		return nil, e.systemError(err, "persist context")
	}

	resp.Intention = res.Intent
	resp.Confidence = res.Confidence
	resp.State = convo.State
	resp.ConversationID = convo.ConversationID
	return resp, nil
}

func (e *Engine) resolveUser(ctx context.Context, req Request) (*users.User, error) {
	if req.Phone != "" {
		return e.users.FindOrCreateByPhone(ctx, nlp.NormalizePhone(req.Phone))
	}
	if req.UserID != "" {
		return e.users.Get(ctx, req.UserID)
	}
	return nil, fmt.Errorf("request needs userId or phone")
}

func (e *Engine) dispatch(ctx context.Context, company *catalog.Company, user *users.User, convo *conversation.Context, text string, entities []nlp.Entity, res intent.Result, llmExtract *ai.ExtractedData) (*Response, error) {
	// A pending cancel selection takes the turn regardless of classification.
	if len(convo.CancelOptions) > 0 {
		return e.continueCancel(ctx, company, convo, text)
	}
	if convo.State == conversation.StateAwaitingPayment && res.Intent != intent.Cancelar {
		reply, err := e.render(company, "awaiting_payment_reminder", map[string]any{
			"payment_url": convo.PaymentURL,
		}, convo)
		return &Response{Reply: reply}, err
	}

	switch res.Intent {
	case intent.Saludar:
		return e.handleGreeting(ctx, company, user, convo)
	case intent.Despedida:
		return e.handleFarewell(company, convo)
	case intent.Consultar:
		return e.handleConsult(ctx, company, convo, text)
	case intent.Cancelar:
		return e.startCancel(ctx, company, user, convo)
	case intent.Reservar:
		return e.handleReserve(ctx, company, user, convo, text, entities, llmExtract)
	default:
		if convo.State == conversation.StateCollecting {
			// Mid-flow messages keep feeding the collector even when the
			// classifier shrugs.
			return e.handleReserve(ctx, company, user, convo, text, entities, llmExtract)
		}
		reply, err := e.render(company, "not_understood", nil, convo)
		return &Response{Reply: reply}, err
	}
}

func (e *Engine) render(company *catalog.Company, key string, vars map[string]any, convo *conversation.Context) (string, error) {
	overrides := company.Config.Terminology
	if convo != nil && convo.ServiceKey != "" {
		if overrides == nil {
			overrides = map[string]string{}
		} else {
			merged := make(map[string]string, len(overrides)+1)
			for k, v := range overrides {
				merged[k] = v
			}
			overrides = merged
		}
		if _, ok := overrides["reservation"]; !ok {
			overrides["reservation"] = catalog.ReservationNoun(convo.ServiceKey)
		}
	}
	if vars == nil {
		vars = map[string]any{}
	}
	if _, ok := vars["company"]; !ok {
		vars["company"] = company.Name
	}
	return e.renderer.RenderWith(company.Type, key, vars, overrides)
}

func (e *Engine) systemError(err error, stage string) error {
	e.metrics.Errors.Add(1)
	e.log.Error().Err(err).Str("stage", stage).Msg("message failed")
	return fmt.Errorf("%s: %w", stage, err)
}

func (e *Engine) timeoutError(err error) error {
	e.metrics.Errors.Add(1)
	e.log.Warn().Err(err).Msg("message deadline exceeded")
	return err
}

// ErrorReply renders the generic error template for transport-level recovery.
func (e *Engine) ErrorReply(ctx context.Context, companyID types.ID) string {
	company, err := e.catalog.Company(ctx, companyID)
	if err != nil {
		return "Lo sentimos, tuvimos un problema procesando tu solicitud."
	}
	reply, err := e.render(company, "error_generic", nil, nil)
	if err != nil {
		return "Lo sentimos, tuvimos un problema procesando tu solicitud."
	}
	return reply
}

// ProcessPaymentEvent applies a provider webhook: APPROVED confirms the
// reservation and reserves stock; DECLINED, VOIDED, and EXPIRED cancel it.
// Redeliveries are no-ops.
func (e *Engine) ProcessPaymentEvent(ctx context.Context, ev payment.WebhookEvent) error {
	p, changed, err := e.payments.ApplyWebhook(ctx, ev)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	var state conversation.State
	switch p.Status {
	case payment.StatusApproved:
		if err := e.flow.ConfirmPaid(ctx, p.ReservationID); err != nil {
			return fmt.Errorf("confirm paid reservation %s: %w", p.ReservationID, err)
		}
		state = conversation.StateConfirmed
	default:
		if err := e.flow.CancelPaymentFailed(ctx, p.ReservationID); err != nil {
			return fmt.Errorf("cancel unpaid reservation %s: %w", p.ReservationID, err)
		}
		state = conversation.StateCancelled
	}

	r, err := e.flow.Get(ctx, p.ReservationID)
	if err != nil {
		return err
	}
	user, err := e.users.Get(ctx, r.UserID)
	if err != nil {
		return err
	}
	convo, err := e.contexts.Get(ctx, p.CompanyID, user.Phone)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil // conversation already expired; the reservation is source of truth
		}
		return err
	}
	if convo.ConversationID != p.ConversationID {
		return nil
	}
	convo.State = state
	convo.LastTurn = time.Now()
	e.log.Info().
		Str("reference", ev.Reference).
		Str("reservation_id", string(p.ReservationID)).
		Str("state", string(state)).
		Msg("payment webhook applied")
	return e.contexts.Put(ctx, convo)
}
