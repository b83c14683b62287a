// README: Reserve handler — merges fields, validates, confirms or requests payment.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"resbot/internal/ai"
	"resbot/internal/modules/catalog"
	"resbot/internal/modules/conversation"
	"resbot/internal/modules/intent"
	"resbot/internal/modules/inventory"
	"resbot/internal/modules/payment"
	"resbot/internal/modules/reservation"
	"resbot/internal/modules/users"
	"resbot/internal/nlp"
	"resbot/internal/types"
)

func (e *Engine) handleReserve(ctx context.Context, company *catalog.Company, user *users.User, convo *conversation.Context, text string, entities []nlp.Entity, llmExtract *ai.ExtractedData) (*Response, error) {
	if resp, done, err := e.mergeEntities(company, convo, entities); done || err != nil {
		return resp, err
	}
	e.mergeLLMExtract(ctx, company, convo, llmExtract)

	if convo.ServiceKey == "" {
		if corpus, err := e.intents.CorpusFor(ctx, company.ID); err == nil {
			if key, _ := intent.DetectService(text, corpus.ServiceKeywords); key != "" {
				convo.ServiceKey = key
			}
		}
	}

	cfg, err := e.catalog.Resolve(ctx, company.ID, convo.ServiceKey)
	if errors.Is(err, catalog.ErrServiceUnknown) {
		return e.askForService(ctx, company, convo)
	}
	if err != nil {
		return nil, err
	}
	convo.ServiceKey = cfg.Variant.Meta.ServiceKey
	convo.Collected.ServiceKey = convo.ServiceKey

	if cfg.Validator.RequiresProducts {
		items, err := e.catalog.MatchProducts(ctx, company.ID, text)
		if err != nil {
			return nil, err
		}
		mergeItems(&convo.Collected, items)
	}
	if err := e.bindPendingField(ctx, convo, text, entities); err != nil {
		reply, rerr := e.render(company, "validation_invalid", map[string]any{
			"label": cfg.MissingFieldLabels[convo.PendingField],
		}, convo)
		if rerr != nil {
			return nil, rerr
		}
		convo.State = conversation.StateCollecting
		return &Response{Reply: reply}, nil
	}

	missing := catalog.MissingFields(convo.Collected, cfg.Validator)
	if len(missing) > 0 {
		return e.askForMissing(company, convo, cfg, missing)
	}

	if resp, err := e.checkAdvance(company, convo, cfg); resp != nil || err != nil {
		return resp, err
	}
	if resp, err := e.checkCapacity(ctx, company, convo, cfg); resp != nil || err != nil {
		return resp, err
	}

	draft := e.buildDraft(company, user, convo, cfg)
	if cfg.Validator.RequiresPayment {
		return e.requestPayment(ctx, company, user, convo, cfg, draft)
	}
	return e.confirmDraft(ctx, company, convo, cfg, draft)
}

// mergeEntities folds deterministic extractions into the collected fields.
// The latest mention wins, so users can correct themselves.
func (e *Engine) mergeEntities(company *catalog.Company, convo *conversation.Context, entities []nlp.Entity) (*Response, bool, error) {
	for _, ent := range entities {
		switch ent.Type {
		case nlp.EntityDate:
			d, err := types.ParseDate(ent.Value)
			if err != nil {
				continue
			}
			if d.Before(e.dates.Today()) {
				reply, rerr := e.render(company, "validation_past_date", nil, convo)
				if rerr != nil {
					return nil, false, rerr
				}
				convo.State = conversation.StateCollecting
				return &Response{Reply: reply}, true, nil
			}
			convo.Collected.Date = d
		case nlp.EntityTime:
			convo.Collected.Time = ent.Value
		case nlp.EntityQuantity:
			if n, err := strconv.Atoi(ent.Value); err == nil {
				convo.Collected.Guests = n
			}
		case nlp.EntityPhone:
			convo.Collected.Phone = ent.Value
		case nlp.EntityEmail:
			convo.Collected.Email = ent.Value
		}
	}
	return nil, false, nil
}

// mergeLLMExtract folds tier-3 fields in without overwriting deterministic
// extractions from this turn.
func (e *Engine) mergeLLMExtract(ctx context.Context, company *catalog.Company, convo *conversation.Context, ex *ai.ExtractedData) {
	if ex == nil {
		return
	}
	c := &convo.Collected
	if c.ServiceKey == "" && ex.Service != "" {
		convo.ServiceKey = ex.Service
		c.ServiceKey = ex.Service
	}
	if c.Date.IsZero() && ex.Date != "" {
		if d, err := types.ParseDate(ex.Date); err == nil && !d.Before(e.dates.Today()) {
			c.Date = d
		}
	}
	if c.Time == "" && ex.Time != "" {
		c.Time = ex.Time
	}
	if c.Guests == 0 && ex.Guests > 0 {
		c.Guests = ex.Guests
	}
	if c.Phone == "" && ex.Phone != "" {
		c.Phone = nlp.NormalizePhone(ex.Phone)
	}
	for _, ref := range ex.Products {
		items, err := e.catalog.MatchProducts(ctx, company.ID, strings.ToLower(ref.Name))
		if err != nil || len(items) == 0 {
			continue
		}
		it := items[0]
		if ref.Quantity > 0 {
			it.Quantity = ref.Quantity
		}
		mergeItems(c, []catalog.Item{it})
	}
}

func mergeItems(c *catalog.Collected, items []catalog.Item) {
	for _, it := range items {
		found := false
		for i := range c.Items {
			if c.Items[i].ProductID == it.ProductID {
				c.Items[i].Quantity = it.Quantity
				found = true
				break
			}
		}
		if !found {
			c.Items = append(c.Items, it)
		}
	}
}

// bindPendingField captures bare answers to the previously asked field
// (address and name have no entity extractor).
func (e *Engine) bindPendingField(ctx context.Context, convo *conversation.Context, text string, entities []nlp.Entity) error {
	switch convo.PendingField {
	case catalog.FieldAddress:
		if convo.Collected.Address != "" || len(entities) > 0 {
			return nil
		}
		if e.geocoder == nil {
			convo.Collected.Address = strings.TrimSpace(text)
			return nil
		}
		addr, err := e.geocoder.Resolve(ctx, text, "co")
		if err != nil {
			return err
		}
		convo.Collected.Address = addr.Formatted
	case catalog.FieldName:
		if convo.Collected.Name == "" && len(entities) == 0 && len(strings.Fields(text)) <= 5 {
			convo.Collected.Name = strings.TrimSpace(text)
		}
	}
	return nil
}

func (e *Engine) askForService(ctx context.Context, company *catalog.Company, convo *conversation.Context) (*Response, error) {
	cfg, err := e.catalog.Resolve(ctx, company.ID, "")
	services := "reservar"
	if err == nil {
		services = strings.Join(cfg.AvailableServices, ", ")
	}
	reply, rerr := e.render(company, "ask_missing", map[string]any{
		"missing": "qué servicio deseas (" + services + ")",
	}, convo)
	if rerr != nil {
		return nil, rerr
	}
	convo.State = conversation.StateCollecting
	convo.PendingField = catalog.FieldService
	return &Response{Reply: reply, MissingFields: []string{catalog.FieldService}}, nil
}

func (e *Engine) askForMissing(company *catalog.Company, convo *conversation.Context, cfg *catalog.ServiceConfig, missing []string) (*Response, error) {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		labels = append(labels, cfg.MissingFieldLabels[f])
	}
	reply, err := e.render(company, "ask_missing", map[string]any{
		"missing": strings.Join(labels, ", "),
	}, convo)
	if err != nil {
		return nil, err
	}
	convo.State = conversation.StateCollecting
	convo.PendingField = missing[0]
	return &Response{Reply: reply, MissingFields: missing}, nil
}

// checkAdvance enforces the variant's minimum advance window.
func (e *Engine) checkAdvance(company *catalog.Company, convo *conversation.Context, cfg *catalog.ServiceConfig) (*Response, error) {
	if cfg.MinAdvanceMinutes <= 0 {
		return nil, nil
	}
	hour, min, ok := parseClock(convo.Collected.Time)
	if !ok {
		return nil, nil
	}
	at := convo.Collected.Date.At(hour, min, e.dates.Location())
	if at.Sub(e.dates.Now()).Minutes() >= float64(cfg.MinAdvanceMinutes) {
		return nil, nil
	}
	reply, err := e.render(company, "validation_invalid", map[string]any{
		"label": cfg.MissingFieldLabels[catalog.FieldTime],
	}, convo)
	if err != nil {
		return nil, err
	}
	convo.Collected.Time = ""
	convo.State = conversation.StateCollecting
	convo.PendingField = catalog.FieldTime
	return &Response{Reply: reply, MissingFields: []string{catalog.FieldTime}}, nil
}

// checkCapacity rejects a party size no single resource can hold.
func (e *Engine) checkCapacity(ctx context.Context, company *catalog.Company, convo *conversation.Context, cfg *catalog.ServiceConfig) (*Response, error) {
	if !cfg.Validator.RequiresGuests || convo.Collected.Guests <= 0 {
		return nil, nil
	}
	resources, err := e.catalog.Resources(ctx, company.ID, "")
	if err != nil || len(resources) == 0 {
		return nil, nil
	}
	maxCapacity := 0
	for _, r := range resources {
		if r.Available && r.Capacity > maxCapacity {
			maxCapacity = r.Capacity
		}
	}
	if maxCapacity == 0 || convo.Collected.Guests <= maxCapacity {
		return nil, nil
	}
	reply, rerr := e.render(company, "validation_invalid", map[string]any{
		"label": cfg.MissingFieldLabels[catalog.FieldGuests],
	}, convo)
	if rerr != nil {
		return nil, rerr
	}
	convo.Collected.Guests = 0
	convo.State = conversation.StateCollecting
	convo.PendingField = catalog.FieldGuests
	return &Response{Reply: reply, MissingFields: []string{catalog.FieldGuests}}, nil
}

func parseClock(s string) (int, int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return h, m, true
}

func (e *Engine) buildDraft(company *catalog.Company, user *users.User, convo *conversation.Context, cfg *catalog.ServiceConfig) *reservation.Reservation {
	c := convo.Collected
	var fee int64
	if convo.ServiceKey == catalog.ServiceDomicilio {
		fee = company.Config.DeliveryFee
	}
	name := c.Name
	if name == "" {
		name = user.Name
	}
	return &reservation.Reservation{
		CompanyID:      company.ID,
		UserID:         user.ID,
		ConversationID: convo.ConversationID,
		ServiceKey:     convo.ServiceKey,
		Date:           c.Date,
		Time:           c.Time,
		Guests:         c.Guests,
		Phone:          c.Phone,
		Name:           name,
		Address:        c.Address,
		Items:          c.Items,
		ServiceFee:     fee,
	}
}

func (e *Engine) confirmDraft(ctx context.Context, company *catalog.Company, convo *conversation.Context, cfg *catalog.ServiceConfig, draft *reservation.Reservation) (*Response, error) {
	err := e.flow.Confirm(ctx, draft)
	if err == nil {
		convo.State = conversation.StateConfirmed
		convo.DraftReservationID = string(draft.ID)
		convo.PendingField = ""
		reply, rerr := e.renderConfirm(company, convo, draft, "confirm")
		if rerr != nil {
			return nil, rerr
		}
		return &Response{Reply: reply}, nil
	}

	if errors.Is(err, inventory.ErrConflict) || errors.Is(err, inventory.ErrInsufficientStock) {
		// The whole attempt rolled back; the retry budget is untouched.
		reply, rerr := e.render(company, "stock_conflict", map[string]any{
			"product": firstItemName(draft.Items),
		}, convo)
		if rerr != nil {
			return nil, rerr
		}
		convo.State = conversation.StateCollecting
		return &Response{Reply: reply}, nil
	}

	convo.Retries++
	if convo.Retries >= e.retryBudget() {
		reply, rerr := e.render(company, "retry_exhausted", nil, convo)
		if rerr != nil {
			return nil, rerr
		}
		convo.ResetFlow()
		return &Response{Reply: reply}, nil
	}
	e.log.Error().Err(err).Msg("reservation confirm failed")
	reply, rerr := e.render(company, "error_generic", nil, convo)
	if rerr != nil {
		return nil, rerr
	}
	convo.State = conversation.StateCollecting
	return &Response{Reply: reply}, nil
}

func (e *Engine) requestPayment(ctx context.Context, company *catalog.Company, user *users.User, convo *conversation.Context, cfg *catalog.ServiceConfig, draft *reservation.Reservation) (*Response, error) {
	if err := e.flow.CreateAwaitingPayment(ctx, draft); err != nil {
		return nil, err
	}

	percent := company.PaymentPercent
	if percent <= 0 || percent > 100 {
		percent = 100
	}
	amountMinor := draft.Total * 100 * int64(percent) / 100

	p, err := e.payments.CreateCheckout(ctx, payment.CreateCheckoutCommand{
		Company:        company,
		ConversationID: convo.ConversationID,
		ReservationID:  draft.ID,
		Amount:         amountMinor,
		Description:    cfg.Validator.Name + " — " + company.Name,
		CustomerName:   draft.Name,
		CustomerEmail:  convo.Collected.Email,
	})
	if err != nil {
		// Provider down: the draft is cancelled and the user retries later.
		if cerr := e.flow.CancelPaymentFailed(ctx, draft.ID); cerr != nil {
			e.log.Error().Err(cerr).Str("reservation_id", string(draft.ID)).Msg("orphaned awaiting_payment draft")
		}
		reply, rerr := e.render(company, "payment_unavailable", nil, convo)
		if rerr != nil {
			return nil, rerr
		}
		convo.ResetFlow()
		convo.State = conversation.StateCancelled
		return &Response{Reply: reply}, nil
	}

	convo.State = conversation.StateAwaitingPayment
	convo.DraftReservationID = string(draft.ID)
	convo.PaymentRef = p.Reference
	convo.PaymentURL = p.CheckoutURL
	convo.PendingField = ""
	reply, rerr := e.render(company, "awaiting_payment", map[string]any{
		"payment_url": p.CheckoutURL,
		"date":        draft.Date.String(),
		"time":        draft.Time,
	}, convo)
	if rerr != nil {
		return nil, rerr
	}
	return &Response{Reply: reply}, nil
}

func (e *Engine) renderConfirm(company *catalog.Company, convo *conversation.Context, r *reservation.Reservation, key string) (string, error) {
	details := ""
	if r.Guests > 0 {
		d, err := e.render(company, "confirm_details_guests", map[string]any{"guests": r.Guests}, convo)
		if err == nil {
			details = " " + d
		}
	}
	return e.render(company, key, map[string]any{
		"date":    r.Date.String(),
		"time":    r.Time,
		"guests":  r.Guests,
		"details": details,
	}, convo)
}

func (e *Engine) retryBudget() int {
	if e.cfg.RetryBudget > 0 {
		return e.cfg.RetryBudget
	}
	return 3
}

func firstItemName(items []catalog.Item) string {
	if len(items) == 0 {
		return "el producto"
	}
	return items[0].Name
}
