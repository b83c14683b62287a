// README: Three-tier intent cascade — keyword, similarity, then LLM behind the breaker.
package bot

import (
	"context"
	"fmt"
	"time"

	"resbot/internal/ai"
	"resbot/internal/breaker"
	"resbot/internal/dates"
	"resbot/internal/metrics"
	"resbot/internal/modules/catalog"
	"resbot/internal/modules/conversation"
	"resbot/internal/modules/intent"
)

// notUnderstoodFloor: a fallback result below this confidence is treated as
// NotUnderstood by the dispatcher.
const notUnderstoodFloor = 0.4

// classify runs the tier cascade. A message decided at tier 1 never reaches
// tier 3; a breaker-OPEN tier 3 degrades to the best lower-tier candidate.
// The second return value carries tier-3 extracted fields when tier 3 ran.
func (e *Engine) classify(ctx context.Context, company *catalog.Company, convo *conversation.Context, text string) (intent.Result, *ai.ExtractedData, error) {
	corpus, err := e.intents.CorpusFor(ctx, company.ID)
	if err != nil {
		return intent.Result{}, nil, err
	}

	start := time.Now()
	res1, decided := e.detector.Detect(text, corpus.Intentions, corpus.System)
	e.observeTier(intent.Layer1, decided, start)
	if decided {
		return res1, nil, nil
	}

	start = time.Now()
	res2, decided := e.matcher.Match(text, corpus.Intentions, res1.Candidates)
	e.observeTier(intent.Layer2, decided, start)
	if decided {
		return res2, nil, nil
	}

	llmRes, err := e.classifyLLM(ctx, company, convo, text)
	if err == nil {
		return intent.Result{
			Intent:     llmRes.Intention,
			Confidence: llmRes.Confidence,
			Layer:      intent.Layer3,
		}, &llmRes.Extracted, nil
	}

	// Degraded mode: best lower-tier candidate wins.
	best := res1
	if res2.Confidence > best.Confidence {
		best = res2
	}
	best.Layer = intent.LayerFallback
	if best.Confidence < notUnderstoodFloor {
		best.Intent = intent.Otro
	}
	e.log.Warn().Err(err).Str("fallback_intent", best.Intent).Msg("LLM tier unavailable")
	return best, nil, nil
}

// classifyLLM invokes tier 3 through the in-flight semaphore and the circuit
// breaker. A full queue counts as an upstream failure.
func (e *Engine) classifyLLM(ctx context.Context, company *catalog.Company, convo *conversation.Context, text string) (*ai.ClassifyResult, error) {
	if e.llm == nil {
		return nil, fmt.Errorf("no LLM classifier configured")
	}

	select {
	case e.llmSem <- struct{}{}:
		defer func() { <-e.llmSem }()
	default:
		e.breaker.RecordFailure()
		e.metrics.ObserveTier(intent.Layer3, metrics.OutcomeRejected, 0)
		return nil, fmt.Errorf("LLM queue full")
	}

	if !e.breaker.Allow() {
		e.metrics.ObserveTier(intent.Layer3, metrics.OutcomeRejected, 0)
		return nil, breaker.ErrOpen
	}

	llmCtx := ctx
	if e.cfg.LLMDeadline > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, e.cfg.LLMDeadline)
		defer cancel()
	}

	start := time.Now()
	res, err := e.llm.Classify(llmCtx, e.buildLLMRequest(llmCtx, company, convo, text))
	if err != nil {
		e.breaker.RecordFailure()
		e.metrics.ObserveTier(intent.Layer3, metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	e.breaker.RecordSuccess()
	e.metrics.ObserveTier(intent.Layer3, metrics.OutcomeHit, time.Since(start))
	return res, nil
}

func (e *Engine) buildLLMRequest(ctx context.Context, company *catalog.Company, convo *conversation.Context, text string) ai.ClassifyRequest {
	today := e.dates.Today()
	req := ai.ClassifyRequest{
		CompanyName: company.Name,
		CompanyType: company.Type,
		CivilDate:   today.String(),
		Weekday:     dates.WeekdayName(today.Weekday()),
		Hours:       formatHours(company.Hours),
		Message:     text,
		Collected:   collectedSnapshot(convo.Collected),
	}
	for _, t := range convo.Turns {
		req.RecentTurns = append(req.RecentTurns, ai.Turn{Role: t.Role, Text: t.Text})
	}
	if cfg, err := e.catalog.Resolve(ctx, company.ID, convo.ServiceKey); err == nil {
		req.AvailableServices = cfg.AvailableServices
	}
	if products, err := e.catalog.Products(ctx, company.ID); err == nil {
		for _, p := range products {
			req.Catalog = append(req.Catalog, ai.CatalogItem{Name: p.Name, Category: p.Category, Price: p.Price})
		}
	}
	return req
}

func collectedSnapshot(c catalog.Collected) map[string]string {
	snap := make(map[string]string)
	if c.ServiceKey != "" {
		snap["service"] = c.ServiceKey
	}
	if !c.Date.IsZero() {
		snap["date"] = c.Date.String()
	}
	if c.Time != "" {
		snap["time"] = c.Time
	}
	if c.Guests > 0 {
		snap["guests"] = fmt.Sprint(c.Guests)
	}
	if c.Phone != "" {
		snap["phone"] = c.Phone
	}
	if c.Address != "" {
		snap["address"] = c.Address
	}
	if len(c.Items) > 0 {
		names := ""
		for i, it := range c.Items {
			if i > 0 {
				names += ", "
			}
			names += fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		}
		snap["products"] = names
	}
	return snap
}

func formatHours(hours catalog.BusinessHours) string {
	if len(hours) == 0 {
		return ""
	}
	out := ""
	for w := time.Sunday; w <= time.Saturday; w++ {
		day, ok := hours[w]
		if !ok {
			continue
		}
		if out != "" {
			out += "; "
		}
		if day.Closed {
			out += fmt.Sprintf("%s: cerrado", dates.WeekdayName(w))
			continue
		}
		out += fmt.Sprintf("%s: %s-%s", dates.WeekdayName(w), day.Open, day.Close)
	}
	return out
}

func (e *Engine) observeTier(tier string, decided bool, start time.Time) {
	outcome := metrics.OutcomeMiss
	if decided {
		outcome = metrics.OutcomeHit
	}
	e.metrics.ObserveTier(tier, outcome, time.Since(start))
}
