// README: Greeting, farewell, consult, and cancel handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resbot/internal/modules/catalog"
	"resbot/internal/modules/conversation"
	"resbot/internal/modules/users"
	"resbot/internal/types"
)

func (e *Engine) handleGreeting(ctx context.Context, company *catalog.Company, user *users.User, convo *conversation.Context) (*Response, error) {
	pref, err := e.users.GetPreference(ctx, user.ID, company.ID)
	if err == nil && pref.ReservationCount > 0 && user.Name != "" {
		reply, rerr := e.render(company, "greeting_returning", map[string]any{
			"name":           user.Name,
			"default_guests": pref.DefaultGuests,
		}, convo)
		if rerr == nil {
			return &Response{Reply: reply}, nil
		}
	}
	reply, rerr := e.render(company, "greeting", nil, convo)
	if rerr != nil {
		return nil, rerr
	}
	return &Response{Reply: reply}, nil
}

func (e *Engine) handleFarewell(company *catalog.Company, convo *conversation.Context) (*Response, error) {
	reply, err := e.render(company, "farewell", nil, convo)
	if err != nil {
		return nil, err
	}
	return &Response{Reply: reply}, nil
}

// handleConsult answers catalog, hours, and services questions from the
// tenant config and catalog.
func (e *Engine) handleConsult(ctx context.Context, company *catalog.Company, convo *conversation.Context, text string) (*Response, error) {
	switch {
	case containsAny(text, "horario", "hora de atencion", "abren", "cierran"):
		return e.renderHours(company, convo)
	case containsAny(text, "servicio", "tratamiento", "cita"):
		return e.renderServices(ctx, company, convo)
	case containsAny(text, "menu", "producto", "precio", "comida"):
		return e.renderMenu(ctx, company, convo)
	}
	if company.Type == "restaurant" {
		return e.renderMenu(ctx, company, convo)
	}
	return e.renderServices(ctx, company, convo)
}

func (e *Engine) renderMenu(ctx context.Context, company *catalog.Company, convo *conversation.Context) (*Response, error) {
	products, err := e.catalog.Products(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	header, err := e.render(company, "menu_header", nil, convo)
	if err != nil {
		return nil, err
	}
	lines := []string{header}
	for _, p := range products {
		line, err := e.render(company, "menu_item", map[string]any{
			"name": p.Name, "price": p.Price,
		}, convo)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return &Response{Reply: strings.Join(lines, "\n")}, nil
}

func (e *Engine) renderServices(ctx context.Context, company *catalog.Company, convo *conversation.Context) (*Response, error) {
	cfg, err := e.catalog.Resolve(ctx, company.ID, "")
	if err != nil && !errors.Is(err, catalog.ErrServiceUnknown) {
		return nil, err
	}
	header, rerr := e.render(company, "services_header", nil, convo)
	if rerr != nil {
		return nil, rerr
	}
	lines := []string{header}
	if cfg != nil {
		for _, s := range cfg.AvailableServices {
			line, rerr := e.render(company, "services_item", map[string]any{"name": s}, convo)
			if rerr != nil {
				return nil, rerr
			}
			lines = append(lines, line)
		}
	}
	return &Response{Reply: strings.Join(lines, "\n")}, nil
}

func (e *Engine) renderHours(company *catalog.Company, convo *conversation.Context) (*Response, error) {
	header, err := e.render(company, "hours_header", nil, convo)
	if err != nil {
		return nil, err
	}
	lines := []string{header}
	for w := time.Monday; ; w = (w + 1) % 7 {
		day, ok := company.Hours[w]
		if ok {
			hours := "cerrado"
			if !day.Closed {
				hours = day.Open + " - " + day.Close
			}
			line, err := e.render(company, "hours_line", map[string]any{
				"day": weekdayTitle(w), "hours": hours,
			}, convo)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}
		if w == time.Sunday {
			break
		}
	}
	return &Response{Reply: strings.Join(lines, "\n")}, nil
}

var weekdayTitles = map[time.Weekday]string{
	time.Monday: "Lunes", time.Tuesday: "Martes", time.Wednesday: "Miércoles",
	time.Thursday: "Jueves", time.Friday: "Viernes", time.Saturday: "Sábado",
	time.Sunday: "Domingo",
}

func weekdayTitle(w time.Weekday) string {
	return weekdayTitles[w]
}

// startCancel lists the user's active reservations for selection.
func (e *Engine) startCancel(ctx context.Context, company *catalog.Company, user *users.User, convo *conversation.Context) (*Response, error) {
	active, err := e.flow.ListActive(ctx, company.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		reply, rerr := e.render(company, "cancel_none", nil, convo)
		if rerr != nil {
			return nil, rerr
		}
		return &Response{Reply: reply}, nil
	}

	if len(active) == 1 {
		convo.CancelOptions = []string{string(active[0].ID)}
		convo.CancelPick = 1
		return e.askCancelConfirm(company, convo, active[0].Date.String(), active[0].Time)
	}

	convo.CancelOptions = make([]string, 0, len(active))
	var list []string
	for i, r := range active {
		convo.CancelOptions = append(convo.CancelOptions, string(r.ID))
		list = append(list, fmt.Sprintf("%d. %s a las %s (%s)", i+1, r.Date.String(), r.Time, catalog.ReservationNoun(r.ServiceKey)))
	}
	convo.CancelPick = 0
	reply, rerr := e.render(company, "cancel_list", map[string]any{
		"list": strings.Join(list, "\n"),
	}, convo)
	if rerr != nil {
		return nil, rerr
	}
	return &Response{Reply: reply}, nil
}

// continueCancel advances a pending selection or confirmation.
func (e *Engine) continueCancel(ctx context.Context, company *catalog.Company, convo *conversation.Context, text string) (*Response, error) {
	if convo.CancelPick == 0 {
		pick, ok := parseSelection(text, len(convo.CancelOptions))
		if !ok {
			reply, err := e.render(company, "cancel_pick_invalid", nil, convo)
			if err != nil {
				return nil, err
			}
			return &Response{Reply: reply}, nil
		}
		convo.CancelPick = pick
		r, err := e.flow.Get(ctx, types.ID(convo.CancelOptions[pick-1]))
		if err != nil {
			return nil, err
		}
		return e.askCancelConfirm(company, convo, r.Date.String(), r.Time)
	}

	switch {
	case isAffirmative(text):
		id := types.ID(convo.CancelOptions[convo.CancelPick-1])
		if err := e.flow.Cancel(ctx, id); err != nil {
			return nil, err
		}
		reply, rerr := e.render(company, "cancel_done", nil, convo)
		if rerr != nil {
			return nil, rerr
		}
		convo.ResetFlow()
		convo.State = conversation.StateCancelled
		return &Response{Reply: reply}, nil
	case isNegative(text):
		reply, err := e.render(company, "cancel_kept", nil, convo)
		if err != nil {
			return nil, err
		}
		convo.CancelOptions = nil
		convo.CancelPick = 0
		return &Response{Reply: reply}, nil
	default:
		r, err := e.flow.Get(ctx, types.ID(convo.CancelOptions[convo.CancelPick-1]))
		if err != nil {
			return nil, err
		}
		return e.askCancelConfirm(company, convo, r.Date.String(), r.Time)
	}
}

func (e *Engine) askCancelConfirm(company *catalog.Company, convo *conversation.Context, date, clock string) (*Response, error) {
	reply, err := e.render(company, "cancel_confirm", map[string]any{
		"date": date, "time": clock,
	}, convo)
	if err != nil {
		return nil, err
	}
	return &Response{Reply: reply}, nil
}

func parseSelection(text string, n int) (int, bool) {
	fields := strings.Fields(text)
	ordinals := map[string]int{
		"primera": 1, "primero": 1, "una": 1, "uno": 1,
		"segunda": 2, "segundo": 2, "dos": 2,
		"tercera": 3, "tercero": 3, "tres": 3,
	}
	for _, f := range fields {
		f = strings.Trim(f, ".,!?")
		if v, err := strconv.Atoi(f); err == nil && v >= 1 && v <= n {
			return v, true
		}
		if v, ok := ordinals[f]; ok && v <= n {
			return v, true
		}
	}
	return 0, false
}

var affirmatives = []string{"si", "sí", "confirmo", "claro", "dale", "listo", "ok", "por supuesto", "correcto"}
var negatives = []string{"no", "mejor no", "todavia no", "dejala", "dejalo"}

func isAffirmative(text string) bool {
	return matchesWordList(text, affirmatives)
}

func isNegative(text string) bool {
	return matchesWordList(text, negatives)
}

func matchesWordList(text string, words []string) bool {
	t := strings.TrimSpace(strings.Trim(text, ".,!?"))
	for _, w := range words {
		if t == w || strings.HasPrefix(t, w+" ") || strings.HasPrefix(t, w+",") {
			return true
		}
	}
	return false
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
