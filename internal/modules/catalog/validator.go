// README: Field validator — computes the ordered missing-fields list for a draft.
package catalog

import (
	"regexp"

	"resbot/internal/types"
)

// FieldOrder is the canonical order in which missing fields are requested.
var FieldOrder = []string{
	FieldService, FieldDate, FieldTime, FieldGuests,
	FieldProducts, FieldAddress, FieldPhone, FieldName,
}

const (
	FieldService  = "service"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldGuests   = "guests"
	FieldProducts = "products"
	FieldAddress  = "address"
	FieldPhone    = "phone"
	FieldName     = "name"
)

// Item is one product line in a draft or persisted reservation.
type Item struct {
	ProductID types.ID `json:"productId"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unitPrice"`
}

// Collected is the per-conversation field set gathered turn by turn.
type Collected struct {
	ServiceKey string     `json:"serviceKey,omitempty"`
	Date       types.Date `json:"date,omitzero"`
	Time       string     `json:"time,omitempty"`
	Guests     int        `json:"guests,omitempty"`
	Items      []Item     `json:"items,omitempty"`
	Address    string     `json:"address,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
}

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// has reports whether the named field is present and passes its type check.
func (c Collected) has(field string) bool {
	switch field {
	case FieldService:
		return c.ServiceKey != ""
	case FieldDate:
		return !c.Date.IsZero()
	case FieldTime:
		return clockRe.MatchString(c.Time)
	case FieldGuests:
		return c.Guests >= 1 && c.Guests <= 100
	case FieldProducts:
		for _, it := range c.Items {
			if it.Quantity > 0 {
				return true
			}
		}
		return false
	case FieldAddress:
		return len(c.Address) >= 5
	case FieldPhone:
		return len(digitsOf(c.Phone)) >= 7
	case FieldName:
		return c.Name != ""
	}
	return false
}

func digitsOf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// MissingFields returns, in canonical order, the required fields the draft
// still lacks. Total and pure: validate(validate(x)) == validate(x).
func MissingFields(c Collected, cfg ValidatorConfig) []string {
	required := make(map[string]bool, len(cfg.RequiredFields))
	for _, f := range cfg.RequiredFields {
		required[f] = true
	}
	if cfg.RequiresGuests {
		required[FieldGuests] = true
	}
	if cfg.RequiresProducts {
		required[FieldProducts] = true
	}
	if cfg.RequiresAddress {
		required[FieldAddress] = true
	}

	var missing []string
	for _, f := range FieldOrder {
		if required[f] && !c.has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
