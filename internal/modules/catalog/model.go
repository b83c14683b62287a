// README: Catalog aggregates — companies, products, resources, service variants.
package catalog

import (
	"encoding/json"
	"time"

	"resbot/internal/types"
)

// CategoryService marks a product row as a service variant rather than a
// sellable item.
const CategoryService = "service"

// Reserved service keys. Additional keys are tenant-defined.
const (
	ServiceMesa      = "mesa"
	ServiceDomicilio = "domicilio"
	ServiceCita      = "cita"
)

type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// BusinessHours maps weekday (0=Sunday) to opening hours.
type BusinessHours map[time.Weekday]DayHours

type Company struct {
	ID                 types.ID
	Name               string
	Type               string // restaurant, clinic, salon, spa, ...
	Hours              BusinessHours
	PaymentEnabled     bool
	PaymentPercent     int // percentage collected up front when payment is required
	ProviderPublicKey  string
	ProviderPrivateKey string
	Config             CompanyConfig
	Active             bool
}

// CompanyConfig is the tenant's free-form configuration, parsed into the
// fields control flow reads. Unknown keys survive round-trips in Extra but
// are never consulted.
type CompanyConfig struct {
	DeliveryFee     int64             `json:"deliveryFee,omitempty"`
	Terminology     map[string]string `json:"terminology,omitempty"`
	GuestsByDefault *bool             `json:"guestsByDefault,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (c *CompanyConfig) UnmarshalJSON(data []byte) error {
	type alias CompanyConfig
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	delete(all, "deliveryFee")
	delete(all, "terminology")
	delete(all, "guestsByDefault")
	*c = CompanyConfig(known)
	if len(all) > 0 {
		c.Extra = all
	}
	return nil
}

func (c CompanyConfig) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(c.Extra)+3)
	for k, v := range c.Extra {
		merged[k] = v
	}
	type alias CompanyConfig
	knownRaw, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(knownRaw, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

type Product struct {
	ID          types.ID
	CompanyID   types.ID
	Name        string
	Category    string
	Price       int64 // COP
	DurationMin int
	TrackStock  bool
	Stock       int
	MinStock    int
	Keywords    []string
	Metadata    json.RawMessage
	Active      bool
}

// IsService reports whether this product row is a service variant.
func (p *Product) IsService() bool {
	return p.Category == CategoryService
}

// Available reports whether the product can be sold right now. Products that
// do not track stock are always available while active.
func (p *Product) Available(qty int) bool {
	if !p.Active {
		return false
	}
	if !p.TrackStock {
		return true
	}
	return p.Stock >= qty
}

type Resource struct {
	ID        types.ID
	CompanyID types.ID
	Type      string // mesa, consultorio, ...
	Capacity  int
	Available bool
	Active    bool
	Metadata  json.RawMessage
}

// VariantMeta parameterizes the reservation flow for one service variant. It
// is stored as the metadata of a category=service product.
type VariantMeta struct {
	ServiceKey        string            `json:"serviceKey"`
	RequiresProducts  bool              `json:"requiresProducts,omitempty"`
	RequiresPayment   bool              `json:"requiresPayment,omitempty"`
	RequiresGuests    *bool             `json:"requiresGuests,omitempty"`
	RequiresAddress   bool              `json:"requiresAddress,omitempty"`
	RequiresTable     bool              `json:"requiresTable,omitempty"`
	MinAdvanceMinutes int               `json:"minAdvanceMinutes,omitempty"`
	RequiredFields    []string          `json:"requiredFields,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var variantKnownKeys = []string{
	"serviceKey", "requiresProducts", "requiresPayment", "requiresGuests",
	"requiresAddress", "requiresTable", "minAdvanceMinutes", "requiredFields", "labels",
}

func (m *VariantMeta) UnmarshalJSON(data []byte) error {
	type alias VariantMeta
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range variantKnownKeys {
		delete(all, k)
	}
	*m = VariantMeta(known)
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

func (m VariantMeta) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(m.Extra)+len(variantKnownKeys))
	for k, v := range m.Extra {
		merged[k] = v
	}
	type alias VariantMeta
	knownRaw, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(knownRaw, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Variant couples a service product row with its parsed metadata.
type Variant struct {
	Product Product
	Meta    VariantMeta
}
