// README: Service-config resolver — maps a service key to its validator config and UX noun.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var ErrServiceUnknown = errors.New("service not offered")

// ValidatorConfig parameterizes the field validator for one service variant.
type ValidatorConfig struct {
	RequiresProducts bool
	RequiresGuests   bool
	RequiresTable    bool
	RequiresPayment  bool
	RequiresAddress  bool
	RequiredFields   []string
	Name             string
	Enabled          bool
}

// ServiceConfig is the full resolution result for (company, serviceKey).
type ServiceConfig struct {
	Validator           ValidatorConfig
	MissingFieldLabels  map[string]string
	HasMultipleServices bool
	AvailableServices   []string
	ReservationNoun     string
	MinAdvanceMinutes   int
	Variant             *Variant
}

// defaultFieldLabels is the base human-label table; variants may override
// individual entries.
var defaultFieldLabels = map[string]string{
	FieldService:  "qué servicio deseas",
	FieldDate:     "para qué fecha",
	FieldTime:     "a qué hora",
	FieldGuests:   "para cuántas personas",
	FieldProducts: "qué productos quieres",
	FieldAddress:  "la dirección de entrega",
	FieldPhone:    "un teléfono de contacto",
	FieldName:     "a nombre de quién",
}

// guestsByType records which tenant types ask for a party size by default.
var guestsByType = map[string]bool{
	"restaurant": true,
}

// ReservationNoun returns the tenant-facing word for a booking of the given
// service key.
func ReservationNoun(serviceKey string) string {
	switch serviceKey {
	case ServiceDomicilio:
		return "pedido"
	case ServiceCita:
		return "cita"
	default:
		return "reserva"
	}
}

// ResolveService resolves the validator config for serviceKey among the
// company's variants. An empty serviceKey with exactly one variant resolves
// to that variant.
func ResolveService(company *Company, variants []Variant, serviceKey string) (*ServiceConfig, error) {
	available := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.Product.Active {
			available = append(available, v.Meta.ServiceKey)
		}
	}
	sort.Strings(available)

	var chosen *Variant
	if serviceKey == "" && len(available) == 1 {
		serviceKey = available[0]
	}
	for i := range variants {
		if variants[i].Meta.ServiceKey == serviceKey && variants[i].Product.Active {
			chosen = &variants[i]
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: %q", ErrServiceUnknown, serviceKey)
	}

	meta := chosen.Meta
	requiresGuests := guestsByType[company.Type] && !meta.RequiresProducts
	if company.Config.GuestsByDefault != nil {
		requiresGuests = *company.Config.GuestsByDefault && !meta.RequiresProducts
	}
	if meta.RequiresGuests != nil {
		requiresGuests = *meta.RequiresGuests
	}

	required := meta.RequiredFields
	if len(required) == 0 {
		required = []string{FieldDate, FieldTime, FieldPhone}
	}

	labels := make(map[string]string, len(defaultFieldLabels))
	for k, v := range defaultFieldLabels {
		labels[k] = v
	}
	for k, v := range meta.Labels {
		labels[k] = v
	}

	cfg := &ServiceConfig{
		Validator: ValidatorConfig{
			RequiresProducts: meta.RequiresProducts,
			RequiresGuests:   requiresGuests,
			RequiresTable:    meta.RequiresTable,
			RequiresPayment:  meta.RequiresPayment && company.PaymentEnabled,
			RequiresAddress:  meta.RequiresAddress,
			RequiredFields:   required,
			Name:             chosen.Product.Name,
			Enabled:          chosen.Product.Active,
		},
		MissingFieldLabels:  labels,
		HasMultipleServices: len(available) > 1,
		AvailableServices:   available,
		ReservationNoun:     ReservationNoun(serviceKey),
		MinAdvanceMinutes:   meta.MinAdvanceMinutes,
		Variant:             chosen,
	}
	return cfg, nil
}
