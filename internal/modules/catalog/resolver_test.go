package catalog

import (
	"errors"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func testCompany() *Company {
	return &Company{ID: "c1", Name: "La Trattoria", Type: "restaurant", PaymentEnabled: true, Active: true}
}

func testVariants() []Variant {
	return []Variant{
		{
			Product: Product{ID: "s-mesa", Name: "Reserva de mesa", Category: CategoryService, Active: true},
			Meta: VariantMeta{
				ServiceKey:     ServiceMesa,
				RequiredFields: []string{FieldDate, FieldTime, FieldPhone},
			},
		},
		{
			Product: Product{ID: "s-dom", Name: "Pedido a domicilio", Category: CategoryService, Active: true},
			Meta: VariantMeta{
				ServiceKey:       ServiceDomicilio,
				RequiresProducts: true,
				RequiresAddress:  true,
				RequiresPayment:  true,
				RequiredFields:   []string{FieldDate, FieldTime, FieldPhone},
			},
		},
	}
}

func TestResolveService_RestaurantMesa(t *testing.T) {
	cfg, err := ResolveService(testCompany(), testVariants(), ServiceMesa)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Validator.RequiresGuests {
		t.Fatal("restaurant mesa must require guests by default")
	}
	if cfg.Validator.RequiresPayment {
		t.Fatal("mesa does not require payment")
	}
	if cfg.ReservationNoun != "reserva" {
		t.Fatalf("noun = %s", cfg.ReservationNoun)
	}
	if !cfg.HasMultipleServices || len(cfg.AvailableServices) != 2 {
		t.Fatalf("services = %v", cfg.AvailableServices)
	}
}

func TestResolveService_DomicilioNounAndGuests(t *testing.T) {
	cfg, err := ResolveService(testCompany(), testVariants(), ServiceDomicilio)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReservationNoun != "pedido" {
		t.Fatalf("noun = %s", cfg.ReservationNoun)
	}
	// requiresProducts suppresses the tenant-type guests default.
	if cfg.Validator.RequiresGuests {
		t.Fatal("delivery must not ask for guests")
	}
	if !cfg.Validator.RequiresAddress || !cfg.Validator.RequiresProducts {
		t.Fatalf("validator = %+v", cfg.Validator)
	}
	if !cfg.Validator.RequiresPayment {
		t.Fatal("delivery requires payment when the tenant enables payments")
	}
}

func TestResolveService_PaymentDisabledByCompany(t *testing.T) {
	company := testCompany()
	company.PaymentEnabled = false
	cfg, err := ResolveService(company, testVariants(), ServiceDomicilio)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Validator.RequiresPayment {
		t.Fatal("payment must be off when the tenant has payments disabled")
	}
}

func TestResolveService_VariantGuestsOverride(t *testing.T) {
	variants := testVariants()
	variants[0].Meta.RequiresGuests = boolPtr(false)
	cfg, err := ResolveService(testCompany(), variants, ServiceMesa)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Validator.RequiresGuests {
		t.Fatal("explicit variant override must win")
	}
}

func TestResolveService_SingleVariantImplied(t *testing.T) {
	variants := testVariants()[:1]
	cfg, err := ResolveService(testCompany(), variants, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Variant.Meta.ServiceKey != ServiceMesa {
		t.Fatalf("implied service = %s", cfg.Variant.Meta.ServiceKey)
	}
	if cfg.HasMultipleServices {
		t.Fatal("single variant reported as multiple")
	}
}

func TestResolveService_Unknown(t *testing.T) {
	_, err := ResolveService(testCompany(), testVariants(), "masajes")
	if !errors.Is(err, ErrServiceUnknown) {
		t.Fatalf("err = %v", err)
	}
}

func TestReservationNoun(t *testing.T) {
	tests := map[string]string{
		ServiceMesa:      "reserva",
		ServiceDomicilio: "pedido",
		ServiceCita:      "cita",
		"masaje":         "reserva",
	}
	for key, want := range tests {
		if got := ReservationNoun(key); got != want {
			t.Errorf("ReservationNoun(%s) = %s, want %s", key, got, want)
		}
	}
}
