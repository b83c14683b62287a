package catalog

import (
	"reflect"
	"testing"
	"time"

	"resbot/internal/types"
)

func TestMissingFields_CanonicalOrder(t *testing.T) {
	cfg := ValidatorConfig{
		RequiresGuests:  true,
		RequiresAddress: true,
		RequiredFields:  []string{FieldDate, FieldTime, FieldPhone, FieldName},
	}
	got := MissingFields(Collected{}, cfg)
	want := []string{FieldDate, FieldTime, FieldGuests, FieldAddress, FieldPhone, FieldName}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
}

func TestMissingFields_PresenceChecks(t *testing.T) {
	cfg := ValidatorConfig{
		RequiresGuests:   true,
		RequiresProducts: true,
		RequiredFields:   []string{FieldDate, FieldTime, FieldPhone},
	}

	c := Collected{
		Date:   types.Date{Year: 2026, Month: time.March, Day: 4},
		Time:   "20:00",
		Guests: 4,
		Items:  []Item{{ProductID: "p1", Name: "Pizza", Quantity: 1, UnitPrice: 30000}},
		Phone:  "+57 310 123 4567",
	}
	if got := MissingFields(c, cfg); len(got) != 0 {
		t.Fatalf("complete draft reported missing %v", got)
	}

	tests := []struct {
		name   string
		mutate func(*Collected)
		want   string
	}{
		{"malformed time", func(c *Collected) { c.Time = "8pm" }, FieldTime},
		{"zero guests", func(c *Collected) { c.Guests = 0 }, FieldGuests},
		{"guests above range", func(c *Collected) { c.Guests = 500 }, FieldGuests},
		{"zero-quantity items", func(c *Collected) { c.Items = []Item{{Quantity: 0}} }, FieldProducts},
		{"short phone", func(c *Collected) { c.Phone = "12345" }, FieldPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := c
			tt.mutate(&mutated)
			got := MissingFields(mutated, cfg)
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("missing = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestMissingFields_Idempotent(t *testing.T) {
	cfg := ValidatorConfig{RequiresGuests: true, RequiredFields: []string{FieldDate, FieldTime, FieldPhone}}
	c := Collected{Time: "10:30"}
	first := MissingFields(c, cfg)
	second := MissingFields(c, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validator not idempotent: %v vs %v", first, second)
	}
}
