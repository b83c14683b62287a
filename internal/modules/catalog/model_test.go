package catalog

import (
	"encoding/json"
	"testing"
)

func TestVariantMeta_UnknownKeysPreserved(t *testing.T) {
	raw := []byte(`{
		"serviceKey": "domicilio",
		"requiresProducts": true,
		"requiresPayment": true,
		"legacyZone": "norte",
		"uiColor": "#ff0000"
	}`)

	var m VariantMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m.ServiceKey != "domicilio" || !m.RequiresProducts || !m.RequiresPayment {
		t.Fatalf("known fields lost: %+v", m)
	}
	if _, ok := m.Extra["legacyZone"]; !ok {
		t.Fatalf("unknown key dropped: %v", m.Extra)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"serviceKey", "legacyZone", "uiColor"} {
		if _, ok := round[k]; !ok {
			t.Fatalf("round-trip dropped %q: %s", k, out)
		}
	}
}

func TestCompanyConfig_UnknownKeysPreserved(t *testing.T) {
	raw := []byte(`{"deliveryFee": 5000, "theme": "dark", "terminology": {"reservation": "pedido"}}`)

	var c CompanyConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatal(err)
	}
	if c.DeliveryFee != 5000 {
		t.Fatalf("deliveryFee = %d", c.DeliveryFee)
	}
	if c.Terminology["reservation"] != "pedido" {
		t.Fatalf("terminology = %v", c.Terminology)
	}
	if _, ok := c.Extra["theme"]; !ok {
		t.Fatalf("unknown key dropped: %v", c.Extra)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatal(err)
	}
	if _, ok := round["theme"]; !ok {
		t.Fatalf("round-trip dropped theme: %s", out)
	}
}

func TestProduct_Available(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		qty  int
		want bool
	}{
		{"untracked always available", Product{Active: true, TrackStock: false, Stock: 0}, 5, true},
		{"tracked with stock", Product{Active: true, TrackStock: true, Stock: 3}, 3, true},
		{"tracked without stock", Product{Active: true, TrackStock: true, Stock: 2}, 3, false},
		{"inactive never available", Product{Active: false, TrackStock: false}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Available(tt.qty); got != tt.want {
				t.Fatalf("Available(%d) = %v", tt.qty, got)
			}
		})
	}
}
