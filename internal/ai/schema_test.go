package ai

import (
	"strings"
	"testing"
)

func TestParseResult_Valid(t *testing.T) {
	raw := []byte(`{
		"intention": "reservar",
		"confidence": 0.92,
		"extractedData": {
			"date": "2026-03-04",
			"time": "20:00",
			"guests": 4,
			"service": "mesa",
			"products": [{"name": "Pizza Margherita", "quantity": 1}]
		},
		"missingFields": ["phone"],
		"suggestedReply": "¡Perfecto! ¿Me das un teléfono de contacto?",
		"thinking": {"razonamiento": "el usuario pide mesa"}
	}`)

	res, err := ParseResult(raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Intention != "reservar" || res.Confidence != 0.92 {
		t.Fatalf("res = %+v", res)
	}
	if res.Extracted.Date != "2026-03-04" || res.Extracted.Guests != 4 {
		t.Fatalf("extracted = %+v", res.Extracted)
	}
	if len(res.Extracted.Products) != 1 || res.Extracted.Products[0].Quantity != 1 {
		t.Fatalf("products = %+v", res.Extracted.Products)
	}
}

func TestParseResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hola que tal`},
		{"missing intention", `{"confidence": 0.5}`},
		{"unknown intention", `{"intention": "volar", "confidence": 0.5}`},
		{"confidence out of range", `{"intention": "otro", "confidence": 1.7}`},
		{"bad date format", `{"intention": "reservar", "confidence": 0.8, "extractedData": {"date": "04/03/2026"}}`},
		{"bad time format", `{"intention": "reservar", "confidence": 0.8, "extractedData": {"time": "8pm"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseResult([]byte(tt.raw)); err == nil {
				t.Fatalf("ParseResult accepted %s", tt.raw)
			}
		})
	}
}

func TestBuildPrompt_ContainsContext(t *testing.T) {
	req := ClassifyRequest{
		CompanyName:       "La Trattoria",
		CompanyType:       "restaurant",
		CivilDate:         "2026-03-03",
		Weekday:           "martes",
		AvailableServices: []string{"mesa", "domicilio"},
		RecentTurns:       []Turn{{Role: "user", Text: "hola"}, {Role: "bot", Text: "¡Hola!"}},
		Collected:         map[string]string{"date": "2026-03-04"},
		Catalog:           []CatalogItem{{Name: "Pizza Margherita", Category: "comida", Price: 32000}},
		Message:           "para las 8 de la noche",
	}
	p := buildPrompt(req)
	for _, want := range []string{"La Trattoria", "2026-03-03", "mesa, domicilio", "Pizza Margherita", "para las 8 de la noche", "missingFields"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestCleanJSONString(t *testing.T) {
	in := "```json\n{\"intention\": \"otro\", \"confidence\": 0.4}\n```"
	if got := cleanJSONString(in); !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
		t.Fatalf("cleanJSONString = %q", got)
	}
}
