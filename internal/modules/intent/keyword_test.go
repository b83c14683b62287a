package intent

import (
	"testing"
)

func fixtureIntentions() []Intention {
	return []Intention{
		{
			ID: "i-res", CompanyID: "c1", Name: Reservar, Priority: 10,
			Patterns: []Pattern{
				{IntentionID: "i-res", Value: "reservar", Weight: 1.0, MatchMode: MatchExact},
				{IntentionID: "i-res", Value: "reserva", Weight: 0.95, MatchMode: MatchContains},
				{IntentionID: "i-res", Value: "mesa", Weight: 0.7, MatchMode: MatchExact},
			},
			Examples: []Example{
				{IntentionID: "i-res", Text: "quiero reservar una mesa", Tokens: Tokenize("quiero reservar una mesa")},
				{IntentionID: "i-res", Text: "quiero una mesa para dos", Tokens: Tokenize("quiero una mesa para dos")},
				{IntentionID: "i-res", Text: "quiero un pedido a domicilio", Tokens: Tokenize("quiero un pedido a domicilio")},
			},
		},
		{
			ID: "i-can", CompanyID: "c1", Name: Cancelar, Priority: 20,
			Patterns: []Pattern{
				{IntentionID: "i-can", Value: "cancelar", Weight: 1.0, MatchMode: MatchExact},
			},
			Examples: []Example{
				{IntentionID: "i-can", Text: "quiero cancelar mi reserva", Tokens: Tokenize("quiero cancelar mi reserva")},
			},
		},
		{
			ID: "i-con", CompanyID: "c1", Name: Consultar, Priority: 5,
			Patterns: []Pattern{
				{IntentionID: "i-con", Value: "menu", Weight: 0.9, MatchMode: MatchExact},
				{IntentionID: "i-con", Value: "horario", Weight: 0.9, MatchMode: MatchExact},
				{IntentionID: "i-con", Value: "servicios", Weight: 0.9, MatchMode: MatchExact},
			},
			Examples: []Example{
				{IntentionID: "i-con", Text: "que servicios tienen", Tokens: Tokenize("que servicios tienen")},
				{IntentionID: "i-con", Text: "me muestras el menu", Tokens: Tokenize("me muestras el menu")},
			},
		},
	}
}

func fixtureSystemKeywords() []SystemKeyword {
	return []SystemKeyword{
		{Category: Saludar, Value: "hola", Weight: 1.0, MatchMode: MatchExact, Language: "es"},
		{Category: Saludar, Value: "buenas", Weight: 0.9, MatchMode: MatchExact, Language: "es"},
		{Category: Despedida, Value: "adios", Weight: 1.0, MatchMode: MatchExact, Language: "es"},
		{Category: Despedida, Value: "gracias", Weight: 0.86, MatchMode: MatchExact, Language: "es"},
	}
}

func TestDetector_DecidesOnStrongKeyword(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name    string
		text    string
		want    string
		decided bool
	}{
		{"greeting", "hola", Saludar, true},
		{"reserve exact", "quiero reservar para hoy", Reservar, true},
		{"cancel", "necesito cancelar mi reserva", Cancelar, true},
		{"farewell", "adios", Despedida, true},
		{"no keywords", "el clima esta raro", Otro, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, decided := d.Detect(tt.text, fixtureIntentions(), fixtureSystemKeywords())
			if decided != tt.decided {
				t.Fatalf("decided = %v, want %v (res %+v)", decided, tt.decided, res)
			}
			if decided && res.Intent != tt.want {
				t.Fatalf("intent = %s, want %s", res.Intent, tt.want)
			}
			if res.Layer != Layer1 {
				t.Fatalf("layer = %s", res.Layer)
			}
		})
	}
}

func TestDetector_CancelBeatsReservaByMargin(t *testing.T) {
	d := NewDetector()
	// Both "cancelar" (1.0) and "reserva" (0.95 contains -> 0.855) match; the
	// 0.145 lead clears the 0.1 margin, so tier 1 decides without a tie-break.
	res, decided := d.Detect("cancelar mi reserva", fixtureIntentions(), fixtureSystemKeywords())
	if !decided {
		t.Fatalf("undecided: %+v", res)
	}
	if res.Intent != Cancelar {
		t.Fatalf("intent = %s, want %s", res.Intent, Cancelar)
	}
}

func TestDetector_WeakKeywordEscalates(t *testing.T) {
	d := NewDetector()
	// "mesa" alone scores 0.7, below the tier-1 threshold.
	res, decided := d.Detect("mesa para dos", fixtureIntentions(), fixtureSystemKeywords())
	if decided {
		t.Fatalf("tier 1 decided on weak keyword: %+v", res)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Intent != Reservar {
		t.Fatalf("candidates = %+v", res.Candidates)
	}
}

func TestDetector_ContainsRequiresTokenBoundary(t *testing.T) {
	d := NewDetector()
	// "reservado" must not match the contains-mode keyword "reserva".
	_, decided := d.Detect("ya quedo reservado", fixtureIntentions(), fixtureSystemKeywords())
	if decided {
		t.Fatal("substring inside a longer token must not match")
	}
}

func TestDetectService(t *testing.T) {
	kws := []ServiceKeyword{
		{ServiceKey: "mesa", Value: "mesa", Weight: 0.9, MatchMode: MatchExact},
		{ServiceKey: "domicilio", Value: "domicilio", Weight: 1.0, MatchMode: MatchExact},
		{ServiceKey: "cita", Value: "cita", Weight: 1.0, MatchMode: MatchExact},
	}
	tests := []struct {
		text string
		want string
	}{
		{"quiero una mesa para dos", "mesa"},
		{"un pedido a domicilio", "domicilio"},
		{"agendar una cita", "cita"},
		{"hola", ""},
	}
	for _, tt := range tests {
		got, _ := DetectService(tt.text, kws)
		if got != tt.want {
			t.Errorf("DetectService(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}
