package templates

import (
	"strings"
	"testing"
)

func TestRenderer_Substitution(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Render("restaurant", "greeting", map[string]any{"company": "La Trattoria"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "La Trattoria") {
		t.Fatalf("greeting = %q", got)
	}
}

func TestRenderer_FallsBackToDefaultBundle(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Render("spa", "farewell", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Fatal("empty farewell from default bundle")
	}
}

func TestRenderer_TerminologyByType(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	vars := map[string]any{"date": "2026-03-04", "time": "10:00", "details": ""}

	clinic, err := r.Render("clinic", "confirm", vars)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(clinic, "cita") {
		t.Fatalf("clinic confirm = %q, want cita noun", clinic)
	}

	rest, err := r.Render("restaurant", "confirm", vars)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rest, "reserva") {
		t.Fatalf("restaurant confirm = %q, want reserva noun", rest)
	}
}

func TestRenderer_Pluralization(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}

	one, err := r.Render("restaurant", "confirm_details_guests", map[string]any{"guests": 1})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(one, "1 persona") || strings.Contains(one, "personas") {
		t.Fatalf("singular form = %q", one)
	}

	many, err := r.Render("restaurant", "confirm_details_guests", map[string]any{"guests": 4})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(many, "4 personas") {
		t.Fatalf("plural form = %q", many)
	}
}

func TestRenderer_TerminologyOverride(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.RenderWith("restaurant", "cancel_done", nil, map[string]string{"reservation": "pedido"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "pedido") {
		t.Fatalf("override not applied: %q", got)
	}
}

func TestRenderer_UnknownKey(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render("restaurant", "no_such_template", nil); err == nil {
		t.Fatal("expected error for unknown template key")
	}
}
