package intent

import (
	"testing"
)

func TestMatcher_DecidesOnCloseExample(t *testing.T) {
	m := NewMatcher()
	res, decided := m.Match("quiero reservar una mesa", fixtureIntentions(), nil)
	if !decided {
		t.Fatalf("undecided: %+v", res)
	}
	if res.Intent != Reservar {
		t.Fatalf("intent = %s", res.Intent)
	}
	if res.Layer != Layer2 {
		t.Fatalf("layer = %s", res.Layer)
	}
	if res.Confidence < layer2Threshold {
		t.Fatalf("confidence = %f", res.Confidence)
	}
}

func TestMatcher_NearMissStillDecides(t *testing.T) {
	m := NewMatcher()
	res, decided := m.Match("quiero una mesa para 2", fixtureIntentions(), nil)
	if !decided || res.Intent != Reservar {
		t.Fatalf("res = %+v decided=%v", res, decided)
	}
}

func TestMatcher_UnrelatedEscalates(t *testing.T) {
	m := NewMatcher()
	res, decided := m.Match("cuanto cuesta un viaje a marte", fixtureIntentions(), nil)
	if decided {
		t.Fatalf("tier 2 decided on unrelated text: %+v", res)
	}
}

func TestMatcher_AveragesWithTier1Score(t *testing.T) {
	m := NewMatcher()
	text := "quiero reservar mesa"

	alone, _ := m.Match(text, fixtureIntentions(), nil)
	boosted, _ := m.Match(text, fixtureIntentions(), []Candidate{{Intent: Reservar, Score: 0.8}})

	if alone.Confidence >= 1.0 {
		t.Fatalf("baseline confidence = %f", alone.Confidence)
	}
	want := (alone.Confidence + 0.8) / 2
	if diff := boosted.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("boosted = %f, want %f", boosted.Confidence, want)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{[]string{"a", "b"}, []string{"a", "b"}, 1},
		{[]string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{[]string{"a"}, []string{"b"}, 0},
		{nil, nil, 0},
	}
	for _, tt := range tests {
		if got := jaccard(tt.a, tt.b); got != tt.want {
			t.Errorf("jaccard(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
