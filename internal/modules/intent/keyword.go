// README: Tier 1 — weighted keyword scan over tenant intentions and system keywords.
package intent

import (
	"sort"
	"strings"
)

const (
	// layer1Threshold is the minimum top score for a tier-1 decision.
	layer1Threshold = 0.85
	// layer1Margin is the minimum lead over the runner-up.
	layer1Margin = 0.1
	// containsFactor discounts substring matches against exact ones.
	containsFactor = 0.9
)

// Detector implements the keyword tier. It is stateless; keyword sets are
// supplied per call from the cached store.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect scans normalized text. The boolean reports whether tier 1 decided;
// when false the result still carries the top candidates for tier 2.
func (d *Detector) Detect(text string, intentions []Intention, system []SystemKeyword) (Result, bool) {
	tokens := strings.Fields(text)
	scores := make(map[string]float64)
	priorities := make(map[string]int)

	for _, in := range intentions {
		priorities[in.Name] = in.Priority
		for _, p := range in.Patterns {
			if s := matchScore(text, tokens, p.Value, p.MatchMode, p.Weight); s > scores[in.Name] {
				scores[in.Name] = s
			}
		}
	}
	for _, kw := range system {
		if s := matchScore(text, tokens, kw.Value, kw.MatchMode, kw.Weight); s > scores[kw.Category] {
			scores[kw.Category] = s
		}
	}

	candidates := make([]Candidate, 0, len(scores))
	for name, s := range scores {
		candidates = append(candidates, Candidate{Intent: name, Score: s, Priority: priorities[name]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Priority > candidates[j].Priority
	})

	if len(candidates) == 0 {
		return Result{Intent: Otro, Layer: Layer1}, false
	}

	top := candidates[0]
	decided := top.Score >= layer1Threshold
	if decided && len(candidates) > 1 {
		second := candidates[1]
		// An ambiguous head-to-head is only resolvable by priority.
		if top.Score-second.Score < layer1Margin && top.Priority <= second.Priority {
			decided = top.Priority > second.Priority
		}
	}
	return Result{Intent: top.Intent, Confidence: top.Score, Layer: Layer1, Candidates: candidates}, decided
}

// matchScore scores one keyword against the text, honoring its match mode.
func matchScore(text string, tokens []string, value, mode string, weight float64) float64 {
	switch mode {
	case MatchExact:
		if len(strings.Fields(value)) > 1 {
			if phraseMatches(text, value) {
				return weight
			}
			return 0
		}
		for _, tok := range tokens {
			if tok == value {
				return weight
			}
		}
		return 0
	default: // contains, on token boundaries
		if phraseMatches(text, value) {
			return weight * containsFactor
		}
		return 0
	}
}

// phraseMatches reports whether value occurs in text starting and ending on
// token boundaries.
func phraseMatches(text, value string) bool {
	from := 0
	for {
		i := strings.Index(text[from:], value)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || text[i-1] == ' '
		end := i + len(value)
		after := end == len(text) || text[end] == ' ' || isBoundaryPunct(text[end])
		if before && after {
			return true
		}
		from = i + 1
	}
}

func isBoundaryPunct(b byte) bool {
	return b == ',' || b == '.' || b == '?' || b == '!' || b == ';'
}

// DetectService resolves the most likely service key mentioned in the text.
func DetectService(text string, keywords []ServiceKeyword) (string, float64) {
	tokens := strings.Fields(text)
	bestKey, bestScore := "", 0.0
	for _, kw := range keywords {
		if s := matchScore(text, tokens, kw.Value, kw.MatchMode, kw.Weight); s > bestScore {
			bestKey, bestScore = kw.ServiceKey, s
		}
	}
	return bestKey, bestScore
}
