// README: Tier 2 — similarity against per-tenant example utterances.
package intent

import (
	"sort"
	"strings"

	"resbot/internal/nlp"
)

// layer2Threshold is the minimum composite similarity for a tier-2 decision.
const layer2Threshold = 0.70

// Matcher implements the similarity tier.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match compares the normalized message against each intention's examples.
// The prior holds tier-1 candidates; when an intent has a tier-1 score its
// composite is averaged with it. The boolean reports whether tier 2 decided.
func (m *Matcher) Match(text string, intentions []Intention, prior []Candidate) (Result, bool) {
	msgTokens := strings.Fields(text)
	priorScores := make(map[string]float64, len(prior))
	for _, c := range prior {
		priorScores[c.Intent] = c.Score
	}

	candidates := make([]Candidate, 0, len(intentions))
	for _, in := range intentions {
		best := 0.0
		for _, ex := range in.Examples {
			if s := composite(text, msgTokens, ex); s > best {
				best = s
			}
		}
		if best == 0 {
			continue
		}
		if t1, ok := priorScores[in.Name]; ok && t1 > 0 {
			best = (best + t1) / 2
		}
		candidates = append(candidates, Candidate{Intent: in.Name, Score: best, Priority: in.Priority})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Priority > candidates[j].Priority
	})

	if len(candidates) == 0 {
		return Result{Intent: Otro, Layer: Layer2}, false
	}
	top := candidates[0]
	return Result{Intent: top.Intent, Confidence: top.Score, Layer: Layer2, Candidates: candidates},
		top.Score >= layer2Threshold
}

// composite blends token-set Jaccard with normalized edit distance over the
// concatenated strings.
func composite(text string, msgTokens []string, ex Example) float64 {
	j := jaccard(msgTokens, ex.Tokens)
	e := editSimilarity(text, ex.Text)
	return (j + e) / 2
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	d := nlp.Levenshtein(a, b)
	return 1 - float64(d)/float64(longer)
}

// Tokenize prepares example utterances at load time.
func Tokenize(s string) []string {
	return strings.Fields(s)
}
