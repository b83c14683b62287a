// README: Text normalizer — lowercase, diacritics, typo correction, synonyms.
package nlp

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fuzzyMinLen is the shortest out-of-vocabulary token the Levenshtein pass considers.
const fuzzyMinLen = 4

// fuzzyMinConfidence gates acceptance of a fuzzy vocabulary match.
const fuzzyMinConfidence = 0.7

// Correction records a token replacement applied during normalization.
type Correction struct {
	From   string
	To     string
	Source string // "typo", "phrase", "synonym", "fuzzy", "learned"
}

// Normalizer cleans up raw user text before intent detection. It is a pure
// function of its input modulo the learned-correction map, which only grows.
type Normalizer struct {
	typos    map[string]string
	phrases  [][2]string
	synonyms map[string]string
	vocab    map[string]struct{}

	mu      sync.RWMutex
	learned map[string]string
}

// NewNormalizer builds a normalizer from the static tables plus any extra
// vocabulary (tenant and system keywords loaded at startup).
func NewNormalizer(extraVocab []string) *Normalizer {
	n := &Normalizer{
		typos:    typoDictionary,
		phrases:  phraseTypos,
		synonyms: buildSynonymIndex(synonymGroups),
		vocab:    make(map[string]struct{}, len(typoDictionary)+len(extraVocab)),
		learned:  make(map[string]string),
	}
	for _, canon := range typoDictionary {
		n.vocab[canon] = struct{}{}
	}
	for canon := range n.synonyms {
		n.vocab[canon] = struct{}{}
	}
	for _, g := range synonymGroups {
		n.vocab[g.canonical] = struct{}{}
	}
	for _, w := range baseVocabulary {
		n.vocab[w] = struct{}{}
	}
	for _, w := range extraVocab {
		for _, tok := range strings.Fields(stripDiacritics(strings.ToLower(w))) {
			n.vocab[tok] = struct{}{}
		}
	}
	return n
}

// sentencePunct drops punctuation that would otherwise stick to tokens and
// defeat exact keyword matching. Periods survive for emails and clock forms.
var sentencePunct = strings.NewReplacer("¿", " ", "¡", " ", "?", " ", "!", " ", ",", " ", ";", " ")

// Normalize applies the full pipeline and returns the normalized text plus the
// corrections that were applied. Idempotent on its own output.
func (n *Normalizer) Normalize(raw string) (string, []Correction) {
	text := stripDiacritics(strings.ToLower(strings.TrimSpace(raw)))
	text = sentencePunct.Replace(text)

	var corrections []Correction

	// Phrase-level typos run before tokenization so multi-word forms survive.
	for _, p := range n.phrases {
		if strings.Contains(text, p[0]) {
			text = strings.ReplaceAll(text, p[0], p[1])
			corrections = append(corrections, Correction{From: p[0], To: p[1], Source: "phrase"})
		}
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		word, punct := splitTrailingPunct(tok)
		if word == "" {
			out = append(out, tok)
			continue
		}
		fixed, c := n.correctToken(word)
		if c != nil {
			corrections = append(corrections, *c)
		}
		out = append(out, fixed+punct)
	}
	return strings.Join(out, " "), corrections
}

func (n *Normalizer) correctToken(tok string) (string, *Correction) {
	if canon, ok := n.typos[tok]; ok && canon != tok {
		// A typo fix may itself be a synonym; run it through once more.
		if syn, ok := n.synonyms[canon]; ok {
			canon = syn
		}
		return canon, &Correction{From: tok, To: canon, Source: "typo"}
	}
	if canon, ok := n.synonyms[tok]; ok && canon != tok {
		return canon, &Correction{From: tok, To: canon, Source: "synonym"}
	}
	n.mu.RLock()
	learned, ok := n.learned[tok]
	n.mu.RUnlock()
	if ok && learned != tok {
		return learned, &Correction{From: tok, To: learned, Source: "learned"}
	}
	if _, known := n.vocab[tok]; known || len([]rune(tok)) < fuzzyMinLen || isNumericToken(tok) {
		return tok, nil
	}
	if best, conf := n.closestVocab(tok); best != "" && conf >= fuzzyMinConfidence {
		n.Learn(tok, best)
		return best, &Correction{From: tok, To: best, Source: "fuzzy"}
	}
	return tok, nil
}

// closestVocab finds the vocabulary word with minimal edit distance, subject to
// the distance budget ceil(0.4*len).
func (n *Normalizer) closestVocab(tok string) (string, float64) {
	tokLen := len([]rune(tok))
	maxDist := (tokLen*4 + 9) / 10 // ceil(0.4 * len)
	best := ""
	bestDist := maxDist + 1
	for w := range n.vocab {
		wLen := len([]rune(w))
		if wLen < tokLen-maxDist || wLen > tokLen+maxDist {
			continue
		}
		d := Levenshtein(tok, w)
		if d < bestDist {
			bestDist = d
			best = w
		}
	}
	if best == "" || bestDist > maxDist {
		return "", 0
	}
	longer := tokLen
	if l := len([]rune(best)); l > longer {
		longer = l
	}
	return best, 1 - float64(bestDist)/float64(longer)
}

// Learn memoizes a correction for future messages.
func (n *Normalizer) Learn(from, to string) {
	n.mu.Lock()
	n.learned[from] = to
	n.mu.Unlock()
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

func stripDiacritics(s string) string {
	// The eñe is a distinct letter in Spanish, not an accent; preserve it
	// through the mark-stripping pass.
	s = strings.ReplaceAll(s, "ñ", "\x00")
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		out = s
	}
	return strings.ReplaceAll(out, "\x00", "ñ")
}

func splitTrailingPunct(tok string) (string, string) {
	end := len(tok)
	for end > 0 {
		r := rune(tok[end-1])
		if r == '?' || r == '!' || r == ',' || r == '.' || r == ';' {
			end--
			continue
		}
		break
	}
	return tok[:end], tok[end:]
}

func isNumericToken(tok string) bool {
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// Levenshtein computes the edit distance between two strings, by rune.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
