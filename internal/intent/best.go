package intent

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/rbright/agrovoz/internal/textnorm"
)

// FindBestMatch resolves a free-form answer to one allowed option: an exact
// normalized match wins, then the first option that contains the answer or is
// contained by it. Empty answers never match.
func FindBestMatch(input string, options []string) (string, bool) {
	return BestMatcher{}.Find(input, options)
}

// BestMatcher is FindBestMatch with an optional fuzzy fallback. A zero
// FuzzyThreshold disables the fuzzy stage.
type BestMatcher struct {
	FuzzyThreshold float64
}

// Find applies exact, substring, then (when enabled) Jaro-Winkler matching.
func (b BestMatcher) Find(input string, options []string) (string, bool) {
	needle := textnorm.Normalize(input)
	if needle == "" {
		return "", false
	}

	normalized := make([]string, len(options))
	for i, option := range options {
		normalized[i] = textnorm.Normalize(option)
		if normalized[i] == needle {
			return option, true
		}
	}

	for i, option := range options {
		candidate := normalized[i]
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return option, true
		}
	}

	if b.FuzzyThreshold <= 0 {
		return "", false
	}

	best, bestScore := -1, 0.0
	for i, candidate := range normalized {
		if candidate == "" {
			continue
		}
		score := matchr.JaroWinkler(needle, candidate, false)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < b.FuzzyThreshold {
		return "", false
	}
	return options[best], true
}

var affirmativeWords = []string{"sim", "confirmar", "pode", "iniciar"}

// Affirmative reports whether an answer contains a confirmation keyword.
func Affirmative(text string) bool {
	for _, word := range affirmativeWords {
		if textnorm.ContainsWord(text, word) {
			return true
		}
	}
	return false
}
