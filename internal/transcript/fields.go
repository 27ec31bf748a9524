package transcript

import (
	"strings"

	"github.com/rbright/agrovoz/internal/textnorm"
)

// SplitFields splits a spoken transcript on a separator word ("ponto") and
// returns the trimmed, non-empty parts in order. Matching ignores case and
// accents; the parts keep their original spelling.
func SplitFields(text string, separator string) []string {
	separator = textnorm.Normalize(separator)
	words := strings.Fields(text)
	if separator == "" {
		joined := strings.Join(words, " ")
		if joined == "" {
			return nil
		}
		return []string{joined}
	}

	var (
		fields  []string
		current []string
	)
	flush := func() {
		part := strings.Trim(strings.Join(current, " "), " .,;:")
		if part != "" {
			fields = append(fields, part)
		}
		current = current[:0]
	}

	for _, word := range words {
		if textnorm.Normalize(word) == separator {
			flush()
			continue
		}
		current = append(current, word)
	}
	flush()
	return fields
}

// FieldOr returns fields[i] when present, else fallback.
func FieldOr(fields []string, i int, fallback string) string {
	if i < 0 || i >= len(fields) {
		return fallback
	}
	return fields[i]
}
