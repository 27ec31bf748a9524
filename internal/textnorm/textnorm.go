// Package textnorm canonicalizes recognizer text for command and option matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, strips diacritics and punctuation, and collapses
// whitespace. It is total and idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	decomposed := foldMarks(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsWord reports whether word appears as a whole token in text after
// both are normalized.
func ContainsWord(text string, word string) bool {
	word = Normalize(word)
	if word == "" {
		return false
	}
	for _, token := range strings.Fields(Normalize(text)) {
		if token == word {
			return true
		}
	}
	return false
}

// RemoveWord drops every token of text whose normalized form equals word.
// The remaining tokens keep their original spelling.
func RemoveWord(text string, word string) string {
	word = Normalize(word)
	tokens := strings.Fields(text)
	if word == "" {
		return strings.Join(tokens, " ")
	}
	kept := tokens[:0]
	for _, token := range tokens {
		if Normalize(token) != word {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}

// foldMarks applies NFD and removes nonspacing marks.
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
