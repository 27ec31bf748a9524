// Package transcript unwraps recognizer payloads and assembles dictation text.
package transcript

import "strings"

// Options controls transcript assembly formatting behavior.
type Options struct {
	CapitalizeSentences bool
}

// Assemble joins dictation fragments in arrival order and collapses whitespace.
func Assemble(fragments []string, opts Options) string {
	if len(fragments) == 0 {
		return ""
	}

	joined := strings.Join(fragments, " ")
	normalized := strings.Join(strings.Fields(joined), " ")
	if normalized == "" {
		return ""
	}

	if opts.CapitalizeSentences {
		normalized = capitalizeSentenceStarts(normalized)
	}
	return normalized
}

// Append adds one fragment to an accumulated transcript.
func Append(acc string, fragment string) string {
	return strings.TrimSpace(acc + " " + strings.TrimSpace(fragment))
}
