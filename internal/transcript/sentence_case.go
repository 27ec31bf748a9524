package transcript

import (
	"strings"
	"unicode"
)

// capitalizeSentenceStarts uppercases the first letter of the text and of each
// word following '.', '!' or '?'.
func capitalizeSentenceStarts(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	capitalizeNext := true
	for _, r := range text {
		if capitalizeNext && unicode.IsLetter(r) {
			r = unicode.ToUpper(r)
			capitalizeNext = false
		} else if unicode.IsDigit(r) {
			capitalizeNext = false
		}

		out.WriteRune(r)

		switch r {
		case '.', '!', '?':
			capitalizeNext = true
		}
	}

	return out.String()
}
