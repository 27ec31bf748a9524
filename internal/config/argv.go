package config

import (
	"fmt"
	"strings"
	"unicode"
)

// argvScanner splits a command line with POSIX shell quoting rules, minus
// expansion: single quotes are literal, and inside double quotes a backslash
// only escapes one of dquoteEscapable.
type argvScanner struct {
	argv    []string
	current strings.Builder

	// open is true once the current word has started, so "" yields an empty arg.
	open bool
}

const dquoteEscapable = "\"\\$`"

func (s *argvScanner) emit() {
	if !s.open {
		return
	}
	s.argv = append(s.argv, s.current.String())
	s.current.Reset()
	s.open = false
}

func (s *argvScanner) write(r rune) {
	s.current.WriteRune(r)
	s.open = true
}

func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		s      argvScanner
		quote  rune
		escape bool
	)
	for _, r := range input {
		switch {
		case escape:
			if quote == '"' && !strings.ContainsRune(dquoteEscapable, r) {
				s.write('\\')
			}
			s.write(r)
			escape = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
				continue
			}
			s.write(r)
		case r == '\\':
			escape = true
			s.open = true
		case quote == '"':
			if r == '"' {
				quote = 0
				continue
			}
			s.write(r)
		case r == '\'' || r == '"':
			quote = r
			s.open = true
		case unicode.IsSpace(r):
			s.emit()
		default:
			s.write(r)
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}

	s.emit()
	return s.argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
