// Package speech speaks prompts through an external TTS command and
// serializes them so only one prompt is ever audible.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/text/language"
)

// Synthesizer speaks text and returns once playback finished. It must stop
// promptly when ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// LangToken in a TTS argv is replaced by the voice for the speech language.
const LangToken = "{lang}"

// DefaultArgv is used when speech.cmd is not configured.
var DefaultArgv = []string{"espeak-ng", "-v", LangToken, "--stdin"}

// CommandSynthesizer runs Argv with the message on stdin.
type CommandSynthesizer struct {
	Argv []string
	// Language is a BCP 47 tag such as "pt-BR".
	Language string
}

// Speak runs the configured TTS command to completion.
func (s CommandSynthesizer) Speak(ctx context.Context, text string) error {
	argv := s.Argv
	if len(argv) == 0 {
		argv = DefaultArgv
	}
	return runCommandWithInput(ctx, expandArgv(argv, s.Language), text)
}

func expandArgv(argv []string, lang string) []string {
	voice := Voice(lang)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, LangToken, voice)
	}
	return out
}

// Voice maps a language tag to an espeak voice name, "pt-BR" to "pt-br".
// Empty or malformed tags give "pt-br".
func Voice(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil || tag == language.Und {
		return "pt-br"
	}
	return strings.ToLower(tag.String())
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("wait for %s: %w (%s)", argv[0], err, msg)
		}
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
