// Package intent maps normalized utterances to commands and allowed values.
package intent

import (
	"regexp"

	"github.com/rbright/agrovoz/internal/textnorm"
)

// Intent names published to the UI collaborator.
const (
	IntentOpenMap      = "open_map"
	IntentShowProfile  = "show_profile"
	IntentShowBalance  = "show_balance"
	IntentGoBack       = "go_back"
	IntentRecordNote   = "record_note"
	IntentRecordReport = "record_report"
	IntentStartDay     = "start_day"
	IntentDayStarted   = "day_started"
	IntentManualEntry  = "manual_entry"
)

// FollowUp is what the controller does after a command's reply is spoken.
type FollowUp string

const (
	FollowNone          FollowUp = ""
	FollowCommands      FollowUp = "commands"
	FollowDictateNote   FollowUp = "dictate_note"
	FollowDictateReport FollowUp = "dictate_report"
	FollowWizard        FollowUp = "wizard"
)

// Spec is one voice command. Rule is matched against normalized text.
type Spec struct {
	Label  string
	Intent string
	Rule   *regexp.Regexp
	Reply  string
	Then   FollowUp
}

// Continues reports whether the command leads into another listening phase.
func (s Spec) Continues() bool {
	return s.Then != FollowNone
}

// DefaultCommands returns the built-in command table in priority order.
func DefaultCommands() []Spec {
	return []Spec{
		{
			Label:  "abrir mapa",
			Intent: IntentOpenMap,
			Rule:   regexp.MustCompile(`(^|\s)abrir\s+(o\s+)?mapa(\s|$)`),
			Reply:  "Abrindo mapa agora",
			Then:   FollowCommands,
		},
		{
			Label:  "mostrar perfil",
			Intent: IntentShowProfile,
			Rule:   regexp.MustCompile(`(^|\s)(mostrar\s+(o\s+)?)?perfil(\s|$)`),
			Reply:  "Mostrando perfil",
		},
		{
			Label:  "saldo",
			Intent: IntentShowBalance,
			Rule:   regexp.MustCompile(`(^|\s)(meu\s+)?saldo(\s|$)`),
			Reply:  "Mostrando saldo",
		},
		{
			Label:  "voltar",
			Intent: IntentGoBack,
			Rule:   regexp.MustCompile(`(^|\s)(voltar|retornar)(\s|$)`),
			Reply:  "Voltando",
		},
		{
			Label:  "gravar voz",
			Intent: IntentRecordNote,
			Rule:   regexp.MustCompile(`(^|\s)gravar\s+voz(\s|$)`),
			Reply:  "Pode falar alguma coisa",
			Then:   FollowDictateNote,
		},
		{
			Label:  "gravar praga",
			Intent: IntentRecordReport,
			Rule:   regexp.MustCompile(`(^|\s)gravar\s+praga(\s|$)`),
			Reply:  "Iniciando a gravação",
			Then:   FollowDictateReport,
		},
		{
			Label:  "iniciar dia",
			Intent: IntentStartDay,
			Rule:   regexp.MustCompile(`(^|\s)(iniciar|comecar)\s+(o\s+)?dia(\s|$)`),
			Then:   FollowWizard,
		},
	}
}

// DefaultGrammar is the commands-mode vocabulary handed to the recognizer.
// The trailing "[unk]" lets the engine report out-of-grammar speech.
func DefaultGrammar() []string {
	return []string{
		"abrir", "mapa", "mostrar", "perfil", "saldo", "meu",
		"voltar", "retornar", "gravar", "voz", "o", "praga",
		"iniciar", "começar", "dia", "[unk]",
	}
}

// Matcher finds the first command whose rule matches an utterance.
type Matcher struct {
	specs []Spec
}

// NewMatcher builds a matcher over specs; nil specs selects DefaultCommands.
func NewMatcher(specs []Spec) *Matcher {
	if specs == nil {
		specs = DefaultCommands()
	}
	return &Matcher{specs: specs}
}

// Match returns the first spec matching normalized text. Table order is the
// tie-break when several rules match.
func (m *Matcher) Match(normalized string) (Spec, bool) {
	if normalized == "" {
		return Spec{}, false
	}
	for _, spec := range m.specs {
		if spec.Rule != nil && spec.Rule.MatchString(normalized) {
			return spec, true
		}
	}
	return Spec{}, false
}

// Specs returns a copy of the command table.
func (m *Matcher) Specs() []Spec {
	out := make([]Spec, len(m.specs))
	copy(out, m.specs)
	return out
}

// Cycle guards a single listening cycle so at most one command fires.
// It is not safe for concurrent use; the session loop owns it.
type Cycle struct {
	matcher *Matcher
	fired   bool
	spec    Spec
}

// NewCycle starts an unfired cycle.
func NewCycle(m *Matcher) *Cycle {
	return &Cycle{matcher: m}
}

// Fire normalizes raw text and returns the matched command, marking the cycle
// fired. Once fired, Fire returns no match until Reset.
func (c *Cycle) Fire(raw string) (Spec, bool) {
	if c.fired {
		return Spec{}, false
	}
	spec, ok := c.matcher.Match(textnorm.Normalize(raw))
	if !ok {
		return Spec{}, false
	}
	c.fired = true
	c.spec = spec
	return spec, true
}

// Fired reports whether a command already fired in this cycle.
func (c *Cycle) Fired() bool { return c.fired }

// Command returns the command that fired, if any.
func (c *Cycle) Command() (Spec, bool) { return c.spec, c.fired }

// Reset clears the fired flag for a new cycle.
func (c *Cycle) Reset() {
	c.fired = false
	c.spec = Spec{}
}
