// Package wizard runs the spoken start-of-day form: objective, property,
// field, then confirmation.
package wizard

import (
	"fmt"

	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/intent"
	"github.com/rbright/agrovoz/internal/speech"
	"github.com/rbright/agrovoz/internal/textnorm"
)

// Step is one position in the dialogue.
type Step string

const (
	StepIdle       Step = "idle"
	StepObjectives Step = "objectives"
	StepProperty   Step = "property"
	StepField      Step = "field"
	StepConfirm    Step = "confirm"
	StepDayStarted Step = "day_started"
)

const cancelWord = "cancelar"

// State is the wizard's owned data. Fields are empty until accepted.
type State struct {
	Step      Step
	Objective string
	Property  string
	Field     string
	Retries   int
}

// Complete reports whether all three answers are populated.
func (s State) Complete() bool {
	return s.Objective != "" && s.Property != "" && s.Field != ""
}

// Reply tells the caller what to say and whether to listen for an answer.
type Reply struct {
	Prompt string
	// Listen asks for a dictation answer once Prompt finished speaking.
	Listen bool
	// Done is set once the day started.
	Done bool
	// Blocked means confirmation was refused because a field is missing.
	Blocked bool
	// Aborted means the retry budget ran out; the wizard is back to idle.
	Aborted bool
	// Cancelled means the user cancelled; the wizard is back to idle.
	Cancelled bool
}

// Options tunes answer matching and the retry policy.
type Options struct {
	// MaxRetries bounds consecutive unmatched answers per step. Zero keeps
	// re-prompting forever.
	MaxRetries int
	Matcher    intent.BestMatcher
	// Examples caps how many options are read out in a prompt.
	Examples int
	// Prompts defaults to the Portuguese catalog.
	Prompts speech.WizardPrompts
}

// Engine is not safe for concurrent use; the session loop owns it.
type Engine struct {
	catalog catalog.Catalog
	opts    Options
	state   State
}

// New builds an idle engine.
func New(c catalog.Catalog, opts Options) *Engine {
	if opts.Examples <= 0 {
		opts.Examples = 3
	}
	if opts.Prompts == (speech.WizardPrompts{}) {
		opts.Prompts = speech.MessagesFor(speech.LocalePortuguese).Wizard
	}
	return &Engine{catalog: c, opts: opts, state: State{Step: StepIdle}}
}

// State returns a snapshot of the current wizard state.
func (e *Engine) State() State {
	return e.state
}

// Active reports whether the wizard waits for an answer.
func (e *Engine) Active() bool {
	switch e.state.Step {
	case StepObjectives, StepProperty, StepField, StepConfirm:
		return true
	default:
		return false
	}
}

// Begin clears any previous answers and asks for the objective.
func (e *Engine) Begin() Reply {
	e.state = State{Step: StepObjectives}
	return Reply{Prompt: e.askObjective(), Listen: true}
}

// Cancel resets the wizard to idle and clears every field.
func (e *Engine) Cancel() Reply {
	e.state = State{Step: StepIdle}
	return Reply{Prompt: e.opts.Prompts.Cancelled, Cancelled: true}
}

// Answer feeds one finalized transcript to the current step.
func (e *Engine) Answer(text string) Reply {
	if !e.Active() {
		return Reply{}
	}
	if textnorm.ContainsWord(text, cancelWord) {
		return e.Cancel()
	}

	p := e.opts.Prompts
	switch e.state.Step {
	case StepObjectives:
		if value, ok := e.opts.Matcher.Find(text, e.catalog.Objectives); ok {
			e.state.Objective = value
			return e.advance(StepProperty, fmt.Sprintf(p.ObjectiveAccepted, value)+" "+e.askProperty())
		}
		return e.retry(fmt.Sprintf(p.UnknownObjective, e.examples(e.catalog.Objectives)))
	case StepProperty:
		if value, ok := e.opts.Matcher.Find(text, e.catalog.Properties); ok {
			e.state.Property = value
			return e.advance(StepField, fmt.Sprintf(p.PropertyAccepted, value)+" "+e.askField())
		}
		return e.retry(fmt.Sprintf(p.UnknownProperty, e.examples(e.catalog.Properties)))
	case StepField:
		if value, ok := e.opts.Matcher.Find(text, e.catalog.Fields); ok {
			e.state.Field = value
			return e.advance(StepConfirm, fmt.Sprintf(p.FieldAccepted, value)+" "+e.askConfirm())
		}
		return e.retry(fmt.Sprintf(p.UnknownField, e.examples(e.catalog.Fields)))
	case StepConfirm:
		if !intent.Affirmative(text) {
			return e.retry(p.ConfirmRetry)
		}
		if !e.state.Complete() {
			return Reply{Prompt: p.Incomplete, Blocked: true}
		}
		e.state.Step = StepDayStarted
		e.state.Retries = 0
		return Reply{Prompt: p.Started, Done: true}
	}
	return Reply{}
}

func (e *Engine) advance(next Step, prompt string) Reply {
	e.state.Step = next
	e.state.Retries = 0
	return Reply{Prompt: prompt, Listen: true}
}

func (e *Engine) retry(prompt string) Reply {
	e.state.Retries++
	if e.opts.MaxRetries > 0 && e.state.Retries > e.opts.MaxRetries {
		e.state = State{Step: StepIdle}
		return Reply{Prompt: e.opts.Prompts.GiveUp, Aborted: true}
	}
	return Reply{Prompt: prompt, Listen: true}
}

func (e *Engine) examples(options []string) string {
	return catalog.Examples(options, e.opts.Examples)
}

func (e *Engine) askObjective() string {
	return fmt.Sprintf(e.opts.Prompts.AskObjective, e.examples(e.catalog.Objectives))
}

func (e *Engine) askProperty() string {
	return fmt.Sprintf(e.opts.Prompts.AskProperty, e.examples(e.catalog.Properties))
}

func (e *Engine) askField() string {
	return fmt.Sprintf(e.opts.Prompts.AskField, e.examples(e.catalog.Fields))
}

func (e *Engine) askConfirm() string {
	s := e.state
	return fmt.Sprintf(e.opts.Prompts.Confirm, s.Objective, s.Property, s.Field)
}
