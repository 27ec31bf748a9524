package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/agrovoz/internal/fsm"
	"github.com/rbright/agrovoz/internal/intent"
	"github.com/rbright/agrovoz/internal/recognizer"
	"github.com/rbright/agrovoz/internal/textnorm"
	"github.com/rbright/agrovoz/internal/transcript"
	"github.com/rbright/agrovoz/internal/wizard"
)

// cycle is the listening session in progress. The zero value means none.
type cycle struct {
	mode      Mode
	purpose   Purpose
	fired     *intent.Cycle
	partial   string
	fragments []string
	capturing bool
	session   uint64
	startedAt time.Time
}

func (c cycle) text() string {
	return transcript.Assemble(c.fragments, transcript.Options{})
}

// exit is what a stopping cycle hands to cleanup and to its consumer.
type exit struct {
	mode       Mode
	purpose    Purpose
	transcript string
	command    intent.Spec
	fired      bool
	discard    bool
	reason     string
	startedAt  time.Time
}

// started reports the outcome of an engine start launched in generation gen.
type started struct {
	gen       uint64
	session   uint64
	capturing bool
	err       error
}

// cleaned reports that a stopping cycle finished cleanup and persistence.
type cleaned struct {
	gen   uint64
	exit  exit
	saved saveOutcome
}

// begin opens a new cycle from idle.
func (c *Controller) begin(ctx context.Context, mode Mode, purpose Purpose) error {
	if err := c.transition(fsm.EventStart); err != nil {
		c.log(slog.LevelWarn, "start ignored", "state", string(c.state), "mode", string(mode))
		return err
	}
	c.gen++
	c.cur = cycle{
		mode:      mode,
		purpose:   purpose,
		fired:     intent.NewCycle(c.matcher),
		startedAt: time.Now(),
	}
	c.launchStart(ctx)
	return nil
}

// launchStart queues the engine start for the current cycle.
func (c *Controller) launchStart(_ context.Context) {
	gen := c.gen
	opts := recognizer.Options{Timeout: c.cfg.DictationTimeout}
	if c.cur.mode == ModeCommands {
		opts = recognizer.Options{Grammar: c.cfg.Grammar, Timeout: c.cfg.CommandTimeout}
	}
	records := c.cur.purpose.records()

	c.enqueue(func(ctx context.Context) {
		id, err := c.engine.Start(ctx, opts)
		capturing := false
		if err == nil && records {
			capturing = c.capture.Begin(ctx)
		}
		c.post(started{gen: gen, session: id, capturing: capturing, err: err})
	})
}

func (c *Controller) onStarted(ctx context.Context, m started) {
	if m.gen != c.gen {
		c.log(slog.LevelDebug, "stale engine start ignored", "gen", m.gen, "current", c.gen)
		return
	}

	if m.err != nil {
		finished := c.cur
		if errors.Is(m.err, recognizer.ErrPermissionDenied) {
			_ = c.transition(fsm.EventDenied)
			c.indicator.Alert(ctx, c.msgs.PermissionTitle, c.msgs.PermissionDenied)
		} else {
			_ = c.transition(fsm.EventFail)
		}
		c.gen++
		c.cur = cycle{}
		if finished.purpose == PurposeWizard {
			c.wizard.Cancel()
		}
		c.logResult(ctx, Result{
			Mode:       finished.mode,
			Purpose:    finished.purpose,
			Err:        fmt.Errorf("start recognizer: %w", m.err),
			StartedAt:  finished.startedAt,
			FinishedAt: time.Now(),
		})
		return
	}

	if err := c.transition(fsm.EventReady); err != nil {
		c.log(slog.LevelWarn, "engine ready in unexpected state", "state", string(c.state))
		return
	}
	c.cur.session = m.session
	c.cur.capturing = m.capturing
	c.metrics.RecordSessionStarted(ctx, string(c.cur.mode), string(c.cur.purpose))
	if c.cur.mode == ModeCommands {
		c.indicator.CueListening(ctx)
	} else {
		c.indicator.CueDictation(ctx)
	}
	c.log(slog.LevelInfo, "listening",
		"mode", string(c.cur.mode),
		"purpose", string(c.cur.purpose),
		"session", m.session,
		"capturing", m.capturing,
	)
}

// onEvent handles one recognizer event. Events from other engine sessions,
// or arriving outside Listening, are dropped.
func (c *Controller) onEvent(ctx context.Context, ev recognizer.Event) {
	if c.state != fsm.StateListening || ev.Session != c.cur.session {
		c.log(slog.LevelDebug, "recognizer event dropped",
			"kind", string(ev.Kind), "session", ev.Session, "state", string(c.state))
		return
	}

	switch ev.Kind {
	case recognizer.KindPartial:
		c.cur.partial = transcript.Extract(ev.Payload)
		if c.cur.mode == ModeCommands {
			c.tryCommand(ctx, c.cur.partial)
		}
	case recognizer.KindFinal:
		text := transcript.Extract(ev.Payload)
		c.cur.partial = ""
		if c.cur.mode == ModeCommands {
			c.tryCommand(ctx, text)
			return
		}
		c.onDictationFinal(ctx, text)
	case recognizer.KindTimeout:
		c.onTimeout(ctx)
	case recognizer.KindError:
		c.log(slog.LevelError, "recognizer error", "session", ev.Session, "error", errText(ev.Err))
		_ = c.beginStop(ctx, true, "engine error")
	}
}

func (c *Controller) tryCommand(ctx context.Context, text string) bool {
	spec, ok := c.cur.fired.Fire(text)
	if !ok {
		return false
	}
	c.metrics.RecordCommand(ctx, spec.Label)
	c.publishIntent(ctx, Intent{Name: spec.Intent, Label: spec.Label})
	_ = c.beginStop(ctx, false, "command")
	return true
}

func (c *Controller) onDictationFinal(ctx context.Context, text string) {
	if text != "" {
		c.cur.fragments = append(c.cur.fragments, text)
	}
	switch {
	case textnorm.ContainsWord(text, c.cfg.Hotword):
		_ = c.beginStop(ctx, false, "hotword")
	case c.cur.purpose == PurposeWizard && text != "":
		// One utterance answers one wizard step.
		_ = c.beginStop(ctx, false, "answer")
	}
}

func (c *Controller) onTimeout(ctx context.Context) {
	if c.cur.mode == ModeDictation {
		_ = c.beginStop(ctx, false, "timeout")
		return
	}
	if c.tryCommand(ctx, c.cur.partial) {
		return
	}

	c.metrics.RecordCommandMiss(ctx)
	if err := c.transition(fsm.EventRetry); err != nil {
		c.log(slog.LevelWarn, "retry rejected", "error", err.Error())
		return
	}
	c.gen++
	c.cur.fired.Reset()
	c.cur.partial = ""
	c.cur.session = 0
	c.cur.startedAt = time.Now()
	// The timed-out session may still be draining; release it before the
	// restart is queued behind it.
	c.enqueue(func(ctx context.Context) {
		if err := c.engine.Stop(ctx); err != nil {
			c.log(slog.LevelWarn, "stop recognizer failed", "error", err.Error())
		}
	})
	c.say(ctx, c.msgs.NotUnderstood, func(ctx context.Context) {
		c.later(c.cfg.RetryDelay, c.launchStart)
	})
}

// beginStop moves the cycle to Stopping and queues its cleanup. The live
// transcript, partial text and fired command are cleared here.
func (c *Controller) beginStop(ctx context.Context, discard bool, reason string) error {
	if err := c.transition(fsm.EventStop); err != nil {
		return err
	}
	c.gen++
	gen := c.gen

	ex := exit{
		mode:       c.cur.mode,
		purpose:    c.cur.purpose,
		transcript: textnorm.RemoveWord(c.cur.text(), c.cfg.Hotword),
		discard:    discard,
		reason:     reason,
		startedAt:  c.cur.startedAt,
	}
	if c.cur.fired != nil {
		ex.command, ex.fired = c.cur.fired.Command()
		c.cur.fired.Reset()
	}
	c.exiting = ex
	c.cur = cycle{}

	if discard {
		c.indicator.CueCancel(ctx)
	} else {
		c.indicator.CueStop(ctx)
	}
	c.log(slog.LevelInfo, "stopping", "reason", reason, "discard", discard)

	c.enqueue(func(ctx context.Context) { c.cleanup(ctx, gen, ex) })
	return nil
}

// abort forces idle while cleanup is still in flight. Its completion becomes
// stale and is ignored.
func (c *Controller) abort(ctx context.Context) {
	if err := c.transition(fsm.EventAbort); err != nil {
		return
	}
	c.gen++
	ex := c.exiting
	c.exiting = exit{}
	c.cur = cycle{}
	if ex.purpose == PurposeWizard {
		c.wizard.Cancel()
	}
	c.logResult(ctx, Result{
		Mode:       ex.mode,
		Purpose:    ex.purpose,
		Aborted:    true,
		StartedAt:  ex.startedAt,
		FinishedAt: time.Now(),
	})
}

func (c *Controller) onCleaned(ctx context.Context, m cleaned) {
	if m.gen != c.gen {
		c.log(slog.LevelDebug, "stale cleanup ignored", "gen", m.gen, "current", c.gen)
		return
	}
	if err := c.transition(fsm.EventCleaned); err != nil {
		c.log(slog.LevelWarn, "cleanup in unexpected state", "state", string(c.state))
		return
	}
	c.exiting = exit{}
	ex := m.exit

	c.logResult(ctx, Result{
		Mode:       ex.mode,
		Purpose:    ex.purpose,
		Transcript: ex.transcript,
		Command:    ex.command.Label,
		Cancelled:  ex.discard,
		Err:        m.saved.err,
		StartedAt:  ex.startedAt,
		FinishedAt: time.Now(),
	})

	if ex.discard {
		if ex.purpose == PurposeWizard {
			c.wizard.Cancel()
		}
		return
	}
	if ex.fired {
		c.runCommand(ctx, ex.command)
		return
	}

	switch ex.purpose {
	case PurposeNote, PurposeReport:
		c.afterSave(ctx, m.saved)
	case PurposeWizard:
		c.answerWizard(ctx, ex.transcript)
	}
}

// runCommand speaks the command's reply and then runs its follow-up.
func (c *Controller) runCommand(ctx context.Context, spec intent.Spec) {
	c.say(ctx, spec.Reply, func(ctx context.Context) {
		c.follow(ctx, spec.Then)
	})
}

func (c *Controller) follow(ctx context.Context, then intent.FollowUp) {
	switch then {
	case intent.FollowCommands:
		c.later(c.cfg.ResumeDelay, c.resumeCommands)
	case intent.FollowDictateNote:
		_ = c.begin(ctx, ModeDictation, PurposeNote)
	case intent.FollowDictateReport:
		_ = c.begin(ctx, ModeDictation, PurposeReport)
	case intent.FollowWizard:
		c.applyWizard(ctx, c.wizard.Begin())
	}
}

// resumeCommands re-enters commands mode if nothing else started meanwhile.
func (c *Controller) resumeCommands(ctx context.Context) {
	if c.state != fsm.StateIdle {
		return
	}
	_ = c.begin(ctx, ModeCommands, PurposeNone)
}

func (c *Controller) afterSave(ctx context.Context, out saveOutcome) {
	if out.skipped {
		return
	}
	message := c.msgs.Saved
	if out.err != nil {
		message = c.msgs.SaveFailed
	} else {
		c.indicator.CueComplete(ctx)
	}
	c.say(ctx, message, func(ctx context.Context) {
		if !c.cfg.ResumeCommands {
			return
		}
		c.later(c.cfg.ResumeDelay, func(ctx context.Context) {
			if c.state != fsm.StateIdle {
				return
			}
			c.say(ctx, c.msgs.Listening, c.resumeCommands)
		})
	})
}

func (c *Controller) answerWizard(ctx context.Context, text string) {
	if !c.wizard.Active() {
		return
	}
	step := c.wizard.State().Step
	reply := c.wizard.Answer(text)
	c.metrics.RecordWizardAnswer(ctx, string(step), wizardOutcome(step, c.wizard.State().Step, reply))
	c.applyWizard(ctx, reply)
}

// applyWizard speaks a wizard reply and acts on its flags.
func (c *Controller) applyWizard(ctx context.Context, reply wizard.Reply) {
	prompt := reply.Prompt
	switch {
	case reply.Done:
		st := c.wizard.State()
		c.publishIntent(ctx, Intent{
			Name:  intent.IntentDayStarted,
			Label: "iniciar dia",
			Values: map[string]string{
				"objective": st.Objective,
				"property":  st.Property,
				"field":     st.Field,
			},
		})
		c.saveWorkday(ctx, st)
		c.indicator.CueComplete(ctx)
	case reply.Aborted:
		c.publishIntent(ctx, Intent{Name: intent.IntentManualEntry, Label: "iniciar dia"})
		prompt = c.msgs.ManualEntry
	case reply.Blocked:
		c.indicator.Alert(ctx, c.msgs.DayTitle, c.msgs.Wizard.Incomplete)
	}

	var next func(context.Context)
	if reply.Listen {
		next = func(ctx context.Context) {
			_ = c.begin(ctx, ModeDictation, PurposeWizard)
		}
	}
	c.say(ctx, prompt, next)
}

func wizardOutcome(before wizard.Step, after wizard.Step, reply wizard.Reply) string {
	switch {
	case reply.Done:
		return "confirmed"
	case reply.Cancelled:
		return "cancelled"
	case reply.Aborted:
		return "aborted"
	case reply.Blocked:
		return "blocked"
	case before != after:
		return "accepted"
	default:
		return "retry"
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
