// Package session owns the recognizer, the capture bridge, spoken prompts and
// the start-of-day wizard, and drives them through one listening cycle at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/agrovoz/internal/artifact"
	"github.com/rbright/agrovoz/internal/capture"
	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/fsm"
	"github.com/rbright/agrovoz/internal/intent"
	"github.com/rbright/agrovoz/internal/ipc"
	"github.com/rbright/agrovoz/internal/location"
	"github.com/rbright/agrovoz/internal/observe"
	"github.com/rbright/agrovoz/internal/recognizer"
	"github.com/rbright/agrovoz/internal/speech"
	"github.com/rbright/agrovoz/internal/store"
	"github.com/rbright/agrovoz/internal/wizard"
)

// Mode selects how a listening cycle interprets speech.
type Mode string

const (
	ModeCommands  Mode = "commands"
	ModeDictation Mode = "dictation"
)

// Purpose routes a dictation transcript once its cycle stops.
type Purpose string

const (
	PurposeNone   Purpose = ""
	PurposeNote   Purpose = "note"
	PurposeReport Purpose = "report"
	PurposeWizard Purpose = "wizard"
)

// records reports whether cycles of this purpose capture audio and persist a record.
func (p Purpose) records() bool {
	return p == PurposeNote || p == PurposeReport
}

const handleTimeout = 2 * time.Second

// Result summarizes one finished listening cycle. It is logged, not returned.
type Result struct {
	Mode       Mode
	Purpose    Purpose
	Transcript string
	Command    string
	Cancelled  bool
	Aborted    bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status is the snapshot served to status requests.
type Status struct {
	State      fsm.State
	Mode       Mode
	Purpose    Purpose
	Partial    string
	Transcript string
	WizardStep wizard.Step
	LastIntent string
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	CueListening(context.Context)
	CueDictation(context.Context)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Alert(ctx context.Context, title string, text string)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) CueListening(context.Context)          {}
func (noopIndicator) CueDictation(context.Context)          {}
func (noopIndicator) CueStop(context.Context)               {}
func (noopIndicator) CueComplete(context.Context)           {}
func (noopIndicator) CueCancel(context.Context)             {}
func (noopIndicator) Alert(context.Context, string, string) {}

// Speaker plays one prompt at a time. onDone must only run for prompts that
// completed; *speech.Coordinator satisfies it.
type Speaker interface {
	Speak(ctx context.Context, message string, onDone func())
	Stop()
}

// Config holds the controller's tunables.
type Config struct {
	Hotword          string
	Separator        string
	Grammar          []string
	CommandTimeout   time.Duration
	DictationTimeout time.Duration
	// ResumeCommands re-enters commands mode after a record was saved.
	ResumeCommands bool
	ResumeDelay    time.Duration
	// RetryDelay separates the "not understood" prompt from the next attempt.
	RetryDelay time.Duration
	Artifacts  artifact.Options
}

// Deps are the collaborators the controller owns for its lifetime. Only
// Engine is required.
type Deps struct {
	Logger    *slog.Logger
	Engine    recognizer.Engine
	Capture   *capture.Bridge
	Speaker   Speaker
	Wizard    *wizard.Engine
	Matcher   *intent.Matcher
	Store     store.Store
	Location  location.Service
	Indicator Indicator
	Metrics   *observe.Metrics
	Sink      IntentSink
	Messages  speech.Messages
}

// Controller runs the listening session state machine. Every field below the
// channels is owned by the Run goroutine.
type Controller struct {
	logger    *slog.Logger
	engine    recognizer.Engine
	capture   *capture.Bridge
	speaker   Speaker
	wizard    *wizard.Engine
	matcher   *intent.Matcher
	store     store.Store
	locator   location.Service
	indicator Indicator
	metrics   *observe.Metrics
	sink      IntentSink
	msgs      speech.Messages
	cfg       Config

	inbox chan any
	ops   chan func(context.Context)
	done  chan struct{}
	bg    sync.WaitGroup

	mu     sync.RWMutex
	status Status

	state      fsm.State
	gen        uint64
	cur        cycle
	exiting    exit
	lastIntent string
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(deps Deps, cfg Config) *Controller {
	if deps.Engine == nil {
		deps.Engine = unavailableEngine{}
	}
	if deps.Speaker == nil {
		deps.Speaker = speech.NewCoordinator(nil, deps.Logger)
	}
	if deps.Matcher == nil {
		deps.Matcher = intent.NewMatcher(nil)
	}
	if deps.Store == nil {
		deps.Store = store.NewMemStore()
	}
	if deps.Location == nil {
		deps.Location = location.Disabled{}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Sink == nil {
		deps.Sink = logSink(deps.Logger)
	}
	if deps.Messages == (speech.Messages{}) {
		deps.Messages = speech.MessagesFor(speech.LocalePortuguese)
	}
	if deps.Wizard == nil {
		deps.Wizard = wizard.New(catalog.Default(), wizard.Options{Prompts: deps.Messages.Wizard})
	}
	if cfg.Hotword == "" {
		cfg.Hotword = "finalizar"
	}
	if cfg.Separator == "" {
		cfg.Separator = "ponto"
	}
	if cfg.Grammar == nil {
		cfg.Grammar = intent.DefaultGrammar()
	}

	c := &Controller{
		logger:    deps.Logger,
		engine:    deps.Engine,
		capture:   deps.Capture,
		speaker:   deps.Speaker,
		wizard:    deps.Wizard,
		matcher:   deps.Matcher,
		store:     deps.Store,
		locator:   deps.Location,
		indicator: deps.Indicator,
		metrics:   deps.Metrics,
		sink:      deps.Sink,
		msgs:      deps.Messages,
		cfg:       cfg,
		inbox:     make(chan any, 64),
		ops:       make(chan func(context.Context), 32),
		done:      make(chan struct{}),
		state:     fsm.StateIdle,
	}
	c.status = Status{State: fsm.StateIdle, WizardStep: wizard.StepIdle}
	return c
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	return c.Status().State
}

// Status returns the last published snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// transition applies one FSM event to the loop-owned state.
func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// publish copies loop-owned state into the snapshot.
func (c *Controller) publish() {
	snap := Status{
		State:      c.state,
		Mode:       c.cur.mode,
		Purpose:    c.cur.purpose,
		Partial:    c.cur.partial,
		Transcript: c.cur.text(),
		WizardStep: c.wizard.State().Step,
		LastIntent: c.lastIntent,
	}
	c.mu.Lock()
	c.status = snap
	c.mu.Unlock()
}

// Run is the dispatch loop. It returns nil once ctx is cancelled, after the
// recognizer and capture have been shut down.
func (c *Controller) Run(ctx context.Context) error {
	var worker sync.WaitGroup
	worker.Add(1)
	go func() {
		defer worker.Done()
		c.work(ctx)
	}()

	events := c.engine.Events()
	for {
		select {
		case <-ctx.Done():
			close(c.done)
			worker.Wait()
			c.shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.onEvent(ctx, ev)
		case msg := <-c.inbox:
			c.dispatch(ctx, msg)
		}
		c.publish()
	}
}

func (c *Controller) shutdown() {
	c.speaker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	purpose := c.cur.purpose
	if c.state == fsm.StateStopping {
		purpose = c.exiting.purpose
	}
	if c.state != fsm.StateIdle {
		if err := c.engine.Stop(ctx); err != nil {
			c.log(slog.LevelWarn, "stop recognizer on shutdown", "error", err.Error())
		}
		if purpose.records() {
			if rec, ok := c.capture.End(ctx); ok {
				_ = artifact.Discard(rec.URI)
			}
		}
	}
	c.bg.Wait()
}

// Handle serves IPC commands. Everything except status is executed by the
// Run loop.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.respond(true, "status", "")
	case ipc.CommandRecords:
		return c.listRecords(ctx)
	case ipc.CommandDelete:
		return c.deleteRecord(ctx, req.ID)
	}

	reply := make(chan ipc.Response, 1)
	waitCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	select {
	case c.inbox <- request{req: req, reply: reply}:
	case <-c.done:
		return c.respond(false, "", "controller stopped")
	case <-waitCtx.Done():
		return c.respond(false, "", fmt.Sprintf("%s: %v", req.Command, waitCtx.Err()))
	}

	select {
	case resp := <-reply:
		return resp
	case <-c.done:
		return c.respond(false, "", "controller stopped")
	case <-waitCtx.Done():
		return c.respond(false, "", fmt.Sprintf("%s: %v", req.Command, waitCtx.Err()))
	}
}

// respond builds a response from the latest snapshot.
func (c *Controller) respond(ok bool, message string, errText string) ipc.Response {
	st := c.Status()
	return ipc.Response{
		OK:         ok,
		State:      string(st.State),
		Mode:       string(st.Mode),
		Purpose:    string(st.Purpose),
		Partial:    st.Partial,
		Transcript: st.Transcript,
		WizardStep: string(st.WizardStep),
		LastIntent: st.LastIntent,
		Message:    message,
		Error:      errText,
	}
}

type request struct {
	req   ipc.Request
	reply chan ipc.Response
}

// completion is deferred loop work tagged with the generation it was launched in.
type completion struct {
	gen uint64
	run func(context.Context)
}

func (c *Controller) dispatch(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case request:
		ok, message, errText := c.onRequest(ctx, m.req)
		c.publish()
		m.reply <- c.respond(ok, message, errText)
	case started:
		c.onStarted(ctx, m)
	case cleaned:
		c.onCleaned(ctx, m)
	case completion:
		if m.gen != c.gen {
			c.log(slog.LevelDebug, "stale completion ignored", "gen", m.gen, "current", c.gen)
			return
		}
		m.run(ctx)
	}
}

func (c *Controller) onRequest(ctx context.Context, req ipc.Request) (bool, string, string) {
	switch req.Command {
	case ipc.CommandListen:
		return c.requestStart(ctx, ModeCommands, PurposeNone)
	case ipc.CommandDictate:
		return c.requestStart(ctx, ModeDictation, PurposeNote)
	case ipc.CommandReport:
		return c.requestStart(ctx, ModeDictation, PurposeReport)
	case ipc.CommandDay:
		return c.requestDay(ctx)
	case ipc.CommandCancelDay:
		return c.requestCancelDay(ctx)
	case ipc.CommandStop:
		return c.requestStop(ctx, false)
	case ipc.CommandCancel:
		return c.requestStop(ctx, true)
	default:
		return false, "", fmt.Sprintf("unknown command: %s", req.Command)
	}
}

// requestStart is ignored unless idle.
func (c *Controller) requestStart(ctx context.Context, mode Mode, purpose Purpose) (bool, string, string) {
	if c.state != fsm.StateIdle {
		return false, "", fmt.Sprintf("cannot start from state %s", c.state)
	}
	c.speaker.Stop()
	if err := c.begin(ctx, mode, purpose); err != nil {
		return false, "", err.Error()
	}
	return true, "start requested", ""
}

func (c *Controller) requestDay(ctx context.Context) (bool, string, string) {
	if c.state != fsm.StateIdle {
		return false, "", fmt.Sprintf("cannot start the day from state %s", c.state)
	}
	c.speaker.Stop()
	c.gen++
	c.publishIntent(ctx, Intent{Name: intent.IntentStartDay, Label: "iniciar dia"})
	c.applyWizard(ctx, c.wizard.Begin())
	return true, "day started", ""
}

func (c *Controller) requestCancelDay(ctx context.Context) (bool, string, string) {
	if !c.wizard.Active() {
		return false, "", "no start of day in progress"
	}
	c.speaker.Stop()
	if c.cur.purpose == PurposeWizard && fsm.Active(c.state) {
		_ = c.beginStop(ctx, true, "cancel-day")
	} else {
		c.gen++
	}
	reply := c.wizard.Cancel()
	c.say(ctx, reply.Prompt, nil)
	return true, "start of day cancelled", ""
}

// requestStop ends the cycle gracefully, or discards it when cancel is set.
// A second stop while cleanup is in flight aborts straight to idle.
func (c *Controller) requestStop(ctx context.Context, cancel bool) (bool, string, string) {
	verb := "stop"
	if cancel {
		verb = "cancel"
	}

	switch {
	case fsm.Active(c.state):
		if cancel {
			c.speaker.Stop()
		}
		if err := c.beginStop(ctx, cancel, verb); err != nil {
			return false, "", err.Error()
		}
		return true, verb + " requested", ""
	case c.state == fsm.StateStopping:
		if cancel {
			c.speaker.Stop()
		}
		c.abort(ctx)
		return true, "aborted", ""
	case cancel:
		// Idle: silence any prompt and drop pending follow-ups.
		c.speaker.Stop()
		c.gen++
		return true, "nothing listening; pending prompts cancelled", ""
	default:
		return false, "", fmt.Sprintf("cannot %s from state %s", verb, c.state)
	}
}

// post delivers msg to the loop unless it already exited.
func (c *Controller) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.done:
	}
}

// later posts fn after d, tagged with the current generation.
func (c *Controller) later(d time.Duration, fn func(context.Context)) {
	msg := completion{gen: c.gen, run: fn}
	if d <= 0 {
		c.post(msg)
		return
	}
	time.AfterFunc(d, func() { c.post(msg) })
}

// say speaks message and, once it completed, runs next on the loop.
func (c *Controller) say(ctx context.Context, message string, next func(context.Context)) {
	gen := c.gen
	if message == "" {
		if next != nil {
			go c.post(completion{gen: gen, run: next})
		}
		return
	}
	c.speaker.Speak(ctx, message, func() {
		if next != nil {
			c.post(completion{gen: gen, run: next})
		}
	})
}

func (c *Controller) log(level slog.Level, msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(context.Background(), level, msg, args...)
}

// logResult records one finished cycle.
func (c *Controller) logResult(ctx context.Context, r Result) {
	c.metrics.RecordSessionDuration(ctx, string(r.Mode), r.FinishedAt.Sub(r.StartedAt))
	if c.logger == nil {
		return
	}
	attrs := []any{
		"mode", string(r.Mode),
		"purpose", string(r.Purpose),
		"transcript_chars", len(r.Transcript),
		"command", r.Command,
		"cancelled", r.Cancelled,
		"aborted", r.Aborted,
		"duration_ms", r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
	if r.Err != nil {
		attrs = append(attrs, "error", r.Err.Error())
		c.logger.Error("session failed", attrs...)
		return
	}
	c.logger.Info("session finished", attrs...)
}

// IsEngineUnavailable reports whether an error represents missing recognizer wiring.
func IsEngineUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}
