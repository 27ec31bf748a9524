// Package indicator plays audible session cues and raises blocking alerts as
// desktop notifications.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/agrovoz/internal/config"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	CueListening(context.Context)
	CueDictation(context.Context)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Alert(ctx context.Context, title string, text string)
	Dismiss(context.Context)
}

// Notifier is the runtime indicator: pulse/pw-play cues plus freedesktop
// notifications over busctl.
type Notifier struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	emit   func(cueKind, config.IndicatorConfig) error

	mu      sync.Mutex
	alertID uint32
	soundMu sync.Mutex

	// lastAlert closes when the most recently queued alert finished.
	lastAlert chan struct{}
}

// NewNotifier creates an indicator controller from config.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger, emit: emitCue}
}

// CueListening signals that commands mode is listening.
func (n *Notifier) CueListening(context.Context) { n.playCue(cueStart) }

// CueDictation signals that free dictation started.
func (n *Notifier) CueDictation(context.Context) { n.playCue(cueDictation) }

// CueStop signals the end of a listening cycle.
func (n *Notifier) CueStop(context.Context) { n.playCue(cueStop) }

// CueComplete signals a saved record or a started day.
func (n *Notifier) CueComplete(context.Context) { n.playCue(cueComplete) }

// CueCancel signals a discarded session.
func (n *Notifier) CueCancel(context.Context) { n.playCue(cueCancel) }

// Alert queues a notification that replaces the previous alert and returns
// without waiting for busctl. Alerts are shown in call order.
func (n *Notifier) Alert(ctx context.Context, title string, text string) {
	if !n.cfg.Enable {
		return
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 4000
	}

	n.mu.Lock()
	prev := n.lastAlert
	done := make(chan struct{})
	n.lastAlert = done
	n.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		n.showAlert(ctx, title, text, timeout)
	}()
}

func (n *Notifier) showAlert(ctx context.Context, title string, text string, timeout int) {
	n.run(ctx, func(ctx context.Context) error {
		n.mu.Lock()
		replaceID := n.alertID
		n.mu.Unlock()

		appName := strings.TrimSpace(n.cfg.DesktopAppName)
		if appName == "" {
			appName = "agrovoz"
		}

		id, err := desktopNotify(ctx, appName, replaceID, title, text, timeout)
		if err != nil {
			return err
		}

		n.mu.Lock()
		n.alertID = id
		n.mu.Unlock()
		return nil
	})
}

// Dismiss waits for queued alerts, then closes the current one.
func (n *Notifier) Dismiss(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	last := n.lastAlert
	n.mu.Unlock()
	if last != nil {
		<-last
	}

	n.mu.Lock()
	id := n.alertID
	n.alertID = 0
	n.mu.Unlock()
	if id == 0 {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return desktopDismiss(ctx, id)
	})
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 800*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.emit(kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

// Nop is a Controller that does nothing.
type Nop struct{}

func (Nop) CueListening(context.Context)          {}
func (Nop) CueDictation(context.Context)          {}
func (Nop) CueStop(context.Context)               {}
func (Nop) CueComplete(context.Context)           {}
func (Nop) CueCancel(context.Context)             {}
func (Nop) Alert(context.Context, string, string) {}
func (Nop) Dismiss(context.Context)               {}
