package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Coordinator plays at most one prompt at a time. A new prompt cancels the
// previous one; a cancelled prompt never runs its completion.
type Coordinator struct {
	synth  Synthesizer
	logger *slog.Logger

	mu      sync.Mutex
	current *prompt
}

type prompt struct {
	text   string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator wraps synth.
func NewCoordinator(synth Synthesizer, logger *slog.Logger) *Coordinator {
	return &Coordinator{synth: synth, logger: logger}
}

// Speak cancels and waits out any in-flight prompt, then speaks message in
// the background. onDone runs after the prompt completes, including when the
// synthesizer failed, but never after Stop or a superseding Speak.
func (c *Coordinator) Speak(ctx context.Context, message string, onDone func()) {
	pctx, cancel := context.WithCancel(ctx)
	p := &prompt{text: message, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	prev := c.current
	c.current = p
	c.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}
	go c.play(pctx, p, onDone)
}

// Stop cancels the in-flight prompt, if any, and waits for it to end.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	p := c.current
	c.current = nil
	c.mu.Unlock()

	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

// Speaking reports whether a prompt is in flight.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Coordinator) play(ctx context.Context, p *prompt, onDone func()) {
	err := c.speak(ctx, p.text)

	c.mu.Lock()
	completed := c.current == p && ctx.Err() == nil
	if c.current == p {
		c.current = nil
	}
	c.mu.Unlock()
	p.cancel()
	close(p.done)

	if !completed {
		return
	}
	if err != nil && c.logger != nil {
		c.logger.Warn("speech synthesis failed", "message", p.text, "error", err.Error())
	}
	if onDone != nil {
		onDone()
	}
}

func (c *Coordinator) speak(ctx context.Context, text string) error {
	if c.synth == nil {
		return errors.New("speech synthesizer is not configured")
	}
	if text == "" {
		return nil
	}
	return c.synth.Speak(ctx, text)
}
