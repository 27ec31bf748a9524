package session

import (
	"context"
	"errors"

	"github.com/rbright/agrovoz/internal/recognizer"
)

// ErrEngineUnavailable indicates the recognizer was never wired.
var ErrEngineUnavailable = errors.New("speech recognizer not configured")

// enqueue hands an engine or capture operation to the FIFO worker, so a stop
// can never overtake the start it tears down.
func (c *Controller) enqueue(op func(context.Context)) {
	select {
	case c.ops <- op:
	case <-c.done:
	}
}

// work runs queued operations in order until ctx is cancelled.
func (c *Controller) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-c.ops:
			op(ctx)
		}
	}
}

// unavailableEngine is a placeholder used when no recognizer is wired.
type unavailableEngine struct{}

func (unavailableEngine) LoadModel(context.Context, string) error {
	return ErrEngineUnavailable
}

func (unavailableEngine) Start(context.Context, recognizer.Options) (uint64, error) {
	return 0, ErrEngineUnavailable
}

func (unavailableEngine) Stop(context.Context) error {
	return nil
}

func (unavailableEngine) Events() <-chan recognizer.Event {
	return nil
}
