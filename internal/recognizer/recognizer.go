// Package recognizer defines the speech recognizer port driven by the session
// controller.
package recognizer

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied reports that the microphone could not be opened.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrBusy reports a start while a recognition session is already running.
	ErrBusy = errors.New("recognizer already running")
)

// Kind tags one recognizer event.
type Kind string

const (
	KindPartial Kind = "partial"
	KindFinal   Kind = "final"
	KindTimeout Kind = "timeout"
	KindError   Kind = "error"
)

// Event is one message on the engine's single event stream. Payload carries
// the raw engine result; callers unwrap it with transcript.Extract.
type Event struct {
	Session uint64
	Kind    Kind
	Payload string
	Err     error
}

// Options configures one recognition session.
type Options struct {
	// Grammar restricts recognition to these tokens. Empty means open vocabulary.
	Grammar []string
	// Timeout ends the session after this long without new speech.
	Timeout time.Duration
}

// Engine is a single-session speech recognizer.
type Engine interface {
	LoadModel(ctx context.Context, name string) error
	// Start opens a session and returns its id. Events of that session carry the id.
	Start(ctx context.Context, opts Options) (uint64, error)
	// Stop ends the running session, if any.
	Stop(ctx context.Context) error
	Events() <-chan Event
}
