package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-audio/wav"
)

var (
	// ErrNotPrepared reports Record without a prior Prepare.
	ErrNotPrepared = errors.New("recorder not prepared")
	// ErrNotRecording reports Stop while nothing is being recorded.
	ErrNotRecording = errors.New("recorder is not recording")
)

// RecorderStatus is the recorder's own view of its capture.
type RecorderStatus struct {
	IsRecording bool
}

// RecorderConfig selects the input device and the scratch directory for
// in-progress recordings.
type RecorderConfig struct {
	Input    string
	Fallback string
	Dir      string
}

// Recorder captures the microphone into a temporary WAV file.
type Recorder struct {
	cfg    RecorderConfig
	logger *slog.Logger
	open   func(ctx context.Context) (pcmStream, error)

	mu        sync.Mutex
	path      string
	capture   pcmStream
	writeDone chan error
	uri       string
	recording atomic.Bool
}

// pcmStream is the part of Capture the recorder consumes.
type pcmStream interface {
	Chunks() <-chan []byte
	Stop() error
}

// NewRecorder builds a recorder writing into cfg.Dir (os.TempDir when empty).
func NewRecorder(cfg RecorderConfig, logger *slog.Logger) *Recorder {
	r := &Recorder{cfg: cfg, logger: logger}
	r.open = func(ctx context.Context) (pcmStream, error) {
		return OpenCapture(ctx, cfg.Input, cfg.Fallback, CaptureOptions{MediaName: appName + " recording"})
	}
	return r
}

// Prepare reserves a scratch file for the next recording.
func (r *Recorder) Prepare(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording.Load() {
		return errors.New("recorder already recording")
	}

	dir := r.cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create recording cache: %w", err)
	}
	f, err := os.CreateTemp(dir, "capture-*.wav")
	if err != nil {
		return fmt.Errorf("reserve recording file: %w", err)
	}
	_ = f.Close()

	r.path = f.Name()
	r.uri = ""
	return nil
}

// Record starts capturing into the prepared file.
func (r *Recorder) Record(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.path == "" {
		return ErrNotPrepared
	}
	if r.recording.Load() {
		return nil
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open recording file: %w", err)
	}
	capture, err := r.open(ctx)
	if err != nil {
		_ = f.Close()
		return err
	}

	done := make(chan error, 1)
	r.capture = capture
	r.writeDone = done
	r.recording.Store(true)

	path := r.path
	go func() {
		err := encodeStream(newEncoder(f), capture.Chunks())
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		r.recording.Store(false)
		if err == nil {
			r.mu.Lock()
			r.uri = path
			r.mu.Unlock()
		}
		done <- err
	}()
	return nil
}

// Stop ends the capture and finalizes the WAV file.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	capture := r.capture
	done := r.writeDone
	r.capture = nil
	r.writeDone = nil
	r.path = ""
	r.mu.Unlock()

	if capture == nil || done == nil {
		return ErrNotRecording
	}
	_ = capture.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("finalize recording: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports whether audio is currently being written.
func (r *Recorder) Status() RecorderStatus {
	return RecorderStatus{IsRecording: r.recording.Load()}
}

// URI returns the last finalized recording path.
func (r *Recorder) URI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uri
}

// Cleanup removes leftover scratch files older runs left behind.
func (r *Recorder) Cleanup() {
	if r.cfg.Dir == "" {
		return
	}
	matches, _ := filepath.Glob(filepath.Join(r.cfg.Dir, "capture-*.wav"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && r.logger != nil {
			r.logger.Debug("remove stale capture", "path", m, "error", err.Error())
		}
	}
}

func encodeStream(enc *wav.Encoder, chunks <-chan []byte) error {
	var writeErr error
	for chunk := range chunks {
		if writeErr != nil || len(chunk) < 2 {
			continue
		}
		writeErr = enc.Write(intBuffer(chunk))
	}
	if err := enc.Close(); writeErr == nil {
		writeErr = err
	}
	return writeErr
}
