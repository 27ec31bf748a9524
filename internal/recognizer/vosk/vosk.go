// Package vosk drives a Vosk server over WebSocket, streaming microphone PCM
// and surfacing partial and final results as recognizer events.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/text/language"

	"github.com/rbright/agrovoz/internal/recognizer"
)

const (
	defaultSampleRate = 16000
	dialTimeout       = 3 * time.Second
	drainTimeout      = 2 * time.Second
)

// Stream is an open PCM capture.
type Stream interface {
	Chunks() <-chan []byte
	Stop() error
}

// Source opens microphone capture for one session.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(context.Context) (Stream, error)

func (f SourceFunc) Open(ctx context.Context) (Stream, error) { return f(ctx) }

// ErrLanguageMismatch reports a model named for a language other than Config.Language.
var ErrLanguageMismatch = errors.New("vosk: model language mismatch")

// Config describes the server endpoint.
type Config struct {
	URL        string
	SampleRate int
	// Language is the BCP 47 tag the served model must recognize.
	Language string
}

// Engine implements recognizer.Engine. One session runs at a time.
type Engine struct {
	cfg    Config
	source Source
	logger *slog.Logger
	events chan recognizer.Event

	mu     sync.Mutex
	seq    uint64
	model  string
	active *session
}

// New builds an engine; Source supplies microphone audio.
func New(cfg Config, source Source, logger *slog.Logger) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		logger: logger,
		events: make(chan recognizer.Event, 64),
	}
}

// Events returns the engine's single event stream.
func (e *Engine) Events() <-chan recognizer.Event { return e.events }

// LoadModel records the model name and checks the server is reachable. Vosk
// servers load their model at boot, so nothing is transferred. A conventional
// model name must agree with Config.Language.
func (e *Engine) LoadModel(ctx context.Context, name string) error {
	if err := CheckModelLanguage(name, e.cfg.Language); err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, e.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("vosk: dial %s: %w", e.cfg.URL, err)
	}
	conn.Close(websocket.StatusNormalClosure, "probe")

	e.mu.Lock()
	e.model = name
	e.mu.Unlock()
	e.logDebug("vosk model ready", "model", name, "language", e.cfg.Language, "url", e.cfg.URL)
	return nil
}

// Start dials the server, sends the session config and begins streaming audio.
func (e *Engine) Start(ctx context.Context, opts recognizer.Options) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil && !e.active.finished() {
		return 0, recognizer.ErrBusy
	}

	stream, err := e.source.Open(ctx)
	if err != nil {
		if isPermissionError(err) {
			return 0, fmt.Errorf("%w: %v", recognizer.ErrPermissionDenied, err)
		}
		return 0, fmt.Errorf("vosk: open audio: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, e.cfg.URL, nil)
	if err != nil {
		_ = stream.Stop()
		return 0, fmt.Errorf("vosk: dial %s: %w", e.cfg.URL, err)
	}
	conn.SetReadLimit(1 << 20)

	msg, err := configMessage(e.cfg.SampleRate, opts.Grammar)
	if err != nil {
		_ = stream.Stop()
		conn.Close(websocket.StatusInternalError, "config")
		return 0, err
	}
	if err := conn.Write(dialCtx, websocket.MessageText, msg); err != nil {
		_ = stream.Stop()
		conn.Close(websocket.StatusInternalError, "config")
		return 0, fmt.Errorf("vosk: send config: %w", err)
	}

	e.seq++
	s := &session{
		id:      e.seq,
		conn:    conn,
		stream:  stream,
		events:  e.events,
		logger:  e.logger,
		timeout: opts.Timeout,
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	if s.timeout > 0 {
		s.timer = time.AfterFunc(s.timeout, s.onTimeout)
	}
	e.active = s

	s.wg.Add(2)
	go s.writeLoop()
	go s.readLoop()

	e.logDebug("vosk session started", "session", s.id, "grammar", len(opts.Grammar))
	return s.id, nil
}

// Stop flushes the running session and closes the connection.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	s := e.active
	e.active = nil
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	s.shutdown(ctx)
	return nil
}

func (e *Engine) logDebug(msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, args...)
}

// modelLanguage reads the language from names like "vosk-model-small-pt-0.3"
// or "vosk-model-en-us-0.22".
func modelLanguage(model string) (language.Base, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(filepath.Base(model)), "vosk-model-")
	if !ok {
		return language.Base{}, false
	}
	rest = strings.TrimPrefix(rest, "small-")
	code, _, _ := strings.Cut(rest, "-")
	base, err := language.ParseBase(code)
	if err != nil {
		return language.Base{}, false
	}
	return base, true
}

// CheckModelLanguage fails with ErrLanguageMismatch when a conventionally
// named model targets a language other than want.
func CheckModelLanguage(model string, want string) error {
	if strings.TrimSpace(want) == "" {
		return nil
	}
	got, ok := modelLanguage(model)
	if !ok {
		return nil
	}
	tag, err := language.Parse(strings.TrimSpace(want))
	if err != nil {
		return fmt.Errorf("vosk: language %q: %w", want, err)
	}
	if base, _ := tag.Base(); base != got {
		return fmt.Errorf("%w: %s is %s, want %s", ErrLanguageMismatch, model, got, base)
	}
	return nil
}

type configPayload struct {
	Config struct {
		SampleRate int      `json:"sample_rate"`
		PhraseList []string `json:"phrase_list,omitempty"`
	} `json:"config"`
}

func configMessage(sampleRate int, grammar []string) ([]byte, error) {
	var p configPayload
	p.Config.SampleRate = sampleRate
	p.Config.PhraseList = grammar
	out, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("vosk: encode config: %w", err)
	}
	return out, nil
}

// result is the subset of a Vosk server message the engine inspects.
type result struct {
	Partial *string `json:"partial"`
	Text    *string `json:"text"`
}

type session struct {
	id      uint64
	conn    *websocket.Conn
	stream  Stream
	events  chan<- recognizer.Event
	logger  *slog.Logger
	timeout time.Duration
	timer   *time.Timer

	wg      sync.WaitGroup
	once    sync.Once
	done    chan struct{}
	closing chan struct{}

	mu          sync.Mutex
	lastPartial string
	ended       bool
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// writeLoop forwards PCM to the server and sends EOF once capture stops.
func (s *session) writeLoop() {
	defer s.wg.Done()
	ctx := context.Background()
	for chunk := range s.stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
			return
		}
	}
	_ = s.conn.Write(ctx, websocket.MessageText, []byte(`{"eof" : 1}`))
}

// readLoop turns server messages into events until the connection closes.
func (s *session) readLoop() {
	defer s.wg.Done()
	for {
		_, msg, err := s.conn.Read(context.Background())
		if err != nil {
			select {
			case <-s.closing:
			default:
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					s.emit(recognizer.Event{Kind: recognizer.KindError, Err: fmt.Errorf("vosk: read: %w", err)})
				}
			}
			return
		}

		kind, ok := s.classify(msg)
		if !ok {
			continue
		}
		s.touch()
		s.emit(recognizer.Event{Kind: kind, Payload: string(msg)})
	}
}

// classify reports which event a server message represents. Empty results
// and repeated partials are dropped.
func (s *session) classify(msg []byte) (recognizer.Kind, bool) {
	var r result
	if err := json.Unmarshal(msg, &r); err != nil {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case r.Text != nil:
		s.lastPartial = ""
		if strings.TrimSpace(*r.Text) == "" {
			return "", false
		}
		return recognizer.KindFinal, true
	case r.Partial != nil:
		partial := strings.TrimSpace(*r.Partial)
		if partial == "" || partial == s.lastPartial {
			return "", false
		}
		s.lastPartial = partial
		return recognizer.KindPartial, true
	default:
		return "", false
	}
}

func (s *session) touch() {
	if s.timer != nil {
		s.timer.Reset(s.timeout)
	}
}

func (s *session) onTimeout() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.emit(recognizer.Event{Kind: recognizer.KindTimeout})
	go s.shutdown(context.Background())
}

func (s *session) emit(ev recognizer.Event) {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return
	}

	ev.Session = s.id
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}

// shutdown stops capture and waits up to drainTimeout for the server to
// answer EOF. Results flushed in that window are still emitted. It is
// idempotent.
func (s *session) shutdown(ctx context.Context) {
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		_ = s.stream.Stop()

		waitCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		defer cancel()
		flushed := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(flushed)
		}()

		select {
		case <-flushed:
		case <-waitCtx.Done():
		}

		s.mu.Lock()
		s.ended = true
		s.mu.Unlock()
		close(s.closing)

		s.conn.Close(websocket.StatusNormalClosure, "session closed")
		<-flushed
		close(s.done)
	})
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, recognizer.ErrPermissionDenied) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "access denied") || strings.Contains(msg, "permission denied")
}
