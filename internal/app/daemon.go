package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/agrovoz/internal/artifact"
	"github.com/rbright/agrovoz/internal/audio"
	"github.com/rbright/agrovoz/internal/capture"
	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/config"
	"github.com/rbright/agrovoz/internal/indicator"
	"github.com/rbright/agrovoz/internal/intent"
	"github.com/rbright/agrovoz/internal/ipc"
	"github.com/rbright/agrovoz/internal/location"
	"github.com/rbright/agrovoz/internal/observe"
	"github.com/rbright/agrovoz/internal/recognizer/vosk"
	"github.com/rbright/agrovoz/internal/session"
	"github.com/rbright/agrovoz/internal/speech"
	"github.com/rbright/agrovoz/internal/store"
	"github.com/rbright/agrovoz/internal/store/postgres"
	"github.com/rbright/agrovoz/internal/wizard"
)

// daemon holds everything the run command owns for its lifetime.
type daemon struct {
	controller *session.Controller
	provider   *observe.Provider
	store      store.Store
	recorder   *audio.Recorder
	cues       indicator.Controller
}

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Error("daemon startup failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer d.close(logger)

	logger.Info("daemon ready", "socket", socketPath, "metrics", cfg.Metrics.Listen)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ipc.Serve(gctx, listener, d.controller)
	})
	g.Go(func() error {
		return d.controller.Run(gctx)
	})
	if cfg.Metrics.Listen != "" {
		g.Go(func() error {
			return observe.Serve(gctx, cfg.Metrics.Listen, d.provider.Handler)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

func newDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{}
	ok := false
	defer func() {
		if !ok {
			d.close(logger)
		}
	}()

	provider, err := observe.InitProvider()
	if err != nil {
		return nil, err
	}
	d.provider = provider
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	d.store, err = openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if _, volatile := d.store.(*store.MemStore); volatile {
		logger.Warn("records kept in memory only; they are lost when the daemon exits", "store", cfg.Store.Backend)
	}

	cat, err := catalog.Load(cfg.Wizard.CatalogPath)
	if err != nil {
		return nil, err
	}

	dataDir, err := config.ResolveDataDir(cfg.Recordings.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve recordings dir: %w", err)
	}
	scratch := filepath.Join(dataDir, "tmp")
	if err := os.MkdirAll(scratch, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	d.recorder = audio.NewRecorder(audio.RecorderConfig{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Dir:      scratch,
	}, logger)
	d.recorder.Cleanup()

	engine := vosk.New(vosk.Config{
		URL:        cfg.Recognizer.URL,
		SampleRate: cfg.Recognizer.SampleRate,
		Language:   cfg.Recognizer.Language,
	}, micSource(cfg, logger), logger)
	if err := engine.LoadModel(ctx, cfg.Recognizer.Model); err != nil {
		if errors.Is(err, vosk.ErrLanguageMismatch) {
			return nil, fmt.Errorf("recognizer.model: %w", err)
		}
		// The server may come up after the daemon; sessions dial on start.
		logger.Warn("recognizer not reachable yet", "url", cfg.Recognizer.URL, "error", err.Error())
	}

	messages := speech.MessagesFor(speech.ResolveLocale(cfg.Speech.Locale))
	d.cues = indicator.Nop{}
	if cfg.Indicator.Enable {
		d.cues = indicator.NewNotifier(cfg.Indicator, logger)
	}

	d.controller = session.NewController(session.Deps{
		Logger:  logger,
		Engine:  engine,
		Capture: capture.NewBridge(capture.RecorderDevice{Recorder: d.recorder}, logger),
		Speaker: speech.NewCoordinator(speech.CommandSynthesizer{
			Argv:     cfg.Speech.Cmd.Argv,
			Language: cfg.Speech.Language,
		}, logger),
		Wizard: wizard.New(cat, wizard.Options{
			MaxRetries: cfg.Wizard.MaxRetries,
			Matcher:    intent.BestMatcher{FuzzyThreshold: cfg.Wizard.FuzzyThreshold},
			Prompts:    messages.Wizard,
		}),
		Matcher:   intent.NewMatcher(nil),
		Store:     d.store,
		Location:  locationService(cfg.Location),
		Indicator: d.cues,
		Metrics:   metrics,
		Messages:  messages,
	}, sessionConfig(cfg, dataDir))

	ok = true
	return d, nil
}

func (d *daemon) close(logger *slog.Logger) {
	if d.cues != nil {
		d.cues.Dismiss(context.Background())
	}
	if d.store != nil {
		d.store.Close()
	}
	if d.recorder != nil {
		d.recorder.Cleanup()
	}
	if d.provider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := d.provider.Shutdown(shutdownCtx); err != nil && logger != nil {
			logger.Warn("metrics shutdown failed", "error", err.Error())
		}
	}
}

func sessionConfig(cfg config.Config, dataDir string) session.Config {
	return session.Config{
		Hotword:          cfg.Session.Hotword,
		Separator:        cfg.Session.ReportSeparator,
		Grammar:          cfg.Recognizer.Grammar,
		CommandTimeout:   millis(cfg.Recognizer.CommandTimeoutMS),
		DictationTimeout: millis(cfg.Recognizer.DictationTimeoutMS),
		ResumeCommands:   cfg.Session.ResumeCommands,
		ResumeDelay:      millis(cfg.Session.ResumeDelayMS),
		RetryDelay:       millis(cfg.Session.RetryDelayMS),
		Artifacts: artifact.Options{
			Dir:       dataDir,
			Subdir:    cfg.Recordings.Subdir,
			Overwrite: cfg.Recordings.Overwrite,
		},
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemStore(), nil
	}
}

func locationService(cfg config.LocationConfig) location.Service {
	switch cfg.Backend {
	case "fixed":
		return location.Fixed{Position: location.Position{Latitude: cfg.Latitude, Longitude: cfg.Longitude}}
	case "gpsd":
		return location.GPSD{Addr: cfg.GPSDAddr}
	default:
		return location.Disabled{}
	}
}

// micSource opens one recognizer capture per session. With debug.audio_dump
// the captured PCM is also written to a WAV under the state dir on stop.
func micSource(cfg config.Config, logger *slog.Logger) vosk.Source {
	dump := cfg.Debug.EnableAudioDump
	return vosk.SourceFunc(func(ctx context.Context) (vosk.Stream, error) {
		c, err := audio.OpenCapture(ctx, cfg.Audio.Input, cfg.Audio.Fallback, audio.CaptureOptions{
			MediaName: "agrovoz recognizer",
			KeepPCM:   dump,
		})
		if err != nil {
			return nil, err
		}
		if !dump {
			return c, nil
		}
		return &dumpStream{Capture: c, logger: logger}, nil
	})
}

type dumpStream struct {
	*audio.Capture
	logger *slog.Logger
}

func (s *dumpStream) Stop() error {
	err := s.Capture.Stop()
	pcm := s.RawPCM()
	if len(pcm) == 0 {
		return err
	}
	path, pathErr := debugPath("audio", "wav")
	if pathErr == nil {
		pathErr = audio.WriteWAV(path, pcm)
	}
	if pathErr != nil && s.logger != nil {
		s.logger.Warn("unable to write debug audio dump", "error", pathErr.Error())
	}
	return err
}

// debugPath returns a timestamped file path under state/agrovoz/debug.
func debugPath(prefix string, extension string) (string, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	debugDir := filepath.Join(stateDir, binaryName, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	timestamp := time.Now().Format("20060102-150405.000")
	return filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension)), nil
}

func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
