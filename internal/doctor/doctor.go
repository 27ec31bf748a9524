// Package doctor runs runtime readiness diagnostics for config, tools, audio,
// the recognizer server and record storage.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/rbright/agrovoz/internal/audio"
	"github.com/rbright/agrovoz/internal/catalog"
	"github.com/rbright/agrovoz/internal/config"
	"github.com/rbright/agrovoz/internal/location"
	"github.com/rbright/agrovoz/internal/recognizer/vosk"
	"github.com/rbright/agrovoz/internal/store/postgres"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkCommand(cfg.Config.Speech.Cmd.Argv, "speech.cmd"))
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop alerts"))
	}
	if path := cfg.Config.Wizard.CatalogPath; path != "" {
		checks = append(checks, checkCatalog(path))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRecognizer(ctx, cfg.Config.Recognizer.URL))
	checks = append(checks, checkModelLanguage(cfg.Config.Recognizer))
	checks = append(checks, checkRecordingsDir(cfg.Config.Recordings))
	checks = append(checks, checkStore(ctx, cfg.Config.Store))
	if cfg.Config.Location.Backend == "gpsd" {
		checks = append(checks, checkGPSD(ctx, cfg.Config.Location.GPSDAddr))
	}

	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkCatalog(path string) Check {
	c, err := catalog.Load(path)
	if err != nil {
		return Check{Name: "wizard.catalog", Pass: false, Message: err.Error()}
	}
	return Check{Name: "wizard.catalog", Pass: true, Message: fmt.Sprintf(
		"%d objectives, %d properties, %d fields", len(c.Objectives), len(c.Properties), len(c.Fields),
	)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecognizer opens and closes one WebSocket to the Vosk server.
func checkRecognizer(ctx context.Context, url string) Check {
	if strings.TrimSpace(url) == "" {
		return Check{Name: "recognizer", Pass: false, Message: "recognizer.url is empty"}
	}
	dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return Check{Name: "recognizer", Pass: false, Message: fmt.Sprintf("dial %s: %v", url, err)}
	}
	conn.Close(websocket.StatusNormalClosure, "doctor")
	return Check{Name: "recognizer", Pass: true, Message: fmt.Sprintf("reachable at %s", url)}
}

func checkModelLanguage(cfg config.RecognizerConfig) Check {
	if err := vosk.CheckModelLanguage(cfg.Model, cfg.Language); err != nil {
		return Check{Name: "recognizer.model", Pass: false, Message: err.Error()}
	}
	return Check{Name: "recognizer.model", Pass: true, Message: fmt.Sprintf("%s (%s)", cfg.Model, cfg.Language)}
}

// checkRecordingsDir verifies recordings can be written where they will be kept.
func checkRecordingsDir(cfg config.RecordingsConfig) Check {
	root, err := config.ResolveDataDir(cfg.Dir)
	if err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: err.Error()}
	}
	dir := filepath.Join(root, strings.Trim(cfg.Subdir, "/"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "recordings.dir", Pass: false, Message: fmt.Sprintf("not writable: %v", err)}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return Check{Name: "recordings.dir", Pass: true, Message: fmt.Sprintf("writable %s", dir)}
}

func checkStore(ctx context.Context, cfg config.StoreConfig) Check {
	switch cfg.Backend {
	case "postgres":
		openCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		s, err := postgres.Open(openCtx, cfg.DSN)
		if err != nil {
			return Check{Name: "store", Pass: false, Message: err.Error()}
		}
		s.Close()
		return Check{Name: "store", Pass: true, Message: "postgres reachable, schema migrated"}
	default:
		return Check{Name: "store", Pass: true, Message: "in-memory; records are lost when the daemon exits"}
	}
}

func checkGPSD(ctx context.Context, addr string) Check {
	g := location.GPSD{Addr: addr, Timeout: probeTimeout}
	if !g.ServicesEnabled(ctx) {
		return Check{Name: "location.gpsd", Pass: false, Message: fmt.Sprintf("gpsd not reachable at %s", addr)}
	}
	return Check{Name: "location.gpsd", Pass: true, Message: fmt.Sprintf("gpsd reachable at %s", addr)}
}
