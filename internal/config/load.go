package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvConfigPath overrides the default config location when --config is absent.
const EnvConfigPath = "AGROVOZ_CONFIG"

// Loaded is the resolved config plus where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning

	// Exists is false when defaults were used because no file was found.
	Exists bool
	// Explicit marks a path named by --config or AGROVOZ_CONFIG.
	Explicit bool
}

// Load reads the config named by explicitPath, then AGROVOZ_CONFIG, then the
// XDG default. An explicitly named file must exist; a missing default file
// means built-in defaults.
func Load(explicitPath string) (Loaded, error) {
	if strings.TrimSpace(explicitPath) == "" {
		explicitPath = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: resolvedPath, Explicit: explicitPath != ""}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && !loaded.Explicit:
		loaded.Config = Default()
		return loaded, nil
	case errors.Is(err, os.ErrNotExist):
		return Loaded{}, fmt.Errorf("config file %q not found", resolvedPath)
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}
