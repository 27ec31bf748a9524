package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	rawURL := strings.TrimSpace(cfg.Recognizer.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("recognizer.url must not be empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("recognizer.url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("recognizer.url must use ws:// or wss://")
	}
	if cfg.Recognizer.SampleRate <= 0 {
		return nil, fmt.Errorf("recognizer.sample_rate must be > 0")
	}
	if cfg.Recognizer.SampleRate != 16000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.sample_rate=%d; audio is captured at 16000 Hz", cfg.Recognizer.SampleRate)})
	}
	if cfg.Recognizer.CommandTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.command_timeout_ms must be > 0")
	}
	if cfg.Recognizer.DictationTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.dictation_timeout_ms must be > 0")
	}

	if err := validLanguage(cfg.Recognizer.Language); err != nil {
		return nil, fmt.Errorf("recognizer.language: %w", err)
	}

	if len(cfg.Speech.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("speech.cmd must not be empty")
	}
	if err := validLanguage(cfg.Speech.Language); err != nil {
		return nil, fmt.Errorf("speech.language: %w", err)
	}

	if strings.TrimSpace(cfg.Session.Hotword) == "" {
		return nil, fmt.Errorf("session.hotword must not be empty")
	}
	if strings.Contains(strings.TrimSpace(cfg.Session.Hotword), " ") {
		return nil, fmt.Errorf("session.hotword must be a single word")
	}
	if cfg.Session.ResumeDelayMS < 0 {
		return nil, fmt.Errorf("session.resume_delay_ms must be >= 0")
	}
	if cfg.Session.RetryDelayMS < 0 {
		return nil, fmt.Errorf("session.retry_delay_ms must be >= 0")
	}
	if strings.TrimSpace(cfg.Session.ReportSeparator) == "" {
		return nil, fmt.Errorf("session.report_separator must not be empty")
	}

	if cfg.Wizard.MaxRetries < 0 {
		return nil, fmt.Errorf("wizard.max_retries must be >= 0")
	}
	if cfg.Wizard.FuzzyThreshold < 0 || cfg.Wizard.FuzzyThreshold > 1 {
		return nil, fmt.Errorf("wizard.fuzzy_threshold must be between 0 and 1")
	}
	if cfg.Wizard.FuzzyThreshold > 0 && cfg.Wizard.FuzzyThreshold < 0.8 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("wizard.fuzzy_threshold=%.2f is permissive; similar options may be confused", cfg.Wizard.FuzzyThreshold)})
	}

	switch strings.ToLower(cfg.Location.Backend) {
	case "none", "":
	case "fixed":
		if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 {
			return nil, fmt.Errorf("location.latitude must be between -90 and 90")
		}
		if cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
			return nil, fmt.Errorf("location.longitude must be between -180 and 180")
		}
		if cfg.Location.Latitude == 0 && cfg.Location.Longitude == 0 {
			warnings = append(warnings, Warning{Message: "location.backend=fixed with coordinates 0,0"})
		}
	case "gpsd":
		if strings.TrimSpace(cfg.Location.GPSDAddr) == "" {
			return nil, fmt.Errorf("location.gpsd_addr must not be empty when location.backend=gpsd")
		}
	default:
		return nil, fmt.Errorf("location.backend must be one of: none, fixed, gpsd")
	}

	switch strings.ToLower(cfg.Store.Backend) {
	case "memory":
	case "postgres":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return nil, fmt.Errorf("store.dsn must not be empty when store.backend=postgres")
		}
	default:
		return nil, fmt.Errorf("store.backend must be one of: memory, postgres")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	return warnings, nil
}

// validLanguage accepts an empty value or a well-formed BCP 47 tag.
func validLanguage(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := language.Parse(raw); err != nil {
		return fmt.Errorf("%q is not a language tag: %w", raw, err)
	}
	return nil
}
