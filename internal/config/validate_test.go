package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultHasNoWarnings(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty recognizer url", mutate: func(c *Config) { c.Recognizer.URL = "" }, wantErr: "recognizer.url"},
		{name: "http recognizer url", mutate: func(c *Config) { c.Recognizer.URL = "http://127.0.0.1:2700" }, wantErr: "ws://"},
		{name: "zero sample rate", mutate: func(c *Config) { c.Recognizer.SampleRate = 0 }, wantErr: "sample_rate"},
		{name: "zero command timeout", mutate: func(c *Config) { c.Recognizer.CommandTimeoutMS = 0 }, wantErr: "command_timeout_ms"},
		{name: "zero dictation timeout", mutate: func(c *Config) { c.Recognizer.DictationTimeoutMS = 0 }, wantErr: "dictation_timeout_ms"},
		{name: "bad recognizer language", mutate: func(c *Config) { c.Recognizer.Language = "portuguese!" }, wantErr: "recognizer.language"},
		{name: "bad speech language", mutate: func(c *Config) { c.Speech.Language = "brasil!" }, wantErr: "speech.language"},
		{name: "empty speech argv", mutate: func(c *Config) { c.Speech.Cmd.Argv = nil }, wantErr: "speech.cmd"},
		{name: "empty hotword", mutate: func(c *Config) { c.Session.Hotword = " " }, wantErr: "session.hotword"},
		{name: "multi-word hotword", mutate: func(c *Config) { c.Session.Hotword = "pode parar" }, wantErr: "single word"},
		{name: "negative resume delay", mutate: func(c *Config) { c.Session.ResumeDelayMS = -1 }, wantErr: "resume_delay_ms"},
		{name: "empty separator", mutate: func(c *Config) { c.Session.ReportSeparator = "" }, wantErr: "report_separator"},
		{name: "negative retries", mutate: func(c *Config) { c.Wizard.MaxRetries = -1 }, wantErr: "max_retries"},
		{name: "threshold above one", mutate: func(c *Config) { c.Wizard.FuzzyThreshold = 1.5 }, wantErr: "fuzzy_threshold"},
		{name: "bad location backend", mutate: func(c *Config) { c.Location.Backend = "wifi" }, wantErr: "location.backend"},
		{name: "bad latitude", mutate: func(c *Config) {
			c.Location.Backend = "fixed"
			c.Location.Latitude = 91
		}, wantErr: "latitude"},
		{name: "gpsd without addr", mutate: func(c *Config) {
			c.Location.Backend = "gpsd"
			c.Location.GPSDAddr = ""
		}, wantErr: "gpsd_addr"},
		{name: "bad store backend", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: "store.backend"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Backend = "postgres" }, wantErr: "store.dsn"},
		{name: "empty desktop app name", mutate: func(c *Config) { c.Indicator.DesktopAppName = "" }, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnPermissiveFuzzyThreshold(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Backend: "postgres", DSN: "postgres://localhost/agro"}
	cfg.Wizard.FuzzyThreshold = 0.5

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "fuzzy_threshold")
}
