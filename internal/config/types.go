// Package config resolves, parses, validates, and defaults agrovoz configuration.
package config

// Config is the fully materialized runtime configuration used by agrovoz.
type Config struct {
	Recognizer RecognizerConfig
	Audio      AudioConfig
	Speech     SpeechConfig
	Session    SessionConfig
	Wizard     WizardConfig
	Recordings RecordingsConfig
	Location   LocationConfig
	Store      StoreConfig
	Indicator  IndicatorConfig
	Metrics    MetricsConfig
	Debug      DebugConfig
}

// RecognizerConfig points at the Vosk server and bounds listening cycles.
type RecognizerConfig struct {
	URL                string
	Model              string
	Language           string
	SampleRate         int
	CommandTimeoutMS   int
	DictationTimeoutMS int
	// Grammar overrides the commands-mode phrase list when non-empty.
	Grammar []string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// SpeechConfig selects the TTS command and the prompt language.
type SpeechConfig struct {
	Cmd      CommandConfig
	Language string
	Locale   string
}

// SessionConfig tunes dictation stop words and command resumption.
type SessionConfig struct {
	Hotword         string
	ResumeCommands  bool
	ResumeDelayMS   int
	RetryDelayMS    int
	ReportSeparator string
}

// WizardConfig controls the start-of-day dialogue.
type WizardConfig struct {
	CatalogPath    string
	MaxRetries     int
	FuzzyThreshold float64
}

// RecordingsConfig controls where finished recordings are kept.
type RecordingsConfig struct {
	Dir       string
	Subdir    string
	Overwrite bool
}

// LocationConfig selects the position source stamped on records.
type LocationConfig struct {
	Backend   string
	Latitude  float64
	Longitude float64
	GPSDAddr  string
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Backend string
	DSN     string
}

// IndicatorConfig controls notifications and audio cue behavior.
type IndicatorConfig struct {
	Enable             bool
	DesktopAppName     string
	SoundEnable        bool
	SoundStartFile     string
	SoundDictationFile string
	SoundStopFile      string
	SoundCompleteFile  string
	SoundCancelFile    string
	ErrorTimeoutMS     int
}

// MetricsConfig enables the Prometheus scrape endpoint when Listen is set.
type MetricsConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
