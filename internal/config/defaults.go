package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	tts := "espeak-ng -v {lang} --stdin"

	return Config{
		Recognizer: RecognizerConfig{
			URL:                "ws://127.0.0.1:2700",
			Model:              "vosk-model-small-pt-0.3",
			Language:           "pt-BR",
			SampleRate:         16000,
			CommandTimeoutMS:   6000,
			DictationTimeoutMS: 10000,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Speech: SpeechConfig{
			Cmd:      CommandConfig{Raw: tts, Argv: mustParseArgv(tts)},
			Language: "pt-BR",
			Locale:   "pt-BR",
		},
		Session: SessionConfig{
			Hotword:         "finalizar",
			ResumeCommands:  true,
			ResumeDelayMS:   5000,
			RetryDelayMS:    500,
			ReportSeparator: "ponto",
		},
		Wizard: WizardConfig{
			MaxRetries: 0,
		},
		Recordings: RecordingsConfig{
			Subdir: "recordings",
		},
		Location: LocationConfig{
			Backend:  "none",
			GPSDAddr: "127.0.0.1:2947",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "agrovoz",
			SoundEnable:    true,
			ErrorTimeoutMS: 4000,
		},
	}
}
