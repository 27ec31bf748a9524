package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Parse reads JSONC configuration content on top of base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}
	return parseJSONC(content, base)
}

type jsoncConfig struct {
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Audio      *jsoncAudio      `json:"audio"`
	Speech     *jsoncSpeech     `json:"speech"`
	Session    *jsoncSession    `json:"session"`
	Wizard     *jsoncWizard     `json:"wizard"`
	Recordings *jsoncRecordings `json:"recordings"`
	Location   *jsoncLocation   `json:"location"`
	Store      *jsoncStore      `json:"store"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Metrics    *jsoncMetrics    `json:"metrics"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncRecognizer struct {
	URL                *string          `json:"url"`
	Model              *string          `json:"model"`
	Language           *string          `json:"language"`
	SampleRate         *int             `json:"sample_rate"`
	CommandTimeoutMS   *int             `json:"command_timeout_ms"`
	DictationTimeoutMS *int             `json:"dictation_timeout_ms"`
	Grammar            *jsoncStringList `json:"grammar"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncSpeech struct {
	Cmd      *string `json:"cmd"`
	Language *string `json:"language"`
	Locale   *string `json:"locale"`
}

type jsoncSession struct {
	Hotword         *string `json:"hotword"`
	ResumeCommands  *bool   `json:"resume_commands"`
	ResumeDelayMS   *int    `json:"resume_delay_ms"`
	RetryDelayMS    *int    `json:"retry_delay_ms"`
	ReportSeparator *string `json:"report_separator"`
}

type jsoncWizard struct {
	CatalogPath    *string  `json:"catalog_path"`
	MaxRetries     *int     `json:"max_retries"`
	FuzzyThreshold *float64 `json:"fuzzy_threshold"`
}

type jsoncRecordings struct {
	Dir       *string `json:"dir"`
	Subdir    *string `json:"subdir"`
	Overwrite *bool   `json:"overwrite"`
}

type jsoncLocation struct {
	Backend   *string  `json:"backend"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	GPSDAddr  *string  `json:"gpsd_addr"`
}

type jsoncStore struct {
	Backend *string `json:"backend"`
	DSN     *string `json:"dsn"`
}

type jsoncIndicator struct {
	Enable             *bool   `json:"enable"`
	DesktopAppName     *string `json:"desktop_app_name"`
	SoundEnable        *bool   `json:"sound_enable"`
	SoundStartFile     *string `json:"sound_start_file"`
	SoundDictationFile *string `json:"sound_dictation_file"`
	SoundStopFile      *string `json:"sound_stop_file"`
	SoundCompleteFile  *string `json:"sound_complete_file"`
	SoundCancelFile    *string `json:"sound_cancel_file"`
	ErrorTimeoutMS     *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.URL, r.URL)
		setString(&cfg.Recognizer.Model, r.Model)
		setString(&cfg.Recognizer.Language, r.Language)
		setInt(&cfg.Recognizer.SampleRate, r.SampleRate)
		setInt(&cfg.Recognizer.CommandTimeoutMS, r.CommandTimeoutMS)
		setInt(&cfg.Recognizer.DictationTimeoutMS, r.DictationTimeoutMS)
		if r.Grammar != nil {
			cfg.Recognizer.Grammar = cfg.Recognizer.Grammar[:0]
			for _, token := range *r.Grammar {
				token = strings.TrimSpace(token)
				if token == "" {
					continue
				}
				cfg.Recognizer.Grammar = append(cfg.Recognizer.Grammar, token)
			}
			if len(cfg.Recognizer.Grammar) > 0 && !slices.Contains(cfg.Recognizer.Grammar, "[unk]") {
				warnings = append(warnings, Warning{Message: "recognizer.grammar has no \"[unk]\" token; out-of-grammar speech will be forced onto a command"})
			}
		}
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if sp := payload.Speech; sp != nil {
		if sp.Cmd != nil {
			raw := *sp.Cmd
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid speech.cmd: %w", err)
			}
			cfg.Speech.Cmd = CommandConfig{Raw: raw, Argv: argv}
		}
		setString(&cfg.Speech.Language, sp.Language)
		setString(&cfg.Speech.Locale, sp.Locale)
	}

	if s := payload.Session; s != nil {
		setString(&cfg.Session.Hotword, s.Hotword)
		if s.ResumeCommands != nil {
			cfg.Session.ResumeCommands = *s.ResumeCommands
		}
		setInt(&cfg.Session.ResumeDelayMS, s.ResumeDelayMS)
		setInt(&cfg.Session.RetryDelayMS, s.RetryDelayMS)
		setString(&cfg.Session.ReportSeparator, s.ReportSeparator)
	}

	if w := payload.Wizard; w != nil {
		setString(&cfg.Wizard.CatalogPath, w.CatalogPath)
		setInt(&cfg.Wizard.MaxRetries, w.MaxRetries)
		if w.FuzzyThreshold != nil {
			cfg.Wizard.FuzzyThreshold = *w.FuzzyThreshold
		}
	}

	if r := payload.Recordings; r != nil {
		setString(&cfg.Recordings.Dir, r.Dir)
		setString(&cfg.Recordings.Subdir, r.Subdir)
		if r.Overwrite != nil {
			cfg.Recordings.Overwrite = *r.Overwrite
		}
	}

	if l := payload.Location; l != nil {
		setString(&cfg.Location.Backend, l.Backend)
		if l.Latitude != nil {
			cfg.Location.Latitude = *l.Latitude
		}
		if l.Longitude != nil {
			cfg.Location.Longitude = *l.Longitude
		}
		setString(&cfg.Location.GPSDAddr, l.GPSDAddr)
	}

	if st := payload.Store; st != nil {
		setString(&cfg.Store.Backend, st.Backend)
		setString(&cfg.Store.DSN, st.DSN)
	}

	if in := payload.Indicator; in != nil {
		if in.Enable != nil {
			cfg.Indicator.Enable = *in.Enable
		}
		setString(&cfg.Indicator.DesktopAppName, in.DesktopAppName)
		if in.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *in.SoundEnable
		}
		setString(&cfg.Indicator.SoundStartFile, in.SoundStartFile)
		setString(&cfg.Indicator.SoundDictationFile, in.SoundDictationFile)
		setString(&cfg.Indicator.SoundStopFile, in.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, in.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, in.SoundCancelFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, in.ErrorTimeoutMS)
	}

	if payload.Metrics != nil {
		setString(&cfg.Metrics.Listen, payload.Metrics.Listen)
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return warnings, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
