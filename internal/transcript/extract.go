package transcript

import (
	"encoding/json"
	"strings"
)

// Extract returns the usable text carried by one recognizer payload.
//
// String payloads that decode as a JSON object yield their "text" field when
// present, else "partial", else the raw string. Anything that is not JSON is
// returned as is. Map payloads yield a non-empty "text", else "partial". Every
// other input yields "". Extract never panics.
func Extract(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return extractString(v)
	case []byte:
		return extractString(string(v))
	case json.RawMessage:
		return extractString(string(v))
	case map[string]any:
		if text := stringField(v, "text"); text != "" {
			return text
		}
		return stringField(v, "partial")
	case map[string]string:
		if text := v["text"]; text != "" {
			return text
		}
		return v["partial"]
	default:
		return ""
	}
}

func extractString(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return raw
	}

	for _, key := range []string{"text", "partial"} {
		value, ok := obj[key]
		if !ok || string(value) == "null" {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			continue
		}
		return text
	}
	return raw
}

func stringField(m map[string]any, key string) string {
	value, ok := m[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return text
}
