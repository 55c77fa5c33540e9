package settings

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by repositories when no settings row exists yet.
var ErrNotFound = errors.New("settings not found")

// Settings holds the user-editable capture configuration: the two service
// keys, the instruction prompt, and the polling interval.
type Settings struct {
	OCRAPIKey        string `json:"ocr_api_key"`
	CompletionAPIKey string `json:"completion_api_key"`
	Prompt           string `json:"prompt"`
	IntervalSeconds  int    `json:"interval_seconds"`
}

// HasKeys reports whether both service keys are present. A cycle cannot
// proceed past the precondition check without them.
func (s Settings) HasKeys() bool {
	return strings.TrimSpace(s.OCRAPIKey) != "" && strings.TrimSpace(s.CompletionAPIKey) != ""
}

// Normalize fills blank fields from the provided defaults and clamps the
// interval to a positive value.
func (s Settings) Normalize(defaultPrompt string, defaultInterval int) Settings {
	out := s
	out.OCRAPIKey = strings.TrimSpace(out.OCRAPIKey)
	out.CompletionAPIKey = strings.TrimSpace(out.CompletionAPIKey)
	if strings.TrimSpace(out.Prompt) == "" {
		out.Prompt = defaultPrompt
	}
	if out.IntervalSeconds <= 0 {
		out.IntervalSeconds = defaultInterval
	}
	return out
}
