package docsync

import "encoding/json"

// ContentMode says how a document's code text is laid out
type ContentMode string

const (
	// ModeFlatCode is a single code buffer
	ModeFlatCode ContentMode = "flat-code"
	// ModeStructured is a JSON array of project files
	ModeStructured ContentMode = "structured-project"
)

// DetectMode classifies text. Anything that does not parse as JSON is flat code.
func DetectMode(text string) ContentMode {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return ModeFlatCode
	}
	return ModeOf(v)
}

// ModeOf classifies an already decoded value: only arrays are structured
func ModeOf(v any) ContentMode {
	if _, ok := v.([]any); ok {
		return ModeStructured
	}
	return ModeFlatCode
}
