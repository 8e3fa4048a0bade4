package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// normalizeField extracts field from an explicit generator response. A
// response without the field becomes a diagnostic carrying the raw body.
func normalizeField(body []byte, field string) Result {
	if gjson.ValidBytes(body) {
		if r := gjson.GetBytes(body, escapePath(field)); r.Exists() && r.Type != gjson.Null {
			return Result{Kind: KindCode, Text: resultText(r)}
		}
	}
	return Result{
		Kind:    KindDiagnostic,
		Text:    fmt.Sprintf("Response has no %q field.\n\nRaw response:\n%s", field, prettyBody(body)),
		Message: fmt.Sprintf("Generator response is missing the %q field", field),
	}
}

// normalizeFallback takes content, then data, then the whole body
func normalizeFallback(body []byte) Result {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"content", "data"} {
			r := gjson.GetBytes(body, field)
			if !r.Exists() || r.Type == gjson.Null {
				continue
			}
			if r.Type == gjson.String && r.Str == "" {
				continue
			}
			return Result{Kind: KindCode, Text: resultText(r)}
		}
	}
	return Result{Kind: KindCode, Text: string(body)}
}

// serverMessage pulls a human readable message out of an error body
func serverMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, field := range []string{"message", "error", "error.message"} {
		if r := gjson.GetBytes(body, field); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
			return r.Str
		}
	}
	return ""
}

func resultText(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

func prettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

// escapePath makes a response field name safe to use as a gjson path
func escapePath(field string) string {
	var b strings.Builder
	for _, c := range field {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '_', c == '-', c == ':', c > 0x7f:
		default:
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
