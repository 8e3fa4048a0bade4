package catalog

import (
	"strings"

	"github.com/genpad/internal/generator"
)

// BuiltinOverride patches a shipped descriptor, keyed by its ID
type BuiltinOverride struct {
	EndpointURL string
	AuthToken   string
	Samples     string
}

const (
	copilotName = "SDV Copilot"
	mockName    = "Mock Generator"
)

// BuiltinID returns the stable ID of a shipped generator for a category
func BuiltinID(kind string, category generator.Category) string {
	suffix := strings.ToLower(strings.TrimPrefix(string(category), "GenAI_"))
	return kind + "-" + suffix
}

// Builtins returns the generators shipped for category, copilot first
func Builtins(category generator.Category, overrides map[string]BuiltinOverride) []generator.Descriptor {
	copilot := generator.Descriptor{
		ID:          BuiltinID("sdv-copilot", category),
		Category:    category,
		Name:        copilotName,
		Description: "Default code generator served by the site fallback endpoint",
		Samples:     copilotSamples[category],
		Reserved:    true,
		Payload: func(prompt string) map[string]any {
			return map[string]any{"message": prompt}
		},
	}.WithDefaults()

	mock := generator.Descriptor{
		ID:          BuiltinID("mock", category),
		Category:    category,
		Name:        mockName,
		Description: "Returns canned code without any network call",
		IsMock:      true,
	}.WithDefaults()

	list := []generator.Descriptor{copilot, mock}
	for i := range list {
		o, ok := overrides[list[i].ID]
		if !ok {
			continue
		}
		if o.EndpointURL != "" {
			list[i].EndpointURL = o.EndpointURL
		}
		if o.AuthToken != "" {
			list[i].AuthToken = o.AuthToken
		}
		if o.Samples != "" {
			list[i].Samples = o.Samples
		}
	}
	return list
}

var copilotSamples = map[generator.Category]string{
	generator.CategoryPython:    "You write Python vehicle applications against the Vehicle Signal Specification API. Reply with code only.",
	generator.CategoryDashboard: "You write dashboard layouts as a JSON array of widget placements. Reply with JSON only.",
	generator.CategoryWidget:    "You write self-contained HTML widgets. Reply with a single HTML document.",
}
