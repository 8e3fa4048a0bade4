package generator

import (
	"regexp"
	"strings"
)

// Category is the kind of document a generator produces code for
type Category string

const (
	CategoryPython    Category = "GenAI_Python"
	CategoryDashboard Category = "GenAI_Dashboard"
	CategoryWidget    Category = "GenAI_Widget"
)

// Categories lists every supported category in display order
var Categories = []Category{CategoryPython, CategoryDashboard, CategoryWidget}

// IsValid reports whether c belongs to the closed category set
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Method is the HTTP verb a generator endpoint expects
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Protocol defaults applied when a descriptor leaves a field empty
const (
	DefaultMethod        = MethodPost
	DefaultRequestField  = "prompt"
	DefaultResponseField = "data"
)

// PayloadBuilder turns a prompt into the JSON object sent in a POST body
type PayloadBuilder func(prompt string) map[string]any

// Descriptor is the identity and invocation contract of one generation backend
type Descriptor struct {
	ID            string         `json:"id"`
	Category      Category       `json:"category"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	EndpointURL   string         `json:"endpoint_url,omitempty"`
	AuthToken     string         `json:"auth_token,omitempty"`
	Method        Method         `json:"method,omitempty"`
	RequestField  string         `json:"request_field,omitempty"`
	ResponseField string         `json:"response_field,omitempty"`
	Samples       string         `json:"samples,omitempty"`
	IsMock        bool           `json:"is_mock,omitempty"`
	// Reserved marks the shipped copilot product, which always dispatches
	// through the category fallback endpoint.
	Reserved      bool           `json:"reserved,omitempty"`
	Payload       PayloadBuilder `json:"-"`
}

// WithDefaults returns a copy with empty protocol fields filled in
func (d Descriptor) WithDefaults() Descriptor {
	d.Method = Method(strings.ToUpper(strings.TrimSpace(string(d.Method))))
	if d.Method == "" {
		d.Method = DefaultMethod
	}
	if d.RequestField == "" {
		d.RequestField = DefaultRequestField
	}
	if d.ResponseField == "" {
		d.ResponseField = DefaultResponseField
	}
	return d
}

// BuildPayload returns the POST body contribution for prompt
func (d Descriptor) BuildPayload(prompt string) map[string]any {
	if d.Payload != nil {
		return d.Payload(prompt)
	}
	field := d.RequestField
	if field == "" {
		field = DefaultRequestField
	}
	return map[string]any{field: prompt}
}

// Valid reports whether the descriptor is structurally usable as a selection
func (d Descriptor) Valid() bool {
	return strings.TrimSpace(d.ID) != "" &&
		strings.TrimSpace(d.Name) != "" &&
		d.Category.IsValid()
}

// UsesFallback reports whether dispatch must go to the category fallback endpoint
func (d Descriptor) UsesFallback() bool {
	return strings.TrimSpace(d.EndpointURL) == "" || d.Reserved
}

// ReservedMarkers are normalized name fragments of the built-in copilot
// product. Marketplace entries carrying one are hidden as duplicates of it.
var ReservedMarkers = []string{"sdv copilot"}

var nameSeparators = regexp.MustCompile(`[\s_\-]+`)

// NormalizeName lower-cases name and folds separators into single spaces
func NormalizeName(name string) string {
	return strings.TrimSpace(nameSeparators.ReplaceAllString(strings.ToLower(name), " "))
}

// IsReservedProduct reports whether name marks the reserved built-in product
func IsReservedProduct(name string) bool {
	normalized := NormalizeName(name)
	for _, marker := range ReservedMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
