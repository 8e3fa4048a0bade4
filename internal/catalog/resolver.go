// Package catalog merges generator descriptors from the built-in, marketplace
// and user-defined sources and remembers the last selection per scope.
package catalog

import (
	"strings"

	"github.com/genpad/internal/generator"
)

// Result is the merged view over the three descriptor sources
type Result struct {
	// Selectable holds merged built-ins, then visible marketplace entries,
	// then user-defined entries, de-duplicated by ID.
	Selectable []generator.Descriptor `json:"selectable"`
	// VisibleMarketplace is the marketplace subset not shadowed by a built-in.
	VisibleMarketplace []generator.Descriptor `json:"marketplace"`
	// Builtins is the merged built-in prefix of Selectable.
	Builtins []generator.Descriptor `json:"-"`
}

// Resolve merges the three sources. It never mutates its inputs.
func Resolve(builtins, marketplace, userDefined []generator.Descriptor) Result {
	byID := make(map[string]generator.Descriptor, len(marketplace))
	for _, m := range marketplace {
		if _, seen := byID[m.ID]; !seen {
			byID[m.ID] = m
		}
	}

	merged := make([]generator.Descriptor, 0, len(builtins))
	builtinIDs := make(map[string]struct{}, len(builtins))
	builtinNames := make(map[string]struct{}, len(builtins))
	for _, b := range builtins {
		builtinIDs[b.ID] = struct{}{}
		builtinNames[strings.ToLower(strings.TrimSpace(b.Name))] = struct{}{}

		override, ok := byID[b.ID]
		if !ok {
			merged = append(merged, b)
			continue
		}
		if override.Payload == nil {
			override.Payload = b.Payload
		}
		override.Reserved = b.Reserved
		merged = append(merged, override)
	}

	visible := make([]generator.Descriptor, 0, len(marketplace))
	for _, m := range marketplace {
		if _, hit := builtinIDs[m.ID]; hit {
			continue
		}
		if _, hit := builtinNames[strings.ToLower(strings.TrimSpace(m.Name))]; hit {
			continue
		}
		if generator.IsReservedProduct(m.Name) {
			continue
		}
		visible = append(visible, m)
	}

	seen := make(map[string]struct{}, len(merged)+len(visible)+len(userDefined))
	selectable := make([]generator.Descriptor, 0, len(merged)+len(visible)+len(userDefined))
	for _, group := range [][]generator.Descriptor{merged, visible, userDefined} {
		for _, d := range group {
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			selectable = append(selectable, d)
		}
	}

	return Result{
		Selectable:         selectable,
		VisibleMarketplace: visible,
		Builtins:           merged,
	}
}

// Find returns the selectable descriptor with the given ID
func (r Result) Find(id string) (generator.Descriptor, bool) {
	for _, d := range r.Selectable {
		if d.ID == id {
			return d, true
		}
	}
	return generator.Descriptor{}, false
}

// Default is the first merged built-in, if any
func (r Result) Default() (generator.Descriptor, bool) {
	if len(r.Builtins) == 0 {
		return generator.Descriptor{}, false
	}
	return r.Builtins[0], true
}
