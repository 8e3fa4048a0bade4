package catalog

import (
	"reflect"
	"testing"

	"github.com/genpad/internal/generator"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ignorePayload = cmpopts.IgnoreFields(generator.Descriptor{}, "Payload")

func ids(list []generator.Descriptor) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.ID)
	}
	return out
}

func TestResolveKeepsBuiltinPayloadBuilder(t *testing.T) {
	builder := func(prompt string) map[string]any {
		return map[string]any{"builtin": prompt}
	}
	builtins := []generator.Descriptor{{ID: "x", Name: "X", Payload: builder}}
	market := []generator.Descriptor{{ID: "x", Name: "X (market)", EndpointURL: "https://market/x", AuthToken: "m"}}

	res := Resolve(builtins, market, nil)

	got, ok := res.Find("x")
	require.True(t, ok)
	assert.Equal(t, "https://market/x", got.EndpointURL)
	assert.Equal(t, "X (market)", got.Name)
	require.NotNil(t, got.Payload)
	assert.Equal(t, reflect.ValueOf(builder).Pointer(), reflect.ValueOf(got.Payload).Pointer())
	assert.Equal(t, map[string]any{"builtin": "p"}, got.BuildPayload("p"))
}

func TestResolveMarketplaceBuilderWins(t *testing.T) {
	builtins := []generator.Descriptor{{ID: "x", Name: "X", Payload: func(p string) map[string]any {
		return map[string]any{"builtin": p}
	}}}
	market := []generator.Descriptor{{ID: "x", Name: "X", Payload: func(p string) map[string]any {
		return map[string]any{"market": p}
	}}}

	got, ok := Resolve(builtins, market, nil).Find("x")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"market": "p"}, got.BuildPayload("p"))
}

func TestResolveMergedCopilotStaysReserved(t *testing.T) {
	builtins := Builtins(generator.CategoryPython, nil)
	market := []generator.Descriptor{{
		ID: "sdv-copilot-python", Name: "SDV Copilot", Category: generator.CategoryPython,
		EndpointURL: "https://market",
	}}

	got, ok := Resolve(builtins, market, nil).Find("sdv-copilot-python")
	require.True(t, ok)
	assert.Equal(t, "https://market", got.EndpointURL)
	assert.True(t, got.UsesFallback())
}

func TestResolveHidesDuplicatesFromMarketplace(t *testing.T) {
	builtins := []generator.Descriptor{
		{ID: "sdv-copilot-python", Name: "SDV Copilot"},
		{ID: "mock-python", Name: "Mock Generator"},
	}
	market := []generator.Descriptor{
		{ID: "sdv-copilot-python", Name: "Override"},
		{ID: "m1", Name: "SDV-Copilot Pro"},
		{ID: "m2", Name: "mock generator"},
		{ID: "m3", Name: "Vehicle Helper"},
	}

	res := Resolve(builtins, market, nil)

	assert.Equal(t, []string{"m3"}, ids(res.VisibleMarketplace))
	assert.Equal(t, []string{"sdv-copilot-python", "mock-python", "m3"}, ids(res.Selectable))
}

func TestResolveSelectableOrderAndDedup(t *testing.T) {
	builtins := []generator.Descriptor{{ID: "b1", Name: "B1"}}
	market := []generator.Descriptor{{ID: "m1", Name: "M1"}, {ID: "m1", Name: "M1 again"}}
	user := []generator.Descriptor{{ID: "u1", Name: "U1"}, {ID: "b1", Name: "Shadow"}, {ID: "m1", Name: "Shadow"}}

	res := Resolve(builtins, market, user)

	want := []generator.Descriptor{
		{ID: "b1", Name: "B1"},
		{ID: "m1", Name: "M1"},
		{ID: "u1", Name: "U1"},
	}
	if diff := cmp.Diff(want, res.Selectable, ignorePayload); diff != "" {
		t.Errorf("Selectable mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	builtins := []generator.Descriptor{{ID: "x", Name: "X", Payload: func(string) map[string]any { return nil }}}
	market := []generator.Descriptor{{ID: "x", Name: "X2"}}

	Resolve(builtins, market, nil)

	assert.Nil(t, market[0].Payload)
	assert.Equal(t, "X", builtins[0].Name)
}

func TestResolveDefault(t *testing.T) {
	_, ok := Resolve(nil, []generator.Descriptor{{ID: "m"}}, nil).Default()
	assert.False(t, ok)

	d, ok := Resolve(Builtins(generator.CategoryPython, nil), nil, nil).Default()
	require.True(t, ok)
	assert.Equal(t, "sdv-copilot-python", d.ID)
}

func TestBuiltins(t *testing.T) {
	list := Builtins(generator.CategoryDashboard, map[string]BuiltinOverride{
		"mock-dashboard": {Samples: "custom"},
	})

	require.Len(t, list, 2)
	assert.Equal(t, "sdv-copilot-dashboard", list[0].ID)
	assert.True(t, list[0].Reserved)
	assert.True(t, list[0].UsesFallback())
	assert.False(t, list[1].Reserved)
	assert.True(t, list[1].IsMock)
	assert.Equal(t, "custom", list[1].Samples)
	for _, d := range list {
		assert.True(t, d.Valid(), d.ID)
	}
}
