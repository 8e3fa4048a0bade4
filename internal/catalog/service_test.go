package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/genpad/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMarketplace struct {
	list []generator.Descriptor
	err  error
}

func (s *stubMarketplace) List(_ context.Context, category generator.Category) ([]generator.Descriptor, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []generator.Descriptor
	for _, d := range s.list {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out, nil
}

type stubAssets struct {
	assets []generator.Asset
	err    error
	owners []string
}

func (s *stubAssets) ListGeneratorAssets(_ context.Context, owner string, category generator.Category) ([]generator.Asset, error) {
	s.owners = append(s.owners, owner)
	if s.err != nil {
		return nil, s.err
	}
	var out []generator.Asset
	for _, a := range s.assets {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestService() (*Service, *stubMarketplace, *stubAssets) {
	market := &stubMarketplace{list: []generator.Descriptor{
		{ID: "m-helper", Name: "Vehicle Helper", Category: generator.CategoryPython, EndpointURL: "https://helper"},
		{ID: "m-dup", Name: "SDV-Copilot Pro", Category: generator.CategoryPython, EndpointURL: "https://dup"},
	}}
	assets := &stubAssets{assets: []generator.Asset{
		{ID: "a-1", Name: "Mine", Category: generator.CategoryPython, Data: `{"url":"https://mine","method":"GET"}`},
	}}
	return NewService(market, assets, NewMemorySelectionStore(), nil), market, assets
}

func TestLoadDefaultsToFirstBuiltin(t *testing.T) {
	svc, _, assets := newTestService()

	view, err := svc.Load(context.Background(), "user-1", generator.CategoryPython)
	require.NoError(t, err)

	require.NotNil(t, view.Selected)
	assert.Equal(t, "sdv-copilot-python", view.Selected.ID)
	assert.False(t, view.Restored)
	assert.Equal(t, []string{"sdv-copilot-python", "mock-python", "m-helper", "a-1"}, ids(view.Selectable))
	assert.Equal(t, []string{"m-helper"}, ids(view.VisibleMarketplace))
	assert.Equal(t, []string{"user-1"}, assets.owners)
}

func TestSelectionSurvivesReload(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	chosen, err := svc.Select(ctx, "user-1", generator.CategoryPython, "m-helper")
	require.NoError(t, err)
	assert.Equal(t, "m-helper", chosen.ID)

	view, err := svc.Load(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "m-helper", view.Selected.ID)
	assert.True(t, view.Restored)

	other, err := svc.Load(ctx, "user-2", generator.CategoryPython)
	require.NoError(t, err)
	assert.Equal(t, "sdv-copilot-python", other.Selected.ID)

	sel, ok, err := svc.Selected(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "m-helper", sel.ID)
}

func TestStaleSelectionRestoredAsIs(t *testing.T) {
	svc, market, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Select(ctx, "user-1", generator.CategoryPython, "m-helper")
	require.NoError(t, err)

	market.list = nil

	view, err := svc.Load(ctx, "user-1", generator.CategoryPython)
	require.NoError(t, err)
	require.NotNil(t, view.Selected)
	assert.Equal(t, "m-helper", view.Selected.ID)
	assert.Equal(t, "https://helper", view.Selected.EndpointURL)

	d, err := svc.Resolve(ctx, "user-1", generator.CategoryPython, "")
	require.NoError(t, err)
	assert.Equal(t, "m-helper", d.ID)
}

func TestInvalidStoredSelectionIgnored(t *testing.T) {
	store := NewMemorySelectionStore()
	require.NoError(t, store.Save(context.Background(), "user-1", generator.Descriptor{ID: "", Category: generator.CategoryPython}))
	svc := NewService(nil, nil, store, nil)

	view, err := svc.Load(context.Background(), "user-1", generator.CategoryPython)
	require.NoError(t, err)
	assert.Equal(t, "sdv-copilot-python", view.Selected.ID)
	assert.False(t, view.Restored)
}

func TestSelectUnknownGenerator(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Select(context.Background(), "user-1", generator.CategoryPython, "m-dup")
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestLoadUnknownCategory(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Load(context.Background(), "user-1", "GenAI_Rust")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestLoadToleratesFailingSources(t *testing.T) {
	market := &stubMarketplace{err: errors.New("marketplace down")}
	assets := &stubAssets{err: errors.New("db down")}
	svc := NewService(market, assets, NewMemorySelectionStore(), nil)

	view, err := svc.Load(context.Background(), "user-1", generator.CategoryWidget)
	require.NoError(t, err)
	assert.Equal(t, []string{"sdv-copilot-widget", "mock-widget"}, ids(view.Selectable))
}

func TestResolveRefreshesBuiltinSelection(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Select(ctx, "user-1", generator.CategoryPython, "sdv-copilot-python")
	require.NoError(t, err)

	d, err := svc.Resolve(ctx, "user-1", generator.CategoryPython, "")
	require.NoError(t, err)
	require.NotNil(t, d.Payload, "live built-in carries its payload builder")
	assert.Equal(t, map[string]any{"message": "hi"}, d.BuildPayload("hi"))

	_, err = svc.Resolve(ctx, "user-1", generator.CategoryPython, "nope")
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}
