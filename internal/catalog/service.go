package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/genpad/internal/generator"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownGenerator = errors.New("generator not found in catalog")
	ErrUnknownCategory  = errors.New("unknown generator category")
)

// MarketplaceSource lists published generators for a category
type MarketplaceSource interface {
	List(ctx context.Context, category generator.Category) ([]generator.Descriptor, error)
}

// AssetSource lists user-defined generator assets
type AssetSource interface {
	ListGeneratorAssets(ctx context.Context, owner string, category generator.Category) ([]generator.Asset, error)
}

// View is a loaded catalog for one scope and category
type View struct {
	Category generator.Category `json:"category"`
	Result
	Selected *generator.Descriptor `json:"selected,omitempty"`
	// Restored is true when Selected came from the selection store.
	Restored bool `json:"restored"`
}

// Service composes the three descriptor sources with the selection store
type Service struct {
	marketplace MarketplaceSource
	assets      AssetSource
	selections  SelectionStore
	overrides   map[string]BuiltinOverride
}

// NewService creates a catalog service. marketplace and assets may be nil.
func NewService(marketplace MarketplaceSource, assets AssetSource, selections SelectionStore, overrides map[string]BuiltinOverride) *Service {
	return &Service{
		marketplace: marketplace,
		assets:      assets,
		selections:  selections,
		overrides:   overrides,
	}
}

// Load fetches and merges the catalog, then restores the remembered selection
func (s *Service) Load(ctx context.Context, scope string, category generator.Category) (*View, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	var market []generator.Descriptor
	var user []generator.Descriptor

	g, gctx := errgroup.WithContext(ctx)
	if s.marketplace != nil {
		g.Go(func() error {
			list, err := s.marketplace.List(gctx, category)
			if err != nil {
				log.Warn().Err(err).
					Str("category", string(category)).
					Msg("Marketplace unavailable, continuing without it")
				return nil
			}
			market = list
			return nil
		})
	}
	if s.assets != nil {
		g.Go(func() error {
			assets, err := s.assets.ListGeneratorAssets(gctx, scope, category)
			if err != nil {
				log.Warn().Err(err).
					Str("scope", scope).
					Str("category", string(category)).
					Msg("Generator assets unavailable, continuing without them")
				return nil
			}
			user = generator.FromAssets(assets)
			return nil
		})
	}
	// Source goroutines swallow their errors so a single source never aborts the load.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view := &View{
		Category: category,
		Result:   Resolve(Builtins(category, s.overrides), market, user),
	}

	remembered, found, err := s.selections.Load(ctx, scope, category)
	if err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("Failed to load last used generator")
	}
	if found && remembered.Valid() {
		view.Selected = &remembered
		view.Restored = true
		return view, nil
	}

	if d, ok := view.Default(); ok {
		view.Selected = &d
	}
	return view, nil
}

// Select records a user-driven selection change
func (s *Service) Select(ctx context.Context, scope string, category generator.Category, id string) (generator.Descriptor, error) {
	view, err := s.Load(ctx, scope, category)
	if err != nil {
		return generator.Descriptor{}, err
	}

	d, ok := view.Find(id)
	if !ok {
		return generator.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownGenerator, id)
	}

	if err := s.selections.Save(ctx, scope, d); err != nil {
		return generator.Descriptor{}, fmt.Errorf("remember selection: %w", err)
	}

	log.Info().
		Str("scope", scope).
		Str("category", string(category)).
		Str("generator_id", d.ID).
		Msg("Generator selected")
	return d, nil
}

// Selected returns the current selection for scope and category, if any
func (s *Service) Selected(ctx context.Context, scope string, category generator.Category) (generator.Descriptor, bool, error) {
	view, err := s.Load(ctx, scope, category)
	if err != nil {
		return generator.Descriptor{}, false, err
	}
	if view.Selected == nil {
		return generator.Descriptor{}, false, nil
	}
	return *view.Selected, true, nil
}

// Resolve returns the descriptor to dispatch with: the selectable entry named
// by id, or the current selection when id is empty. A restored selection is
// refreshed from the live catalog when its ID is still present so that the
// built-in payload builder applies.
func (s *Service) Resolve(ctx context.Context, scope string, category generator.Category, id string) (generator.Descriptor, error) {
	view, err := s.Load(ctx, scope, category)
	if err != nil {
		return generator.Descriptor{}, err
	}

	if id == "" {
		if view.Selected == nil {
			return generator.Descriptor{}, fmt.Errorf("%w: no selection", ErrUnknownGenerator)
		}
		id = view.Selected.ID
		if d, ok := view.Find(id); ok {
			return d, nil
		}
		return *view.Selected, nil
	}

	d, ok := view.Find(id)
	if !ok {
		return generator.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownGenerator, id)
	}
	return d, nil
}
