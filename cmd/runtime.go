package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/genpad/internal/catalog"
	"github.com/genpad/internal/config"
	"github.com/genpad/internal/dispatch"
	"github.com/genpad/internal/docsync"
	"github.com/genpad/internal/logging"
	"github.com/genpad/internal/marketplace"
	"github.com/genpad/internal/retry"
	"github.com/genpad/internal/siteconfig"
	"github.com/genpad/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

// runtime holds the wired services shared by the commands
type runtime struct {
	cfg        *config.Config
	pool       *pgxpool.Pool
	catalog    *catalog.Service
	dispatcher *dispatch.Dispatcher
	documents  *store.DocumentStore
	sink       *docsync.CacheSink
	closers    []func()
}

type runtimeOptions struct {
	requireDatabase bool
	capabilities    dispatch.CapabilityChecker
}

// loadConfig reads and validates the configuration named by --config and
// configures logging from it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Log.Level
	if c.Bool("verbose") {
		level = "debug"
	}
	if err := logging.Setup(level, cfg.Log.Format, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{
		cfg:  cfg,
		sink: docsync.NewCacheSink(cfg.DocSync.SinkTTL),
	}

	var configSource siteconfig.Source
	var assets catalog.AssetSource

	dbURL, err := store.ResolveDatabaseURL(cfg.Database.URL)
	switch {
	case err == nil && dbURL != "":
		pool, err := store.Open(ctx, dbURL)
		if err != nil {
			return nil, err
		}
		rt.pool = pool
		rt.closers = append(rt.closers, pool.Close)

		if cfg.Database.Migrate {
			if err := store.ApplyMigrations(ctx, pool); err != nil {
				rt.Close()
				return nil, err
			}
		}

		rt.documents = store.NewDocumentStore(pool)
		configSource = store.NewSiteConfigStore(pool)
		assets = store.NewAssetStore(pool)
	case opts.requireDatabase:
		if err == nil {
			err = errors.New("DATABASE_URL is empty")
		}
		return nil, fmt.Errorf("database is required: %w", err)
	default:
		log.Warn().Err(err).Msg("No database configured; user-defined generators and site config are unavailable")
	}

	var selections catalog.SelectionStore = catalog.NewMemorySelectionStore()
	if cfg.Redis.URL != "" {
		redisStore, err := catalog.NewRedisSelectionStore(cfg.Redis.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = redisStore.Close() })
		selections = redisStore
	}

	market := marketplace.New(marketplace.Config{
		BaseURL:           cfg.Marketplace.URL,
		Token:             cfg.Marketplace.Token,
		Timeout:           cfg.Marketplace.Timeout,
		CacheTTL:          cfg.Marketplace.CacheTTL,
		RequestsPerSecond: cfg.Marketplace.RequestsPerSecond,
	})
	if !market.Enabled() {
		log.Info().Msg("Marketplace URL not set; only built-in and user generators are listed")
	}

	rt.catalog = catalog.NewService(market, assets, selections, builtinOverrides(cfg))

	var limiter *rate.Limiter
	if cfg.Dispatch.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Dispatch.RequestsPerSecond), max(cfg.Dispatch.Burst, 1))
	}
	rt.dispatcher = dispatch.New(dispatch.Options{
		Timeout:      cfg.Dispatch.Timeout,
		MockDelay:    cfg.Dispatch.MockDelay,
		Limiter:      limiter,
		Capabilities: opts.capabilities,
		Config:       siteconfig.New(configSource, cfg.SiteConfig.CacheTTL, cfg.FallbackDefaults(dispatch.FallbackEndpointKey)),
	})

	return rt, nil
}

// syncOptions returns the synchronizer tuning from config
func (rt *runtime) syncOptions() docsync.Options {
	retryConfig := retry.PersistRetryConfig()
	return docsync.Options{
		Heartbeat:    rt.cfg.DocSync.Heartbeat,
		WriteTimeout: rt.cfg.DocSync.WriteTimeout,
		Retry:        &retryConfig,
	}
}

// Close releases connections in reverse order of creation
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func builtinOverrides(cfg *config.Config) map[string]catalog.BuiltinOverride {
	out := make(map[string]catalog.BuiltinOverride, len(cfg.Builtins))
	for id, b := range cfg.Builtins {
		out[id] = catalog.BuiltinOverride{
			EndpointURL: b.EndpointURL,
			AuthToken:   b.AuthToken,
			Samples:     b.Samples,
		}
	}
	return out
}
