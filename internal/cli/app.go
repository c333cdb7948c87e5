package cli

import (
	"context"
	"fmt"

	"github.com/gioppoluca/foundry-graph-sub000/internal/config"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/cache"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/export"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/registry"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer/variants"
)

// app bundles the wired dependencies every command works against.
type app struct {
	cfg      config.Config
	cache    cache.Cache
	store    registry.Store
	registry *registry.Registry
	exporter *export.Exporter
}

// newApp builds the application from configuration: store backend, cache
// backend, registry, and exporter. Close must be called when done.
func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	c, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	keyer := cache.NewDefaultKeyer()
	cached := registry.NewCached(store, c, keyer, 0)

	reg := registry.New(cached, document.BuiltinTypes(), variants.All(),
		registry.WithAdmins(cfg.Admins...))
	exp := export.New(variants.All(), export.WithCache(c, keyer))

	return &app{cfg: cfg, cache: c, store: cached, registry: reg, exporter: exp}, nil
}

func buildStore(ctx context.Context, cfg config.Config) (registry.Store, error) {
	switch cfg.Storage.Backend {
	case "file":
		return registry.NewFileStore(cfg.GraphDir())
	case "memory":
		return registry.NewMemoryStore(), nil
	case "mongo":
		return registry.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func buildCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "file":
		return cache.NewFileCache(cfg.CacheDir())
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Close releases store and cache resources.
func (a *app) Close() error {
	storeErr := a.store.Close()
	cacheErr := a.cache.Close()
	if storeErr != nil {
		return storeErr
	}
	return cacheErr
}
