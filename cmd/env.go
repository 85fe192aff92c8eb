package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvrgpt/internal/cache"
	"github.com/sells-group/cvrgpt/internal/provider"
)

// env holds the wired runtime dependencies shared by the commands.
type env struct {
	store    cache.Store
	memo     *cache.Memoizer
	provider provider.Provider
}

// initEnv builds the cache backend and the configured provider. The caller
// owns Close.
func initEnv(ctx context.Context) (*env, error) {
	var store cache.Store
	var err error
	switch cfg.Cache.Backend {
	case "", "memory":
		store = cache.NewMemory()
	case "sqlite":
		store, err = cache.NewSQLite(cfg.Cache.SQLitePath)
	case "postgres":
		store, err = cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open cache store")
	}

	memo := cache.NewMemoizer(store)
	p, err := provider.New(provider.Config{
		Kind:            cfg.Provider.Kind,
		FixtureDir:      cfg.Provider.FixtureDir,
		IndexBaseURL:    cfg.Provider.IndexBaseURL,
		RegnskabBaseURL: cfg.Provider.RegnskabBaseURL,
		Token:           cfg.Provider.Token,
		User:            cfg.Provider.User,
		Password:        cfg.Provider.Password,
		TTL:             cfg.ProviderTTL(),
	}, memo)
	if err != nil {
		store.Close()
		return nil, err
	}

	zap.L().Info("provider ready",
		zap.String("provider", p.Name()),
		zap.String("cache_backend", cfg.Cache.Backend))

	return &env{store: store, memo: memo, provider: p}, nil
}

func (e *env) Close() {
	e.store.Close()
}
