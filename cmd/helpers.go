package cmd

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/api"
	"github.com/ziadkadry99/partsdesk/internal/audit"
	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/compat"
	"github.com/ziadkadry99/partsdesk/internal/config"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
	"github.com/ziadkadry99/partsdesk/internal/db"
	"github.com/ziadkadry99/partsdesk/internal/embeddings"
	"github.com/ziadkadry99/partsdesk/internal/indexer"
	"github.com/ziadkadry99/partsdesk/internal/llm"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/metrics"
	"github.com/ziadkadry99/partsdesk/internal/orchestrator"
	"github.com/ziadkadry99/partsdesk/internal/respcache"
	"github.com/ziadkadry99/partsdesk/internal/retrieval"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

// loadConfig loads and validates the config and installs the configured
// logger as the zap global.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, eris.Wrapf(err, "loading config (run `partsdesk init` to create %s)", cfgFile)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid config")
	}

	_, flush, err := logging.Install(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	flushLogs = flush
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	return embeddings.New(string(cfg.EmbeddingProvider), cfg.EmbeddingModel, "")
}

// createLLMProviderFromConfig creates the generation provider, rate limited
// when configured. Provider "none" yields a nil provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	if cfg.Provider == config.ProviderNone {
		return nil, nil
	}
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM > 0 {
		p = llm.NewRateLimitedProvider(p, cfg.RateLimitRPM)
	}
	return p, nil
}

// openCatalog opens the configured catalog. The sqlite catalog shares the
// local database.
func openCatalog(ctx context.Context, cfg *config.Config, database *db.DB) (catalog.Store, api.HealthCheck, func(), error) {
	switch cfg.Catalog.Driver {
	case "postgres":
		pg, err := catalog.NewPostgres(ctx, cfg.Catalog.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg.Ping, pg.Close, nil
	default:
		return catalog.NewSQLiteStore(database), database.PingContext, func() {}, nil
	}
}

// openCache opens the configured response cache. Backend "off" yields a nil
// cache.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (respcache.Cache, api.HealthCheck, func(), error) {
	switch cfg.Cache.Backend {
	case "off":
		return nil, nil, func() {}, nil
	case "redis":
		client := respcache.NewRedisClient(respcache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		r := respcache.NewRedis(client, cfg.Cache.Prefix, cfg.Cache.TTL, logger)
		if err := r.Ping(ctx); err != nil {
			logger.Warn("redis cache unreachable at start-up", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		}
		return r, r.Ping, func() { _ = r.Close() }, nil
	default:
		return respcache.NewMemory(cfg.Cache.TTL), nil, func() {}, nil
	}
}

// openVectors creates the vector store and loads a persisted index when one
// exists. An empty store makes retrieval fall back to catalog keywords.
func openVectors(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder, logger *zap.Logger) (*vectordb.ChromemStore, error) {
	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, eris.Wrap(err, "creating vector store")
	}
	dir := indexer.VectorDir(cfg.DataDir)
	if !vectordb.Exists(dir) {
		logger.Info("no vector index found, semantic search disabled until `partsdesk index` runs", zap.String("dir", dir))
		return store, nil
	}
	if err := store.Load(ctx, dir); err != nil {
		logger.Warn("could not load vector index", zap.String("dir", dir), zap.Error(err))
	}
	return store, nil
}

// stack is every collaborator a resolving command needs.
type stack struct {
	cfg       *config.Config
	logger    *zap.Logger
	database  *db.DB
	catalog   catalog.Store
	vectors   *vectordb.ChromemStore
	provider  llm.Provider
	cache     respcache.Cache
	contexts  *convctx.Store
	compat    *compat.Engine
	router    *router.Router
	audit     *audit.Store
	checks    map[string]api.HealthCheck
	closers   []func()
	generator string
}

// buildStack wires the resolver from config: local database, catalog,
// vectors, generator, cache and the tiered router on top.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	logger := zap.L()
	s := &stack{cfg: cfg, logger: logger, checks: map[string]api.HealthCheck{}}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "creating data dir")
	}
	database, err := db.Open(cfg.SQLitePath())
	if err != nil {
		return nil, err
	}
	s.database = database
	s.closers = append(s.closers, func() { database.Close() })
	s.checks["database"] = database.PingContext

	cat, catCheck, closeCat, err := openCatalog(ctx, cfg, database)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.catalog = cat
	s.closers = append(s.closers, closeCat)
	if cfg.Catalog.Driver == "postgres" {
		s.checks["catalog"] = catCheck
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		s.Close()
		return nil, eris.Wrap(err, "creating embedder")
	}
	if s.vectors, err = openVectors(ctx, cfg, embedder, logger); err != nil {
		s.Close()
		return nil, err
	}

	s.provider, err = createLLMProviderFromConfig(cfg)
	if err != nil {
		// The pipeline degrades to triage answers without a generator.
		logger.Warn("generation disabled", zap.String("provider", string(cfg.Provider)), zap.Error(err))
		s.provider = nil
	}
	s.generator = "none"
	if s.provider != nil {
		s.generator = s.provider.Name() + "/" + cfg.Model
	}

	cache, cacheCheck, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cache = cache
	s.closers = append(s.closers, closeCache)
	if cacheCheck != nil {
		s.checks["cache"] = cacheCheck
	}

	s.contexts = convctx.NewStore(convctx.NewSQLRepository(database), logger)
	s.compat = compat.NewEngine(cat,
		compat.WithDefaultConfidence(cfg.Compat.DefaultCrossBrandConfidence),
		compat.WithLogger(logger))

	searcher := retrieval.New(cat,
		retrieval.WithVectors(s.vectors),
		retrieval.WithTimeout(cfg.Orchestrator.SearchTimeout),
		retrieval.WithLogger(logger))
	pipeline := orchestrator.New(searcher, s.provider,
		orchestrator.WithLimits(orchestrator.Limits{
			Parts:    cfg.Orchestrator.PartsLimit,
			Repairs:  cfg.Orchestrator.RepairsLimit,
			Articles: cfg.Orchestrator.ArticlesLimit,
		}),
		orchestrator.WithGeneration(cfg.Orchestrator.MaxTokens, cfg.Orchestrator.Temperature),
		orchestrator.WithLogger(logger))

	routerOpts := []router.Option{
		router.WithRequestTimeout(cfg.Router.RequestTimeout),
		router.WithLogger(logger),
		router.WithMetrics(metrics.Prometheus{}),
	}
	if cfg.Audit.Enabled {
		s.audit = audit.NewStore(database)
		routerOpts = append(routerOpts, router.WithAudit(s.audit))
	}

	s.router, err = router.New(router.Deps{
		Contexts: s.contexts,
		Cache:    cache,
		Compat:   s.compat,
		Parts:    cat,
		Pipeline: pipeline,
	}, routerOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
