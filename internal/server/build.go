package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/backend"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/config"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/convlog"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/httpclient"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/market"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/oracle"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/retrieval"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/source"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/storage"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/tools"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/worldcache"
)

// Knowledge is what both knowledge backends provide.
type Knowledge interface {
	tools.KnowledgeStore
	retrieval.KnowledgeIndex
}

// App is a wired set of services plus whatever must be closed on shutdown.
type App struct {
	Deps
	closers []func() error
}

// Close releases the knowledge store and listing cache connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build wires every service from cfg.
func Build(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	app := &App{}

	app.World = worldcache.New(worldOptions(cfg, log))

	var cache market.ListingCache = market.NewLRUCache(cfg.Market.LRUSize, config.Mins(cfg.Market.TTLMins))
	if cfg.Market.RedisAddr != "" {
		rc, err := market.NewRedisCache(ctx, cfg.Market.RedisAddr, cfg.Market.RedisPrefix, config.Mins(cfg.Market.TTLMins), log)
		if err != nil {
			log.Warn("redis listing cache unavailable, using in-process cache", "addr", cfg.Market.RedisAddr, "error", err)
		} else {
			cache = rc
			app.closers = append(app.closers, rc.Close)
		}
	}
	app.Market = market.NewService(app.World, cache, log)

	var know Knowledge
	switch cfg.Knowledge.Backend {
	case "sqlite":
		st, err := storage.Open(cfg.Knowledge.DataDir, cfg.Knowledge.Dimension)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open knowledge store: %w", err)
		}
		app.closers = append(app.closers, st.Close)
		know = st
	case "http":
		if cfg.Knowledge.BaseURL == "" {
			app.Close()
			return nil, errors.New("knowledge backend http needs knowledge.base_url")
		}
		client := httpclient.New(httpclient.Config{Token: config.Secret(cfg.Knowledge.TokenEnv)})
		know = backend.New(cfg.Knowledge.BaseURL, cfg.Knowledge.Dimension, client)
	default:
		app.Close()
		return nil, fmt.Errorf("unknown knowledge backend %q (use sqlite or http)", cfg.Knowledge.Backend)
	}
	app.Knowledge = know

	// Interface values stay nil when no embedder is configured.
	var (
		engineEmbedder retrieval.Embedder
		toolEmbedder   tools.Embedder
	)
	if cfg.Embedder.BaseURL != "" {
		client := httpclient.New(httpclient.Config{
			Token:   config.Secret(cfg.Embedder.APIKeyEnv),
			Timeout: config.Secs(cfg.Embedder.TimeoutSecs),
		})
		emb := oracle.NewEmbedder(oracle.Config{
			BaseURL:   cfg.Embedder.BaseURL,
			Model:     cfg.Embedder.Model,
			Dimension: cfg.Knowledge.Dimension,
		}, client)
		engineEmbedder, toolEmbedder = emb, emb
	}
	app.Embedder = toolEmbedder

	app.Conversations = convlog.New(cfg.Retrieval.ConversationCapacity)
	app.Retrieval = retrieval.New(app.Conversations, know, engineEmbedder, retrieval.Options{
		EmbedTimeout:  config.Secs(cfg.Retrieval.EmbedTimeoutSecs),
		SearchTimeout: config.Secs(cfg.Retrieval.SearchTimeoutSecs),
		DefaultK:      cfg.Retrieval.DefaultK,
		Logger:        log,
	})

	log.Info("services wired",
		"knowledge_backend", cfg.Knowledge.Backend,
		"embedder", cfg.Embedder.BaseURL != "",
		"primary", cfg.Primary.BaseURL,
		"fallback", cfg.Fallback.BaseURL,
		"redis", cfg.Market.RedisAddr != "",
	)
	return app, nil
}

func worldOptions(cfg *config.AppConfig, log *logger.Logger) worldcache.Options {
	opts := worldcache.Options{
		SnapshotDir:     cfg.Cache.SnapshotDir,
		WriteBack:       cfg.Cache.WriteBack,
		FetchTimeout:    config.Secs(cfg.Cache.FetchTimeoutSecs),
		RefreshInterval: config.Mins(cfg.Cache.RefreshIntervalMins),
		Logger:          log.With("service", "WorldCache"),
	}
	if cfg.Cache.SnapshotDir != "" {
		opts.Snapshot = source.NewSnapshotSource(cfg.Cache.SnapshotDir)
	}
	if cfg.Primary.BaseURL != "" {
		opts.Primary = source.NewHTTPSource("primary", cfg.Primary.BaseURL, source.PrimaryPaths, sourceClient(cfg.Primary))
	}
	if cfg.Fallback.BaseURL != "" {
		opts.Secondary = source.NewHTTPSource("provider", cfg.Fallback.BaseURL, source.ProviderPaths, sourceClient(cfg.Fallback))
	}
	return opts
}

func sourceClient(sc config.SourceConfig) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Token:      config.Secret(sc.TokenEnv),
		Timeout:    config.Secs(sc.TimeoutSecs),
		MaxRetries: sc.MaxRetries,
	})
}
