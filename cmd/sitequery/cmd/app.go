package cmd

import (
	"context"
	"log/slog"

	"github.com/sitequery/sitequery/internal/chunk"
	"github.com/sitequery/sitequery/internal/config"
	"github.com/sitequery/sitequery/internal/embed"
	"github.com/sitequery/sitequery/internal/fetch"
	"github.com/sitequery/sitequery/internal/index"
	"github.com/sitequery/sitequery/internal/llm"
	"github.com/sitequery/sitequery/internal/logging"
	"github.com/sitequery/sitequery/internal/search"
	"github.com/sitequery/sitequery/internal/server"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/suggest"
	"github.com/sitequery/sitequery/internal/vector"
)

// app holds the assembled components. Optional dependencies are nil when
// not configured; the pipelines degrade to lexical-only behavior.
type app struct {
	cfg      config.Config
	store    *store.Store
	vec      *vector.Index
	embedder embed.Embedder
	llm      llm.Service
	engine   *search.Engine
	coord    *index.Coordinator
	tracker  *suggest.Tracker
}

// loadApp reads configuration, installs logging, and wires everything.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return buildApp(cfg)
}

func buildApp(cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}
	a.store = store.New(cfg.Search.MaxTFIDFFeatures)

	vec, err := vector.New(vector.Config{
		Host:       cfg.Vector.Host,
		Port:       cfg.Vector.Port,
		APIKey:     cfg.Vector.APIKey,
		UseTLS:     cfg.Vector.UseTLS,
		Collection: cfg.Vector.Collection,
		Dimensions: cfg.Embed.Dimensions,
		BatchSize:  cfg.Vector.BatchSize,
	})
	if err != nil {
		slog.Warn("vector index unavailable, running lexical-only",
			slog.String("error", err.Error()))
	} else {
		a.vec = vec
	}

	if cfg.Embed.APIKey != "" || cfg.Embed.BaseURL != "" {
		client := embed.NewClient(embed.Config{
			APIKey:     cfg.Embed.APIKey,
			BaseURL:    cfg.Embed.BaseURL,
			Model:      cfg.Embed.Model,
			Dimensions: cfg.Embed.Dimensions,
		})
		a.embedder = embed.NewCachedEmbedder(client, cfg.Embed.CacheSize, 0)
	}

	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		a.llm = llm.NewClient(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			MaxInFlight: cfg.LLM.MaxInFlight,
			QueueLimit:  cfg.LLM.QueueLimit,
		})
	}

	a.tracker = suggest.New(suggest.Config{
		RedisAddr:     cfg.Suggest.RedisAddr,
		RedisPassword: cfg.Suggest.RedisPassword,
		MaxTracked:    cfg.Suggest.MaxTracked,
	})

	// Interface slots stay genuinely nil when the dependency is absent.
	var vs search.VectorSearcher
	var vw index.VectorWriter
	if a.vec != nil {
		vs = a.vec
		vw = a.vec
	}
	var qe search.QueryEmbedder
	if a.embedder != nil {
		qe = a.embedder
	}

	a.engine = search.NewEngine(a.store, vs, qe, a.llm, search.Config{
		RequestTimeout:  cfg.Server.RequestTimeout,
		DefaultAIWeight: cfg.Search.DefaultAIWeight,
		RRFConstant:     cfg.Search.RRFConstant,
		RerankTopM:      cfg.Search.RerankTopM,
		MaxVariants:     cfg.Search.MaxVariants,
		RetrievalLimit:  cfg.Search.RetrievalLimit,
		VariantWorkers:  cfg.Search.VariantWorkers,
		AnswerSources:   cfg.Search.AnswerSources,
	})

	fetcher := fetch.New(fetch.Config{
		BaseURL:     cfg.Content.BaseURL,
		PageSize:    cfg.Content.PageSize,
		MaxPages:    cfg.Content.MaxPages,
		MaxInFlight: cfg.Content.MaxInFlight,
		Timeout:     cfg.Content.FetchTimeout,
	})
	chunker := chunk.New(chunk.Options{
		ChunkSize: cfg.Index.ChunkSize,
		Overlap:   cfg.Index.ChunkOverlap,
	})
	a.coord = index.New(fetcher, a.store, chunker, a.embedder, vw, index.Config{
		Types:      cfg.Content.Types,
		EmbedBatch: cfg.Index.EmbedBatch,
	})
	return a, nil
}

// probes builds the health checks for the optional dependencies.
func (a *app) probes() map[string]server.Prober {
	probes := map[string]server.Prober{}
	if a.vec != nil {
		probes["vector-db"] = a.vec.Available
	}
	if a.embedder != nil {
		probes["embedder"] = a.embedder.Available
	}
	if a.llm != nil {
		probes["llm"] = func(context.Context) bool { return a.llm.Available() }
	}
	if a.tracker != nil {
		probes["suggest"] = a.tracker.Available
	}
	return probes
}
