// Package server exposes the search and indexing pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitequery/sitequery/internal/index"
	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/search"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/suggest"
	"github.com/sitequery/sitequery/internal/vector"
)

// Searcher runs search requests. Implemented by search.Engine.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Indexer runs the write path. Implemented by index.Coordinator.
type Indexer interface {
	Index(ctx context.Context, types []string, forceFull bool) (*index.Progress, error)
	IndexSingle(ctx context.Context, doc *model.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

// Prober reports a dependency's liveness for the health endpoint.
type Prober func(ctx context.Context) bool

// Config configures the HTTP server.
type Config struct {
	Addr            string
	RequestTimeout  time.Duration
	RateLimitPerMin int
}

// Server is the HTTP front of the system.
type Server struct {
	cfg      Config
	searcher Searcher
	indexer  Indexer
	store    *store.Store
	vec      *vector.Index
	tracker  *suggest.Tracker
	probes   map[string]Prober

	indexing     atomic.Bool
	lastProgress atomic.Pointer[index.Progress]
	httpSrv      *http.Server
}

// New assembles the server. The vector index and tracker may be nil.
func New(cfg Config, searcher Searcher, indexer Indexer, st *store.Store, vec *vector.Index, tracker *suggest.Tracker, probes map[string]Prober) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = search.DefaultRequestTimeout
	}
	return &Server{
		cfg:      cfg,
		searcher: searcher,
		indexer:  indexer,
		store:    st,
		vec:      vec,
		tracker:  tracker,
		probes:   probes,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), corsMiddleware())
	r.Use(newRateLimiter(s.cfg.RateLimitPerMin).middleware())

	r.POST("/search", s.handleSearch)
	r.POST("/index", s.handleIndex)
	r.POST("/index-single", s.handleIndexSingle)
	r.GET("/document/:id", s.handleGetDocument)
	r.DELETE("/document/:id", s.handleDeleteDocument)
	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	r.GET("/suggest", s.handleSuggest)
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
