package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/search"
)

func (s *Server) handleSearch(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "malformed request body", nil)
		return
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	resp, err := s.searcher.Search(c.Request.Context(), req)
	if err != nil {
		respondFailure(c, err)
		return
	}
	if s.tracker != nil {
		s.tracker.Record(c.Request.Context(), req.Query)
	}
	c.JSON(http.StatusOK, resp)
}

type indexRequest struct {
	Types     []string `json:"types,omitempty"`
	ForceFull bool     `json:"forceFull,omitempty"`
}

// handleIndex starts an indexing run in the background. Only one run may
// be active at a time.
func (s *Server) handleIndex(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "malformed request body", nil)
		return
	}
	if !s.indexing.CompareAndSwap(false, true) {
		respondError(c, http.StatusConflict, "ERR_VALIDATION", "indexing already in progress", nil)
		return
	}

	go func() {
		defer s.indexing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		progress, err := s.indexer.Index(ctx, req.Types, req.ForceFull)
		if err != nil {
			slog.Error("background indexing failed", slog.String("error", err.Error()))
			return
		}
		s.lastProgress.Store(progress)
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "status": "started"})
}

func (s *Server) handleIndexSingle(c *gin.Context) {
	var doc model.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "malformed document body", nil)
		return
	}
	if err := s.indexer.IndexSingle(c.Request.Context(), &doc); err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": doc.ID})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc := s.store.Lookup(c.Param("id"))
	if doc == nil {
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "document not found", map[string]string{"id": c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// handleDeleteDocument is idempotent: deleting an absent id still succeeds.
func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.indexer.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	components := gin.H{"store": "healthy"}
	status := "healthy"
	for name, probe := range s.probes {
		if probe(ctx) {
			components[name] = "healthy"
		} else {
			components[name] = "unavailable"
			status = "degraded"
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "components": components})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := gin.H{"store": s.store.Stats()}
	if s.vec != nil {
		if vs, err := s.vec.Stats(c.Request.Context()); err == nil {
			stats["vector"] = vs
		} else {
			stats["vector"] = gin.H{"error": err.Error()}
		}
	}
	if s.tracker != nil {
		stats["tracked_queries"] = s.tracker.Tracked()
	}
	if p := s.lastProgress.Load(); p != nil {
		stats["last_index"] = p
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleSuggest(c *gin.Context) {
	if s.tracker == nil {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}
	query := c.Query("query")
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 20 {
			limit = n
		}
	}
	suggestions := s.tracker.Suggest(c.Request.Context(), query, limit)
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
