package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitequery/sitequery/internal/embed"
	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/vector"
)

// Retrieval defaults.
const (
	DefaultRetrievalLimit = 50
	DefaultVariantWorkers = 8
)

// DocumentStore is the lexical side of retrieval.
type DocumentStore interface {
	TFIDFSearch(queries []string, limit int) []store.Hit
	Lookup(id string) *model.Document
	Stats() store.Stats
}

// VectorSearcher is the semantic side of retrieval.
type VectorSearcher interface {
	SemanticSearch(ctx context.Context, vec []float32, limit int, types []string) ([]vector.Result, error)
}

// QueryEmbedder turns query text into a vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever fans query variants out over lexical and semantic search and
// merges the per-document scores.
type Retriever struct {
	store    DocumentStore
	vec      VectorSearcher
	embedder QueryEmbedder
	limit    int
	workers  int
}

// NewRetriever wires the two retrieval streams. The vector searcher and
// embedder may be nil, leaving lexical-only retrieval.
func NewRetriever(ds DocumentStore, vs VectorSearcher, qe QueryEmbedder, limit, workers int) *Retriever {
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	if workers <= 0 {
		workers = DefaultVariantWorkers
	}
	return &Retriever{store: ds, vec: vs, embedder: qe, limit: limit, workers: workers}
}

// Retrieve runs every variant against both streams in parallel and merges
// results per document, keeping the maximum boosted score per stream. The
// semantic stream degrades to nothing on embedder or vector failures.
// The returned candidates are filtered but unordered.
func (r *Retriever) Retrieve(ctx context.Context, variants []string, filters Filters) (map[string]*candidate, bool) {
	now := time.Now()
	degraded := false
	cands := make(map[string]*candidate)
	var mu sync.Mutex

	// merge keeps the max boosted score for one stream of one document. The
	// boost factors kept are those of the winning lexical variant, or the
	// winning semantic variant when the document never matched lexically.
	merge := func(docID string, boosted float64, bf boostFactors, semantic bool) {
		doc := r.store.Lookup(docID)
		if doc == nil || !matchesFilters(doc, filters) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		c, ok := cands[docID]
		if !ok {
			c = &candidate{doc: doc, fieldBoost: 1, freshnessBoost: 1, taxonomyBoost: 1}
			cands[docID] = c
		}
		keepFactors := false
		if semantic {
			if boosted > c.semantic {
				c.semantic = boosted
				keepFactors = c.lexical == 0
			}
		} else if boosted > c.lexical {
			c.lexical = boosted
			keepFactors = true
		}
		if keepFactors {
			c.fieldBoost = bf.field
			c.freshnessBoost = bf.freshness
			c.taxonomyBoost = bf.taxonomy
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, variant := range variants {
		tokens := boostTokens(variant)

		g.Go(func() error {
			for _, hit := range r.store.TFIDFSearch([]string{variant}, r.limit) {
				doc := r.store.Lookup(hit.DocumentID)
				if doc == nil {
					continue
				}
				boosted, bf := applyBoosts(hit.Score, doc, variant, tokens, now)
				merge(hit.DocumentID, boosted, bf, false)
			}
			return nil
		})

		if r.vec == nil || r.embedder == nil {
			continue
		}
		g.Go(func() error {
			vec, err := r.embedder.EmbedQuery(gctx, variant)
			if err != nil {
				slog.Warn("query embedding failed, lexical only",
					slog.String("variant", variant), slog.String("error", err.Error()))
				mu.Lock()
				degraded = true
				mu.Unlock()
				return nil
			}
			if embed.IsZero(vec) {
				return nil
			}
			hits, err := r.vec.SemanticSearch(gctx, vec, r.limit, filters.Types)
			if err != nil {
				slog.Warn("semantic search failed, lexical only",
					slog.String("variant", variant), slog.String("error", err.Error()))
				mu.Lock()
				degraded = true
				mu.Unlock()
				return nil
			}
			for _, hit := range hits {
				doc := r.store.Lookup(hit.DocumentID)
				if doc == nil {
					continue
				}
				boosted, bf := applyBoosts(hit.Score, doc, variant, tokens, now)
				merge(hit.DocumentID, boosted, bf, true)
			}
			return nil
		})
	}
	_ = g.Wait()

	return cands, degraded
}

// matchesFilters applies the request filters against document metadata.
func matchesFilters(doc *model.Document, f Filters) bool {
	if len(f.Types) > 0 && !containsWord(f.Types, doc.Type) {
		return false
	}
	if f.DateFrom != nil || f.DateTo != nil {
		if doc.PublishedAt == nil {
			return false
		}
		if f.DateFrom != nil && doc.PublishedAt.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && doc.PublishedAt.After(*f.DateTo) {
			return false
		}
	}
	if f.Author != "" && !strings.EqualFold(f.Author, doc.Author) {
		return false
	}
	if len(f.Categories) > 0 && !anyTermMatch(doc.Categories, f.Categories) {
		return false
	}
	if len(f.Tags) > 0 && !anyTermMatch(doc.Tags, f.Tags) {
		return false
	}
	return true
}

func anyTermMatch(terms []model.Term, wanted []string) bool {
	for _, t := range terms {
		for _, w := range wanted {
			if strings.EqualFold(t.Slug, w) || strings.EqualFold(t.Name, w) {
				return true
			}
		}
	}
	return false
}
