// Package index coordinates the write path: fetch documents, chunk them,
// embed the chunks, and land the results in the document store and the
// vector index.
//
// Two modes exist. Incremental upserts extend the TF-IDF matrix against
// its frozen vocabulary and overwrite vector points by id. A full reindex
// builds everything aside and swaps it in atomically, so searches never
// see a half-built corpus.
package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/sitequery/sitequery/internal/chunk"
	"github.com/sitequery/sitequery/internal/embed"
	sqerrors "github.com/sitequery/sitequery/internal/errors"
	"github.com/sitequery/sitequery/internal/fetch"
	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/vector"
)

// DefaultEmbedBatch is how many chunk texts go to the embedder per call.
const DefaultEmbedBatch = 32

// Fetcher streams documents from the content source.
type Fetcher interface {
	Stream(ctx context.Context, types []string) (<-chan *model.Document, <-chan fetch.Report)
}

// VectorWriter is the write surface of the vector index.
type VectorWriter interface {
	EnsureCollection(ctx context.Context) error
	UpsertBatch(ctx context.Context, points []vector.Point) (int, error)
	Delete(ctx context.Context, documentID string) error
	BeginRebuild(ctx context.Context) error
	UpsertStaging(ctx context.Context, points []vector.Point) (int, error)
	CommitRebuild(ctx context.Context) error
	AbortRebuild(ctx context.Context)
}

// Progress reports the outcome of an indexing run.
type Progress struct {
	Indexed    int   `json:"indexed"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"durationMs"`
}

// Config tunes the coordinator.
type Config struct {
	Types      []string
	EmbedBatch int
}

// Coordinator owns the indexing write path.
type Coordinator struct {
	fetcher  Fetcher
	store    *store.Store
	chunker  *chunk.Chunker
	embedder embed.Embedder
	vec      VectorWriter
	cfg      Config
}

// New wires the coordinator. The embedder and vector writer may be nil,
// leaving a lexical-only index.
func New(f Fetcher, s *store.Store, ch *chunk.Chunker, em embed.Embedder, vw VectorWriter, cfg Config) *Coordinator {
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = DefaultEmbedBatch
	}
	return &Coordinator{fetcher: f, store: s, chunker: ch, embedder: em, vec: vw, cfg: cfg}
}

// Index fetches and indexes the given types (all configured types when
// empty). forceFull rebuilds everything aside and swaps atomically;
// otherwise documents upsert incrementally.
func (c *Coordinator) Index(ctx context.Context, types []string, forceFull bool) (*Progress, error) {
	started := time.Now()
	if len(types) == 0 {
		types = c.cfg.Types
	}

	var progress *Progress
	var err error
	if forceFull {
		progress, err = c.fullReindex(ctx, types)
	} else {
		progress, err = c.incremental(ctx, types)
	}
	if err != nil {
		return nil, err
	}
	progress.DurationMs = time.Since(started).Milliseconds()

	slog.Info("indexing finished",
		slog.Bool("full", forceFull),
		slog.Int("indexed", progress.Indexed),
		slog.Int("skipped", progress.Skipped),
		slog.Int("failed", progress.Failed),
		slog.Duration("took", time.Since(started)))
	return progress, nil
}

// incremental upserts documents as they arrive. The TF-IDF vocabulary
// stays frozen; vector points overwrite by id.
func (c *Coordinator) incremental(ctx context.Context, types []string) (*Progress, error) {
	if c.vec != nil {
		if err := c.vec.EnsureCollection(ctx); err != nil {
			return nil, err
		}
	}

	progress := &Progress{}
	docs, reportCh := c.fetcher.Stream(ctx, types)
	for doc := range docs {
		if err := c.indexOne(ctx, doc, false); err != nil {
			slog.Warn("document failed to index",
				slog.String("id", doc.ID), slog.String("error", err.Error()))
			progress.Failed++
			continue
		}
		progress.Indexed++
	}
	report := <-reportCh
	progress.Skipped += report.Skipped
	progress.Failed += len(report.Errors)

	if ctx.Err() != nil {
		return nil, sqerrors.Timeout("indexing cancelled", ctx.Err())
	}
	return progress, nil
}

// fullReindex builds the corpus aside and swaps it in. On any fatal error
// the staging collection is dropped and the live index stays untouched.
func (c *Coordinator) fullReindex(ctx context.Context, types []string) (*Progress, error) {
	if c.vec != nil {
		if err := c.vec.BeginRebuild(ctx); err != nil {
			return nil, err
		}
	}
	abort := func() {
		if c.vec != nil {
			c.vec.AbortRebuild(ctx)
		}
	}

	progress := &Progress{}
	var corpus []*model.Document
	docs, reportCh := c.fetcher.Stream(ctx, types)
	for doc := range docs {
		corpus = append(corpus, doc)
		if c.vec == nil || c.embedder == nil {
			progress.Indexed++
			continue
		}
		points, err := c.embedChunks(ctx, doc)
		if err != nil {
			slog.Warn("document failed to embed",
				slog.String("id", doc.ID), slog.String("error", err.Error()))
			progress.Failed++
			continue
		}
		if _, err := c.vec.UpsertStaging(ctx, points); err != nil {
			abort()
			return nil, err
		}
		progress.Indexed++
	}
	report := <-reportCh
	progress.Skipped += report.Skipped
	progress.Failed += len(report.Errors)

	if ctx.Err() != nil {
		abort()
		return nil, sqerrors.Timeout("full reindex cancelled", ctx.Err())
	}

	// Commit point: new matrix and new collection become visible together
	// from the perspective of new requests.
	c.store.ReplaceAll(corpus)
	if c.vec != nil {
		if err := c.vec.CommitRebuild(ctx); err != nil {
			return nil, err
		}
	}
	return progress, nil
}

// IndexSingle upserts one document through the incremental path. Stale
// vector points from a previous, longer version are deleted first.
func (c *Coordinator) IndexSingle(ctx context.Context, doc *model.Document) error {
	if doc == nil || doc.ID == "" {
		return sqerrors.Validation("document id is required")
	}
	if c.vec != nil {
		if err := c.vec.EnsureCollection(ctx); err != nil {
			return err
		}
		if err := c.vec.Delete(ctx, doc.ID); err != nil {
			return err
		}
	}
	return c.indexOne(ctx, doc, true)
}

// DeleteDocument removes a document from both indexes.
func (c *Coordinator) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return sqerrors.Validation("document id is required")
	}
	c.store.DeleteDocument(id)
	if c.vec != nil {
		return c.vec.Delete(ctx, id)
	}
	return nil
}

// indexOne lands one document in the store and the vector index. When
// strict is false, embedding failures leave the document lexical-only.
func (c *Coordinator) indexOne(ctx context.Context, doc *model.Document, strict bool) error {
	c.store.UpsertDocuments([]*model.Document{doc})

	if c.vec == nil || c.embedder == nil {
		return nil
	}
	points, err := c.embedChunks(ctx, doc)
	if err != nil {
		if strict {
			return err
		}
		slog.Warn("embedding failed, document is lexical-only",
			slog.String("id", doc.ID), slog.String("error", err.Error()))
		return nil
	}
	_, err = c.vec.UpsertBatch(ctx, points)
	return err
}

// embedChunks splits a document and embeds its chunks in batches.
func (c *Coordinator) embedChunks(ctx context.Context, doc *model.Document) ([]vector.Point, error) {
	chunks := c.chunker.Split(doc)
	points := make([]vector.Point, 0, len(chunks))

	for start := 0; start < len(chunks); start += c.cfg.EmbedBatch {
		end := min(start+c.cfg.EmbedBatch, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		vecs, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, ch := range batch {
			points = append(points, vector.Point{Chunk: ch, Vector: vecs[i]})
		}
	}
	return points, nil
}
