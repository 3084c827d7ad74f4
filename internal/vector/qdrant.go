// Package vector wraps the external Qdrant vector database behind the
// operations the search and indexing pipelines need: idempotent collection
// creation, batched upserts, semantic query, per-document delete, and a
// build-then-swap protocol for full reindexes.
package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
	"github.com/sitequery/sitequery/internal/model"
)

// DefaultBatchSize caps the number of points per upsert request.
const DefaultBatchSize = 50

// Point is one chunk embedding destined for the vector index.
type Point struct {
	Chunk  *model.Chunk
	Vector []float32
}

// Result is one semantic search hit, already reduced to document level.
type Result struct {
	DocumentID string
	Score      float64
}

// Stats reports collection counters.
type Stats struct {
	VectorCount  uint64 `json:"vector_count"`
	IndexedCount uint64 `json:"indexed_count"`
	Status       string `json:"status"`
}

// Config configures the Qdrant client.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
	BatchSize  int
}

// Index is the Qdrant-backed vector index. The public collection name is a
// Qdrant alias onto a generation collection; a full rebuild repoints the
// alias, so the swap survives process restarts.
type Index struct {
	client    *qdrant.Client
	cfg       Config
	batchSize int

	mu      sync.RWMutex
	staging string // generation being built during a full reindex
}

// New connects to Qdrant. The connection is lazy; failures surface on the
// first operation.
func New(cfg Config) (*Index, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &Index{
		client:    client,
		cfg:       cfg,
		batchSize: cfg.BatchSize,
	}, nil
}

// PointID derives the stable integer point id from a chunk id.
func PointID(chunkID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(chunkID))
	return h.Sum64()
}

// EnsureCollection makes the public collection name resolvable. Missing
// state gets a fresh generation collection with the public name aliased
// onto it; a plain collection left by older deployments is served as-is and
// migrated to an alias on the next full rebuild. Orphaned build generations
// from interrupted rebuilds are dropped. Idempotent.
func (x *Index) EnsureCollection(ctx context.Context) error {
	current, err := x.resolveCurrent(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		gen := x.generationName()
		if err := x.ensure(ctx, gen); err != nil {
			return err
		}
		if err := x.client.CreateAlias(ctx, x.cfg.Collection, gen); err != nil {
			return sqerrors.Fatal("vector-db", err)
		}
		current = gen
	}
	x.dropStaleBuilds(ctx, current)
	return nil
}

// resolveCurrent returns the physical collection backing the public name,
// or "" when neither an alias nor a plain collection exists.
func (x *Index) resolveCurrent(ctx context.Context) (string, error) {
	aliases, err := x.client.ListAliases(ctx)
	if err != nil {
		return "", sqerrors.Fatal("vector-db", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == x.cfg.Collection {
			return a.GetCollectionName(), nil
		}
	}
	exists, err := x.client.CollectionExists(ctx, x.cfg.Collection)
	if err != nil {
		return "", sqerrors.Fatal("vector-db", err)
	}
	if exists {
		return x.cfg.Collection, nil
	}
	return "", nil
}

func (x *Index) generationName() string {
	return fmt.Sprintf("%s_build_%d", x.cfg.Collection, time.Now().UnixNano())
}

// dropStaleBuilds deletes build generations that neither serve the alias
// nor belong to a rebuild in flight.
func (x *Index) dropStaleBuilds(ctx context.Context, current string) {
	names, err := x.client.ListCollections(ctx)
	if err != nil {
		slog.Warn("listing collections failed, skipping stale build cleanup",
			slog.String("error", err.Error()))
		return
	}
	x.mu.RLock()
	staging := x.staging
	x.mu.RUnlock()
	for _, name := range names {
		if !isStaleBuild(name, x.cfg.Collection, current, staging) {
			continue
		}
		if err := x.client.DeleteCollection(ctx, name); err != nil {
			slog.Warn("failed to drop stale build collection",
				slog.String("collection", name),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("dropped stale build collection", slog.String("collection", name))
	}
}

// isStaleBuild reports whether name is an orphaned build generation of base.
func isStaleBuild(name, base, current, staging string) bool {
	return strings.HasPrefix(name, base+"_build_") && name != current && name != staging
}

func (x *Index) ensure(ctx context.Context, name string) error {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return sqerrors.Fatal("vector-db", err)
	}
	if exists {
		return nil
	}
	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.cfg.Dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return sqerrors.Fatal("vector-db", err)
	}
	slog.Info("created vector collection",
		slog.String("collection", name),
		slog.Int("dimensions", x.cfg.Dimensions))
	return nil
}

// UpsertBatch writes points in bounded batches. A failed batch fails only
// that batch; the error reports how many points were written.
func (x *Index) UpsertBatch(ctx context.Context, points []Point) (written int, err error) {
	return x.upsertTo(ctx, x.cfg.Collection, points)
}

func (x *Index) upsertTo(ctx context.Context, collection string, points []Point) (int, error) {
	written := 0
	for start := 0; start < len(points); start += x.batchSize {
		end := start + x.batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			if len(p.Vector) != x.cfg.Dimensions {
				return written, sqerrors.Newf(sqerrors.KindDependencyFatal,
					"vector dimension mismatch: collection %s wants %d, got %d",
					collection, x.cfg.Dimensions, len(p.Vector))
			}
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(PointID(p.Chunk.ID)),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(payloadFor(p.Chunk)),
			})
		}
		_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         batch,
		})
		if err != nil {
			return written, sqerrors.Degraded("vector-db", err).
				WithDetail("batch_start", fmt.Sprintf("%d", start))
		}
		written += len(batch)
	}
	return written, nil
}

// SemanticSearch queries the active collection and reduces chunk hits to
// their best-scoring document. Scores are clamped into [0,1].
func (x *Index) SemanticSearch(ctx context.Context, vec []float32, limit int, types []string) ([]Result, error) {
	var filter *qdrant.Filter
	if len(types) > 0 {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeywords("type", types...)},
		}
	}

	// Over-fetch at chunk granularity so document-level reduction can
	// still fill the limit.
	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.cfg.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(limit * 3)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	})
	if err != nil {
		return nil, sqerrors.Degraded("vector-db", err)
	}

	best := make(map[string]float64)
	order := make([]string, 0, len(points))
	for _, p := range points {
		docID := p.Payload["document_id"].GetStringValue()
		if docID == "" {
			continue
		}
		score := clamp01(float64(p.Score))
		if prev, seen := best[docID]; !seen {
			best[docID] = score
			order = append(order, docID)
		} else if score > prev {
			best[docID] = score
		}
	}

	results := make([]Result, 0, limit)
	for _, docID := range order {
		results = append(results, Result{DocumentID: docID, Score: best[docID]})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// Delete removes all chunk points for a document. Unknown ids succeed.
func (x *Index) Delete(ctx context.Context, documentID string) error {
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
		}),
	})
	if err != nil {
		return sqerrors.Degraded("vector-db", err)
	}
	return nil
}

// Stats returns collection counters for the generation serving the public
// name.
func (x *Index) Stats(ctx context.Context) (Stats, error) {
	name, err := x.resolveCurrent(ctx)
	if err != nil {
		return Stats{}, sqerrors.Degraded("vector-db", err)
	}
	if name == "" {
		return Stats{Status: "missing"}, nil
	}
	info, err := x.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return Stats{}, sqerrors.Degraded("vector-db", err)
	}
	s := Stats{Status: info.GetStatus().String()}
	if c := info.GetPointsCount(); c != 0 {
		s.VectorCount = c
	}
	if c := info.GetIndexedVectorsCount(); c != 0 {
		s.IndexedCount = c
	}
	return s, nil
}

// Available probes the vector database.
func (x *Index) Available(ctx context.Context) bool {
	_, err := x.client.ListCollections(ctx)
	return err == nil
}

// BeginRebuild creates a fresh staging collection for a full reindex.
// Searches keep hitting the previous generation until CommitRebuild.
func (x *Index) BeginRebuild(ctx context.Context) error {
	staging := x.generationName()
	if err := x.ensure(ctx, staging); err != nil {
		return err
	}
	x.mu.Lock()
	x.staging = staging
	x.mu.Unlock()
	return nil
}

// UpsertStaging writes points into the staging collection.
func (x *Index) UpsertStaging(ctx context.Context, points []Point) (int, error) {
	x.mu.RLock()
	staging := x.staging
	x.mu.RUnlock()
	if staging == "" {
		return 0, sqerrors.Internal("no rebuild in progress", nil)
	}
	return x.upsertTo(ctx, staging, points)
}

// CommitRebuild repoints the public alias at the staging collection and
// drops the previous generation. The alias swap is the linearization point
// of a full reindex; because the alias lives in Qdrant, the swap survives
// restarts.
func (x *Index) CommitRebuild(ctx context.Context) error {
	x.mu.Lock()
	staging := x.staging
	x.staging = ""
	x.mu.Unlock()
	if staging == "" {
		return sqerrors.Internal("no rebuild in progress", nil)
	}

	current, err := x.resolveCurrent(ctx)
	if err != nil {
		return err
	}

	switch {
	case current == "":
		if err := x.client.CreateAlias(ctx, x.cfg.Collection, staging); err != nil {
			return sqerrors.Fatal("vector-db", err)
		}
	case current == x.cfg.Collection:
		// A plain collection from an older deployment occupies the public
		// name; it must go before an alias with that name can exist.
		if err := x.client.DeleteCollection(ctx, current); err != nil {
			return sqerrors.Fatal("vector-db", err)
		}
		if err := x.client.CreateAlias(ctx, x.cfg.Collection, staging); err != nil {
			return sqerrors.Fatal("vector-db", err)
		}
	default:
		if err := x.client.UpdateAliases(ctx, aliasSwap(x.cfg.Collection, staging)); err != nil {
			return sqerrors.Fatal("vector-db", err)
		}
		if err := x.client.DeleteCollection(ctx, current); err != nil {
			// The alias already moved; the old generation is cleanup debt
			// and gets collected by the next EnsureCollection.
			slog.Warn("failed to drop previous generation",
				slog.String("collection", current),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// aliasSwap builds the delete-and-recreate pair Qdrant applies as one
// atomic alias change.
func aliasSwap(alias, collection string) []*qdrant.AliasOperations {
	return []*qdrant.AliasOperations{
		qdrant.NewAliasDelete(alias),
		qdrant.NewAliasCreate(alias, collection),
	}
}

// AbortRebuild drops the staging collection and keeps the active one.
func (x *Index) AbortRebuild(ctx context.Context) {
	x.mu.Lock()
	staging := x.staging
	x.staging = ""
	x.mu.Unlock()
	if staging == "" {
		return
	}
	if err := x.client.DeleteCollection(ctx, staging); err != nil {
		slog.Warn("failed to drop staging collection",
			slog.String("collection", staging),
			slog.String("error", err.Error()))
	}
}

// payloadFor builds the point payload stored alongside each chunk vector.
func payloadFor(c *model.Chunk) map[string]any {
	payload := map[string]any{
		"document_id": c.DocumentID,
		"chunk_id":    c.ID,
		"ordinal":     int64(c.Ordinal),
		"title":       c.Title,
		"type":        c.Type,
		"url":         c.URL,
	}
	if c.PublishedAt != nil && !c.PublishedAt.IsZero() {
		payload["published_at"] = c.PublishedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
