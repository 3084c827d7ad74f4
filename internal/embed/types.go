// Package embed produces fixed-dimension vectors for documents and queries.
package embed

import (
	"context"
)

// Common embedding constants.
const (
	// DefaultDimensions is the embedding dimension D.
	DefaultDimensions = 384

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultQueryCacheSize bounds the query-embedding LRU.
	DefaultQueryCacheSize = 1000
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedBatch generates embeddings for multiple texts, one vector per
	// input in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates the embedding for a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// Available checks whether the embedder can serve requests.
	Available(ctx context.Context) bool
}

// IsZero reports whether the vector carries no embedding. An all-zero
// vector means "no embedding": semantic search is skipped, never failed.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
