// Package model defines the core content entities shared across the
// indexing and search pipelines.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Term is a taxonomy term (category or tag) attached to a document.
type Term struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Document is a single piece of CMS content: a post, page, or custom type.
// Documents are created by the content fetcher, stored in the document store,
// and represented in the vector index through their chunks.
type Document struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Excerpt       string     `json:"excerpt"`
	Type          string     `json:"type"`
	URL           string     `json:"url"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Author        string     `json:"author,omitempty"`
	Categories    []Term     `json:"categories,omitempty"`
	Tags          []Term     `json:"tags,omitempty"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	WordCount     int        `json:"word_count"`
}

// SearchText is the text the TF-IDF vocabulary is fit on.
func (d *Document) SearchText() string {
	return d.Title + " " + d.Body + " " + d.Excerpt
}

// Age returns the document age relative to now, and whether a valid
// publication date is present.
func (d *Document) Age(now time.Time) (time.Duration, bool) {
	if d.PublishedAt == nil || d.PublishedAt.IsZero() {
		return 0, false
	}
	return now.Sub(*d.PublishedAt), true
}

// Chunk is a bounded, overlapping slice of a document used as the unit of
// embedding. Chunk ids are derived from the parent id and the ordinal.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`

	// Parent metadata carried for scoring at retrieval time.
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Categories  []Term     `json:"categories,omitempty"`
	Tags        []Term     `json:"tags,omitempty"`
}

// ChunkID builds the canonical chunk id for a document and ordinal.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", documentID, ordinal)
}

// ParseChunkID splits a chunk id into its document id. Returns the input
// unchanged when it carries no ordinal suffix.
func ParseChunkID(chunkID string) string {
	if i := strings.LastIndex(chunkID, "#"); i >= 0 {
		return chunkID[:i]
	}
	return chunkID
}
