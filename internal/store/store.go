// Package store holds the in-memory corpus: documents and the TF-IDF
// matrix derived from them. It is the source of truth for ranking lookups.
//
// Writes happen only during indexing; search requests read a consistent
// snapshot of the matrix reference for their whole lifetime.
package store

import (
	"sort"
	"sync"

	"github.com/sitequery/sitequery/internal/model"
)

// UpsertCounts reports the outcome of a document upsert.
type UpsertCounts struct {
	Inserted int
	Updated  int
}

// Stats summarizes the store contents.
type Stats struct {
	Documents  int `json:"documents"`
	Tombstones int `json:"tombstones"`
	Rows       int `json:"matrix_rows"`
	Features   int `json:"matrix_features"`
}

// Store owns documents and the TF-IDF matrix. Single writer, many readers.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]*model.Document
	deleted     map[string]bool // tombstones, removed on the next full rebuild
	matrix      *Matrix
	maxFeatures int
}

// New creates an empty store.
func New(maxFeatures int) *Store {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Store{
		docs:        make(map[string]*model.Document),
		deleted:     make(map[string]bool),
		maxFeatures: maxFeatures,
	}
}

// UpsertDocuments inserts or replaces documents by id and extends the
// matrix incrementally against the frozen vocabulary. Returns counts.
func (s *Store) UpsertDocuments(docs []*model.Document) UpsertCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts UpsertCounts
	ids := make([]string, 0, len(docs))
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil || d.ID == "" {
			continue
		}
		if _, ok := s.docs[d.ID]; ok {
			counts.Updated++
		} else {
			counts.Inserted++
		}
		s.docs[d.ID] = d
		delete(s.deleted, d.ID)
		ids = append(ids, d.ID)
		texts = append(texts, d.SearchText())
	}

	if len(ids) == 0 {
		return counts
	}
	if s.matrix == nil {
		s.rebuildLocked()
	} else {
		s.matrix = s.matrix.WithRows(ids, texts)
	}
	return counts
}

// DeleteDocument tombstones a document. Deleting an unknown id is a no-op.
// The row stays in the matrix until the next full rebuild but is excluded
// from search results.
func (s *Store) DeleteDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return
	}
	delete(s.docs, id)
	s.deleted[id] = true
}

// Lookup returns the document for id, or nil when absent or tombstoned.
func (s *Store) Lookup(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id]
}

// All returns the live documents in id order.
func (s *Store) All() []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// Rebuild refits the vocabulary and matrix on the full live corpus and
// drops all tombstones. The new matrix replaces the old one atomically.
func (s *Store) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
}

func (s *Store) rebuildLocked() {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	texts := make([]string, len(ids))
	for i, id := range ids {
		texts[i] = s.docs[id].SearchText()
	}
	s.matrix = FitMatrix(ids, texts, s.maxFeatures)
	s.deleted = make(map[string]bool)
}

// ReplaceAll swaps the full corpus in one step: the new documents replace
// everything and the matrix is refit. This is the build-then-swap commit
// point of a full reindex.
func (s *Store) ReplaceAll(docs []*model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*model.Document, len(docs))
	for _, d := range docs {
		if d != nil && d.ID != "" {
			s.docs[d.ID] = d
		}
	}
	s.rebuildLocked()
}

// TFIDFSearch runs each query against the current matrix snapshot, keeps
// at most limit hits per query, and merges across queries by max score.
// The merged result is ordered by score descending, ties by id ascending.
func (s *Store) TFIDFSearch(queries []string, limit int) []Hit {
	s.mu.RLock()
	matrix := s.matrix
	excluded := s.deleted
	s.mu.RUnlock()

	if matrix == nil {
		return nil
	}

	best := make(map[string]float64)
	for _, q := range queries {
		for _, hit := range matrix.Search(q, limit, excluded) {
			if hit.Score > best[hit.DocumentID] {
				best[hit.DocumentID] = hit.Score
			}
		}
	}

	merged := make([]Hit, 0, len(best))
	for id, score := range best {
		merged = append(merged, Hit{DocumentID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].DocumentID < merged[j].DocumentID
	})
	return merged
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Documents:  len(s.docs),
		Tombstones: len(s.deleted),
		Rows:       s.matrix.Rows(),
		Features:   s.matrix.Features(),
	}
}
