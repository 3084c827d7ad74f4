package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitequery/sitequery/internal/model"
)

func doc(id, title, body string) *model.Document {
	return &model.Document{ID: id, Title: title, Body: body, Type: "post"}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New(0)
	s.ReplaceAll([]*model.Document{
		doc("a", "Managed IT services", "We provide managed IT services and network support for businesses."),
		doc("b", "Cloud consulting", "Cloud migration consulting and strategy for enterprise workloads."),
		doc("c", "Careers", "Join our team of engineers and consultants."),
	})
	return s
}

func TestUpsert_Counts(t *testing.T) {
	s := New(0)
	counts := s.UpsertDocuments([]*model.Document{doc("a", "One", "body"), doc("b", "Two", "body")})
	assert.Equal(t, UpsertCounts{Inserted: 2}, counts)

	counts = s.UpsertDocuments([]*model.Document{doc("a", "One updated", "body"), doc("c", "Three", "body")})
	assert.Equal(t, UpsertCounts{Inserted: 1, Updated: 1}, counts)

	require.NotNil(t, s.Lookup("a"))
	assert.Equal(t, "One updated", s.Lookup("a").Title)
}

func TestTFIDFSearch_RelevantFirst(t *testing.T) {
	s := seeded(t)

	hits := s.TFIDFSearch([]string{"managed IT services"}, 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].DocumentID)

	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0+1e-9)
	}
}

func TestTFIDFSearch_EmptyAndStopwordQueries(t *testing.T) {
	s := seeded(t)

	assert.Empty(t, s.TFIDFSearch([]string{""}, 10))
	assert.Empty(t, s.TFIDFSearch([]string{"the of and"}, 10))
}

func TestTFIDFSearch_MergesVariantsByMaxScore(t *testing.T) {
	s := seeded(t)

	single := s.TFIDFSearch([]string{"cloud consulting"}, 10)
	merged := s.TFIDFSearch([]string{"cloud consulting", "cloud migration strategy"}, 10)

	require.NotEmpty(t, single)
	require.NotEmpty(t, merged)
	assert.Equal(t, "b", merged[0].DocumentID)

	// The merged score for b is at least the single-variant score.
	assert.GreaterOrEqual(t, merged[0].Score, single[0].Score)

	// No duplicates after the merge.
	seen := map[string]bool{}
	for _, h := range merged {
		assert.False(t, seen[h.DocumentID], "duplicate id %s", h.DocumentID)
		seen[h.DocumentID] = true
	}
}

func TestDelete_TombstoneHidesFromSearch(t *testing.T) {
	s := seeded(t)

	s.DeleteDocument("a")
	assert.Nil(t, s.Lookup("a"))

	hits := s.TFIDFSearch([]string{"managed IT services"}, 10)
	for _, h := range hits {
		assert.NotEqual(t, "a", h.DocumentID)
	}

	// Idempotent for unknown ids.
	s.DeleteDocument("a")
	s.DeleteDocument("zzz")
	assert.Equal(t, 1, s.Stats().Tombstones)

	// Full rebuild compacts tombstones.
	s.Rebuild()
	assert.Equal(t, 0, s.Stats().Tombstones)
}

func TestIncrementalUpsert_FrozenVocabulary(t *testing.T) {
	s := seeded(t)
	features := s.Stats().Features

	// New document with entirely new vocabulary.
	s.UpsertDocuments([]*model.Document{doc("d", "Quantum widgets", "Zettabyte frobnicator universe")})

	// Vocabulary is frozen until the next full rebuild.
	assert.Equal(t, features, s.Stats().Features)
	assert.Empty(t, s.TFIDFSearch([]string{"zettabyte frobnicator"}, 10))

	// Known vocabulary still matches the new document after the rebuild.
	s.Rebuild()
	hits := s.TFIDFSearch([]string{"quantum widgets"}, 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d", hits[0].DocumentID)
}

func TestUpsert_IdempotentRows(t *testing.T) {
	s := seeded(t)
	rows := s.Stats().Rows

	s.UpsertDocuments([]*model.Document{doc("a", "Managed IT services", "We provide managed IT services and network support for businesses.")})
	assert.Equal(t, rows, s.Stats().Rows, "upsert of the same id must not grow the matrix")
}

func TestTFIDFSearch_TieBreakByID(t *testing.T) {
	s := New(0)
	// Two identical documents: same score, order must be id ascending.
	s.ReplaceAll([]*model.Document{
		doc("x2", "Alpha beta", "gamma delta"),
		doc("x1", "Alpha beta", "gamma delta"),
	})

	hits := s.TFIDFSearch([]string{"alpha beta"}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "x1", hits[0].DocumentID)
	assert.Equal(t, "x2", hits[1].DocumentID)
}

func TestTFIDFSearch_LimitPerQuery(t *testing.T) {
	s := New(0)
	docs := make([]*model.Document, 0, 20)
	for i := 0; i < 20; i++ {
		docs = append(docs, doc(fmt.Sprintf("d%02d", i), "shared topic words", fmt.Sprintf("shared topic words and filler %d", i)))
	}
	s.ReplaceAll(docs)

	hits := s.TFIDFSearch([]string{"shared topic"}, 5)
	assert.Len(t, hits, 5)
}

func TestFitMatrix_FeatureCap(t *testing.T) {
	ids := []string{"a", "b"}
	texts := []string{
		"alpha beta gamma delta epsilon zeta",
		"eta theta iota kappa lambda mu",
	}
	m := FitMatrix(ids, texts, 5)
	assert.Equal(t, 5, m.Features())
	assert.Equal(t, 2, m.Rows())
}
