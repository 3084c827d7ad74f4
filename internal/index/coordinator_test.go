package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitequery/sitequery/internal/chunk"
	"github.com/sitequery/sitequery/internal/fetch"
	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/vector"
)

type fakeFetcher struct {
	docs   []*model.Document
	report fetch.Report
}

func (f *fakeFetcher) Stream(_ context.Context, _ []string) (<-chan *model.Document, <-chan fetch.Report) {
	docs := make(chan *model.Document, len(f.docs))
	done := make(chan fetch.Report, 1)
	for _, d := range f.docs {
		docs <- d
	}
	close(docs)
	f.report.Fetched = len(f.docs)
	done <- f.report
	return docs, done
}

type fakeVector struct {
	upserted   []vector.Point
	staged     []vector.Point
	deleted    []string
	committed  bool
	aborted    bool
	rebuilding bool
	upsertErr  error
}

func (f *fakeVector) EnsureCollection(context.Context) error { return nil }
func (f *fakeVector) UpsertBatch(_ context.Context, points []vector.Point) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, points...)
	return len(points), nil
}
func (f *fakeVector) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeVector) BeginRebuild(context.Context) error { f.rebuilding = true; return nil }
func (f *fakeVector) UpsertStaging(_ context.Context, points []vector.Point) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.staged = append(f.staged, points...)
	return len(points), nil
}
func (f *fakeVector) CommitRebuild(context.Context) error { f.committed = true; return nil }
func (f *fakeVector) AbortRebuild(context.Context)        { f.aborted = true }

type fakeEmbedder struct {
	failing bool
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.failing {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (f *fakeEmbedder) Dimensions() int                { return 3 }
func (f *fakeEmbedder) Available(context.Context) bool { return !f.failing }

func doc(id, title, body string) *model.Document {
	return &model.Document{ID: id, Title: title, Body: body, Type: "post"}
}

func newCoordinator(f *fakeFetcher, v *fakeVector, em *fakeEmbedder) (*Coordinator, *store.Store) {
	s := store.New(0)
	c := New(f, s, chunk.New(chunk.Options{}), em, v, Config{Types: []string{"post"}})
	return c, s
}

func TestIncrementalIndex(t *testing.T) {
	fetcher := &fakeFetcher{docs: []*model.Document{
		doc("1", "First", "Alpha beta gamma content for the first document."),
		doc("2", "Second", "Delta epsilon content for the second document."),
	}}
	vec := &fakeVector{}
	c, s := newTestCoordinator(fetcher, vec)

	progress, err := c.Index(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Indexed)
	assert.Zero(t, progress.Failed)

	assert.NotNil(t, s.Lookup("1"))
	assert.NotEmpty(t, vec.upserted)
	assert.False(t, vec.committed)
}

func newTestCoordinator(f *fakeFetcher, v *fakeVector) (*Coordinator, *store.Store) {
	return newCoordinator(f, v, &fakeEmbedder{})
}

func TestFullReindexCommits(t *testing.T) {
	fetcher := &fakeFetcher{docs: []*model.Document{
		doc("1", "First", "Alpha beta gamma content."),
	}}
	vec := &fakeVector{}
	c, s := newTestCoordinator(fetcher, vec)

	progress, err := c.Index(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Indexed)

	assert.True(t, vec.rebuilding)
	assert.True(t, vec.committed)
	assert.False(t, vec.aborted)
	assert.NotEmpty(t, vec.staged)
	assert.Empty(t, vec.upserted)
	assert.NotNil(t, s.Lookup("1"))
}

func TestFullReindexAbortsOnUpsertFailure(t *testing.T) {
	fetcher := &fakeFetcher{docs: []*model.Document{doc("1", "First", "Alpha beta content.")}}
	vec := &fakeVector{upsertErr: errors.New("qdrant down")}
	c, s := newTestCoordinator(fetcher, vec)

	_, err := c.Index(context.Background(), nil, true)
	require.Error(t, err)
	assert.True(t, vec.aborted)
	assert.False(t, vec.committed)
	assert.Nil(t, s.Lookup("1"), "live store must stay untouched")
}

func TestIncrementalEmbeddingFailureIsLexicalOnly(t *testing.T) {
	fetcher := &fakeFetcher{docs: []*model.Document{doc("1", "First", "Alpha beta content.")}}
	vec := &fakeVector{}
	c, s := newCoordinator(fetcher, vec, &fakeEmbedder{failing: true})

	progress, err := c.Index(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Indexed)
	assert.NotNil(t, s.Lookup("1"))
	assert.Empty(t, vec.upserted)
}

func TestIndexSingleDeletesStalePoints(t *testing.T) {
	vec := &fakeVector{}
	c, s := newTestCoordinator(&fakeFetcher{}, vec)

	require.NoError(t, c.IndexSingle(context.Background(), doc("7", "Lone", "Single document body.")))
	assert.Equal(t, []string{"7"}, vec.deleted)
	assert.NotEmpty(t, vec.upserted)
	assert.NotNil(t, s.Lookup("7"))

	assert.Error(t, c.IndexSingle(context.Background(), nil))
}

func TestDeleteDocument(t *testing.T) {
	vec := &fakeVector{}
	c, s := newTestCoordinator(&fakeFetcher{}, vec)
	require.NoError(t, c.IndexSingle(context.Background(), doc("9", "Gone", "Body text here.")))

	require.NoError(t, c.DeleteDocument(context.Background(), "9"))
	assert.Nil(t, s.Lookup("9"))
	assert.Contains(t, vec.deleted, "9")
}

func TestSkippedTypesPropagate(t *testing.T) {
	fetcher := &fakeFetcher{report: fetch.Report{Skipped: 2}}
	c, _ := newTestCoordinator(fetcher, &fakeVector{})

	progress, err := c.Index(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Skipped)
}
