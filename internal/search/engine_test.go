package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
	"github.com/sitequery/sitequery/internal/llm"
	"github.com/sitequery/sitequery/internal/model"
	"github.com/sitequery/sitequery/internal/store"
	"github.com/sitequery/sitequery/internal/vector"
)

// fakeLLM scores candidates by title and serves canned task outputs.
type fakeLLM struct {
	scoresByTitle    map[string]float64
	rerankErr        error
	answerText       string
	altQueries       []string
	lastAnswerStrict bool
}

var _ llm.Service = (*fakeLLM)(nil)

func (f *fakeLLM) Available() bool { return true }

func (f *fakeLLM) Rewrite(_ context.Context, query, _ string) (*llm.RewriteResult, error) {
	return &llm.RewriteResult{RewrittenQuery: query}, nil
}

func (f *fakeLLM) ExpandQuery(_ context.Context, _ string, _ int) ([]string, error) {
	return nil, nil
}

func (f *fakeLLM) Rerank(_ context.Context, req llm.RerankRequest) (*llm.RerankResult, error) {
	if f.rerankErr != nil {
		return nil, f.rerankErr
	}
	scores := make([]llm.Score, len(req.Candidates))
	for i, c := range req.Candidates {
		if s, ok := f.scoresByTitle[c.Title]; ok {
			scores[i] = llm.Score{Index: c.Index, AIScore: s}
		} else {
			scores[i] = llm.Score{Index: c.Index, AIScore: c.LexicalScore * 0.9, Estimated: true}
		}
	}
	return &llm.RerankResult{Scores: scores, TokensUsed: 10}, nil
}

func (f *fakeLLM) Answer(_ context.Context, _ string, _ []llm.Source, strict bool) (*llm.AnswerResult, error) {
	f.lastAnswerStrict = strict
	return &llm.AnswerResult{Answer: f.answerText, CitedSourceIDs: []int{1}, TokensUsed: 5}, nil
}

func (f *fakeLLM) AlternativeQueries(_ context.Context, _ string, _ []llm.Source) (*llm.AltQueriesResult, error) {
	return &llm.AltQueriesResult{Queries: f.altQueries}, nil
}

// fakeVec serves canned semantic hits.
type fakeVec struct {
	hits []vector.Result
	err  error
}

func (f *fakeVec) SemanticSearch(_ context.Context, _ []float32, _ int, _ []string) ([]vector.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(0)
	s.ReplaceAll([]*model.Document{
		{
			ID: "p1", Title: "James Walsh", Type: "scs-professionals",
			Body:    "James Walsh is a partner in the tax practice with twenty years of advisory experience.",
			Excerpt: "Partner, tax practice.",
			URL:     "https://example.com/people/james-walsh",
		},
		{
			ID: "a1", Title: "An interview with James Walsh", Type: "post",
			Body:    "We sat down with James Walsh to talk about the year ahead in tax advisory.",
			Excerpt: "A conversation about the year ahead.",
			URL:     "https://example.com/blog/interview-james-walsh",
		},
		{
			ID: "a2", Title: "Quarterly market outlook", Type: "post",
			Body:    "Markets were mixed this quarter with rates holding steady.",
			Excerpt: "Markets were mixed.",
			URL:     "https://example.com/blog/outlook",
		},
	})
	return s
}

func newTestEngine(s *store.Store, service llm.Service) *Engine {
	return NewEngine(s, nil, nil, service, Config{})
}

func TestSearchPersonNameRanking(t *testing.T) {
	fake := &fakeLLM{
		scoresByTitle: map[string]float64{
			"James Walsh":                   95,
			"An interview with James Walsh": 70,
		},
		altQueries: []string{"tax practice partners"},
	}
	e := newTestEngine(seedStore(t), fake)

	resp, err := e.Search(context.Background(), Request{
		Query: "James Walsh", Limit: 10, EnableReranking: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, "p1", resp.Results[0].ID)
	assert.Equal(t, string(IntentPersonName), resp.Metadata.Intent)
	assert.True(t, resp.Metadata.RerankUsed)
	assert.False(t, resp.Results[0].Explanation.ScoreEstimated)
	assert.Equal(t, []string{"tax practice partners"}, resp.Metadata.AltQueries)
	assert.Greater(t, resp.Metadata.AIWeight, 0.0)
	assert.InDelta(t, 1.0, resp.Metadata.AIWeight+resp.Metadata.LexicalWeight, 1e-9)

	// The interview ranks above the unrelated post.
	require.GreaterOrEqual(t, len(resp.Results), 2)
	assert.Equal(t, "a1", resp.Results[1].ID)
}

func TestSearchDegradedRerank(t *testing.T) {
	fake := &fakeLLM{rerankErr: sqerrors.Degraded("llm", errors.New("connection refused"))}
	e := newTestEngine(seedStore(t), fake)

	resp, err := e.Search(context.Background(), Request{
		Query: "James Walsh", Limit: 10, EnableReranking: true,
	})
	require.NoError(t, err)
	assert.False(t, resp.Metadata.RerankUsed)
	assert.True(t, resp.Metadata.EstimatedScores)
	for _, r := range resp.Results {
		assert.True(t, r.Explanation.ScoreEstimated)
	}
}

func TestSearchValidation(t *testing.T) {
	e := newTestEngine(seedStore(t), nil)
	bad := func(req Request) {
		t.Helper()
		_, err := e.Search(context.Background(), req)
		require.Error(t, err)
		assert.True(t, sqerrors.IsKind(err, sqerrors.KindValidation), "got %v", err)
	}

	bad(Request{Query: "x", Limit: 10})
	bad(Request{Query: string(make([]rune, 501)), Limit: 10})
	bad(Request{Query: "valid query", Limit: 0})
	bad(Request{Query: "valid query", Limit: 101})
	bad(Request{Query: "valid query", Limit: 10, Offset: -1})
	w := 1.5
	bad(Request{Query: "valid query", Limit: 10, AIWeight: &w})
}

func TestSearchDeterministicWithoutRerank(t *testing.T) {
	e := newTestEngine(seedStore(t), nil)
	req := Request{Query: "tax advisory", Limit: 10}

	first, err := e.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Search(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].ID, second.Results[i].ID)
		assert.Equal(t, first.Results[i].Score, second.Results[i].Score)
	}
}

func TestSearchTypeFilter(t *testing.T) {
	e := newTestEngine(seedStore(t), nil)
	resp, err := e.Search(context.Background(), Request{
		Query: "James Walsh", Limit: 10,
		Filters: Filters{Types: []string{"post"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, "post", r.Type)
	}
}

func TestSearchPagination(t *testing.T) {
	e := newTestEngine(seedStore(t), nil)

	page1, err := e.Search(context.Background(), Request{Query: "James Walsh tax", Limit: 1})
	require.NoError(t, err)
	require.Len(t, page1.Results, 1)
	assert.True(t, page1.Pagination.HasMore)
	assert.GreaterOrEqual(t, page1.Pagination.TotalResults, 2)

	page2, err := e.Search(context.Background(), Request{Query: "James Walsh tax", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page2.Results, 1)
	assert.NotEqual(t, page1.Results[0].ID, page2.Results[0].ID)

	far, err := e.Search(context.Background(), Request{Query: "James Walsh tax", Limit: 10, Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, far.Results)
	assert.False(t, far.Pagination.HasMore)
}

func TestSearchEmptyCorpus(t *testing.T) {
	e := newTestEngine(store.New(0), nil)

	resp, err := e.Search(context.Background(), Request{Query: "anything at all", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Pagination.TotalResults)
	assert.False(t, resp.Pagination.HasMore)
	assert.Empty(t, resp.Metadata.AltQueries)
}

func TestSearchAnswer(t *testing.T) {
	fake := &fakeLLM{answerText: "James Walsh is a partner in the tax practice (Source 1)."}
	e := newTestEngine(seedStore(t), fake)

	resp, err := e.Search(context.Background(), Request{
		Query: "who is James Walsh", Limit: 10, IncludeAnswer: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Answer)
	assert.Contains(t, resp.Answer.Text, "Source 1")
	assert.Equal(t, []int{1}, resp.Answer.CitedSourceIDs)
	assert.True(t, fake.lastAnswerStrict)
}

func TestSearchAnswerModeForwarded(t *testing.T) {
	fake := &fakeLLM{answerText: "James Walsh leads tax work (Source 1)."}
	e := newTestEngine(seedStore(t), fake)

	relaxed := false
	_, err := e.Search(context.Background(), Request{
		Query: "who is James Walsh", Limit: 10,
		IncludeAnswer: true, StrictAnswer: &relaxed,
	})
	require.NoError(t, err)
	assert.False(t, fake.lastAnswerStrict)
}

func TestSearchSemanticOnlyCandidateFollowsFusion(t *testing.T) {
	s := store.New(0)
	s.ReplaceAll([]*model.Document{
		{
			ID: "lex1", Title: "Tax advisory services", Type: "page",
			Body: "Tax advisory for corporations and individuals.",
			URL:  "https://example.com/tax-advisory",
		},
		{
			ID: "lex2", Title: "Quarterly outlook", Type: "post",
			Body: "Markets were mixed; a brief note mentions advisory work.",
			URL:  "https://example.com/outlook",
		},
		{
			ID: "sem1", Title: "Helping companies with levies", Type: "post",
			Body: "Guidance on statutory levies and filings.",
			URL:  "https://example.com/levies",
		},
	})
	vs := &fakeVec{hits: []vector.Result{{DocumentID: "sem1", Score: 0.99}}}
	e := NewEngine(s, vs, &fakeEmbedder{}, nil, Config{})

	resp, err := e.Search(context.Background(), Request{Query: "tax advisory", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.False(t, resp.Metadata.RerankUsed)

	pos := map[string]int{}
	for i, r := range resp.Results {
		pos[r.ID] = i
		assert.Greater(t, r.Explanation.HybridScore, 0.0)
	}
	// sem1 ties lex1 at the top of the fusion and must stay above the weak
	// lexical match, not sink for lack of a lexical score.
	assert.Less(t, pos["sem1"], pos["lex2"])
	assert.Equal(t, 0, pos["lex1"])
}

func TestSearchExplanationCarriesBoostFactors(t *testing.T) {
	fresh := time.Now().Add(-10 * 24 * time.Hour)
	stale := time.Now().Add(-3 * 365 * 24 * time.Hour)
	s := store.New(0)
	s.ReplaceAll([]*model.Document{
		{
			ID: "new", Title: "Tax planning basics", Type: "post",
			Body:        "An introduction to tax planning for small firms.",
			PublishedAt: &fresh,
		},
		{
			ID: "old", Title: "Tax planning basics", Type: "post",
			Body:        "An introduction to tax planning for small firms.",
			PublishedAt: &stale,
		},
	})
	e := newTestEngine(s, nil)

	resp, err := e.Search(context.Background(), Request{Query: "tax planning", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	assert.Equal(t, "new", resp.Results[0].ID)
	assert.Equal(t, 1.5, resp.Results[0].Explanation.FreshnessBoost)
	assert.Equal(t, 1.0, resp.Results[1].Explanation.FreshnessBoost)

	for i, r := range resp.Results {
		// Phrase in title caps the field factor.
		assert.Equal(t, 2.0, r.Explanation.FieldBoost)
		assert.Equal(t, 1.0, r.Explanation.TaxonomyBoost)
		assert.Equal(t, i+1, r.Explanation.Position)
		assert.Equal(t, 0, r.Explanation.TypePriorityIndex)
		assert.Equal(t, resp.Metadata.AIWeight, r.Explanation.AIWeight)
		assert.Equal(t, resp.Metadata.LexicalWeight, r.Explanation.LexicalWeight)
	}
}

func TestSearchSemanticDegradedMetadata(t *testing.T) {
	e := NewEngine(seedStore(t), &fakeVec{}, &fakeEmbedder{err: errors.New("embedder down")}, nil, Config{})

	resp, err := e.Search(context.Background(), Request{Query: "James Walsh", Limit: 10})
	require.NoError(t, err)
	assert.True(t, resp.Metadata.SemanticDegraded)
	require.NotEmpty(t, resp.Results)

	lexOnly := newTestEngine(seedStore(t), nil)
	resp, err = lexOnly.Search(context.Background(), Request{Query: "James Walsh", Limit: 10})
	require.NoError(t, err)
	assert.False(t, resp.Metadata.SemanticDegraded)
}
