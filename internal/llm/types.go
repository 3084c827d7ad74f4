// Package llm talks to an OpenAI-compatible chat endpoint for the four
// language tasks on the search path: query rewrite, candidate reranking,
// strict answer synthesis, and content-based alternative queries.
//
// Every task degrades gracefully. A timeout, saturation, or parse failure
// surfaces as a dependency degradation so the pipeline can continue with
// lexical-only results instead of failing the request.
package llm

import (
	"context"
	"time"
)

// Service is the task-level surface consumed by the search pipeline.
type Service interface {
	// Rewrite reformulates a query for retrieval. On parse failure the
	// result echoes the original query.
	Rewrite(ctx context.Context, query, intent string) (*RewriteResult, error)

	// Rerank scores candidates 0..100 against the query. The returned
	// slice covers every candidate exactly once, in candidate order.
	Rerank(ctx context.Context, req RerankRequest) (*RerankResult, error)

	// Answer synthesizes an answer from the sources. Strict mode limits the
	// model to facts stated verbatim in the sources.
	Answer(ctx context.Context, query string, sources []Source, strict bool) (*AnswerResult, error)

	// AlternativeQueries proposes 3..5 follow-up queries built only from
	// terms present in the supplied results.
	AlternativeQueries(ctx context.Context, query string, results []Source) (*AltQueriesResult, error)

	// ExpandQuery returns additional query phrasings, one per line.
	ExpandQuery(ctx context.Context, query string, max int) ([]string, error)

	// Available reports whether the client is configured and usable.
	Available() bool
}

// RewriteResult is the rewrite task output.
type RewriteResult struct {
	RewrittenQuery     string   `json:"rewritten_query"`
	AlternativeQueries []string `json:"alternative_queries"`
	KeyTerms           []string `json:"key_terms"`
	Synonyms           []string `json:"synonyms"`
	TokensUsed         int64    `json:"-"`
}

// Candidate is one rerank input. Index identifies it in the prompt and
// in the returned scores.
type Candidate struct {
	Index        int
	Title        string
	Excerpt      string
	Type         string
	PublishedAt  *time.Time
	WordCount    int
	Categories   []string
	Tags         []string
	LexicalScore float64
}

// RerankRequest carries everything the rerank prompt needs.
type RerankRequest struct {
	Query        string
	Intent       string
	Instructions string
	Candidates   []Candidate
}

// Score is one reranked candidate. Estimated marks scores the model did
// not produce and the client filled in from the lexical score.
type Score struct {
	Index     int
	AIScore   float64
	Reason    string
	Estimated bool
}

// RerankResult is the rerank task output.
type RerankResult struct {
	Scores     []Score
	TokensUsed int64
}

// Source is one answer or alt-query input, numbered from 1 for citations.
type Source struct {
	Ordinal int
	Title   string
	Excerpt string
	URL     string
}

// AnswerResult is the strict answer output.
type AnswerResult struct {
	Answer         string
	CitedSourceIDs []int
	TokensUsed     int64
}

// AltQueriesResult is the alternative-queries output.
type AltQueriesResult struct {
	Queries    []string
	TokensUsed int64
}
