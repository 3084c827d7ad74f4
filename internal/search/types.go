// Package search implements the query pipeline: intent analysis, query
// expansion, dual lexical and semantic retrieval, rank fusion, hybrid
// scoring with optional LLM reranking, and strict answer synthesis.
package search

import (
	"time"

	"github.com/sitequery/sitequery/internal/model"
)

// Validation bounds for search requests.
const (
	MinQueryLen = 2
	MaxQueryLen = 500
	MaxLimit    = 100
)

// Filters narrows the searched corpus.
type Filters struct {
	Types      []string   `json:"types,omitempty"`
	DateFrom   *time.Time `json:"dateFrom,omitempty"`
	DateTo     *time.Time `json:"dateTo,omitempty"`
	Author     string     `json:"author,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// Request is one search invocation.
type Request struct {
	Query                string   `json:"query"`
	Limit                int      `json:"limit"`
	Offset               int      `json:"offset"`
	EnableReranking      bool     `json:"enableReranking"`
	AIWeight             *float64 `json:"aiWeight,omitempty"`
	RerankInstructions   string   `json:"rerankInstructions,omitempty"`
	IncludeAnswer        bool     `json:"includeAnswer,omitempty"`
	StrictAnswer         *bool    `json:"strictAnswer,omitempty"`         // default true
	PostTypePriority     []string `json:"postTypePriority,omitempty"`
	EnableQueryExpansion *bool    `json:"enableQueryExpansion,omitempty"` // default true
	Filters              Filters  `json:"filters,omitempty"`
}

// ExpansionEnabled resolves the default for the optional flag.
func (r *Request) ExpansionEnabled() bool {
	return r.EnableQueryExpansion == nil || *r.EnableQueryExpansion
}

// StrictAnswerMode resolves the default for the optional flag.
func (r *Request) StrictAnswerMode() bool {
	return r.StrictAnswer == nil || *r.StrictAnswer
}

// RankingExplanation breaks a result's final score into its components:
// the stream scores, the boost multipliers applied to the winning variant,
// the mixing weights, and where the result landed.
type RankingExplanation struct {
	LexicalScore      float64 `json:"lexicalScore"`
	SemanticScore     float64 `json:"semanticScore"`
	RRFScore          float64 `json:"rrfScore"`
	FieldBoost        float64 `json:"fieldBoost"`
	FreshnessBoost    float64 `json:"freshnessBoost"`
	TaxonomyBoost     float64 `json:"taxonomyBoost"`
	AIScore           float64 `json:"aiScore"`
	AIScoreNormalized float64 `json:"aiScoreNormalized"`
	ScoreEstimated    bool    `json:"scoreEstimated"`
	AIWeight          float64 `json:"aiWeight"`
	LexicalWeight     float64 `json:"lexicalWeight"`
	HybridScore       float64 `json:"hybridScore"`
	TypePriorityIndex int     `json:"typePriorityIndex"`
	Position          int     `json:"position"`
	Reason            string  `json:"reason,omitempty"`
}

// Result is one ranked document in a response.
type Result struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Excerpt       string             `json:"excerpt"`
	URL           string             `json:"url"`
	Type          string             `json:"type"`
	Author        string             `json:"author,omitempty"`
	PublishedAt   *time.Time         `json:"publishedAt,omitempty"`
	FeaturedImage string             `json:"featuredImage,omitempty"`
	Categories    []model.Term       `json:"categories,omitempty"`
	Tags          []model.Term       `json:"tags,omitempty"`
	Score         float64            `json:"score"`
	Explanation   RankingExplanation `json:"explanation"`
}

// Pagination describes the returned window of the candidate list.
type Pagination struct {
	Offset       int  `json:"offset"`
	Limit        int  `json:"limit"`
	HasMore      bool `json:"hasMore"`
	TotalResults int  `json:"totalResults"`
}

// Metadata accompanies every search response.
type Metadata struct {
	Query              string   `json:"query"`
	Intent             string   `json:"intent"`
	IntentInstructions string   `json:"intentInstructions,omitempty"`
	RewrittenQuery     string   `json:"rewrittenQuery,omitempty"`
	AltQueries         []string `json:"altQueries,omitempty"`
	AIWeight           float64  `json:"aiWeight"`
	LexicalWeight      float64  `json:"lexicalWeight"`
	ResponseTimeMs     int64    `json:"responseTimeMs"`
	RerankUsed         bool     `json:"rerankUsed"`
	SemanticDegraded   bool     `json:"semanticDegraded,omitempty"`
	TokensUsed         int64    `json:"tokensUsed,omitempty"`
	EstimatedScores    bool     `json:"estimatedScores,omitempty"`
	PromptVersion      string   `json:"promptVersion,omitempty"`
}

// Answer is the optional synthesized answer.
type Answer struct {
	Text           string `json:"text"`
	CitedSourceIDs []int  `json:"citedSourceIds,omitempty"`
}

// Response is the full search result.
type Response struct {
	Results    []Result   `json:"results"`
	Pagination Pagination `json:"pagination"`
	Metadata   Metadata   `json:"metadata"`
	Answer     *Answer    `json:"answer,omitempty"`
}

// candidate accumulates scores for one document through the pipeline.
type candidate struct {
	doc *model.Document

	lexical  float64 // boosted lexical score, max across variants
	semantic float64 // boosted semantic score, max across variants
	rrf      float64
	rrfNorm  float64 // rrf normalized into [0,1] across the candidate set
	lexNorm  float64 // lexical normalized into [0,1] across the candidate set

	// boost multipliers of the variant that set the winning stream score
	fieldBoost     float64
	freshnessBoost float64
	taxonomyBoost  float64

	aiScore     float64 // 0..100
	aiEstimated bool
	aiReason    string

	hybrid        float64
	priorityIndex int
}
