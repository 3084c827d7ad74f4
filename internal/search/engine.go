package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
	"github.com/sitequery/sitequery/internal/llm"
	"github.com/sitequery/sitequery/internal/model"
)

// DefaultRequestTimeout bounds a whole search request.
const DefaultRequestTimeout = 30 * time.Second

// DefaultAnswerSources is how many top results feed answer synthesis.
const DefaultAnswerSources = 5

// Config tunes the engine.
type Config struct {
	RequestTimeout  time.Duration
	DefaultAIWeight float64
	RRFConstant     int
	RerankTopM      int
	MaxVariants     int
	RetrievalLimit  int
	VariantWorkers  int
	AnswerSources   int
}

// Engine orchestrates the search pipeline.
type Engine struct {
	store     DocumentStore
	retriever *Retriever
	expander  *Expander
	llm       llm.Service
	cfg       Config
}

// NewEngine assembles the pipeline. The LLM service may be nil; rewrite,
// rerank, answer, and alt queries are then skipped.
func NewEngine(ds DocumentStore, vs VectorSearcher, qe QueryEmbedder, service llm.Service, cfg Config) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.DefaultAIWeight <= 0 || cfg.DefaultAIWeight > 1 {
		cfg.DefaultAIWeight = DefaultAIWeight
	}
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = DefaultRRFConstant
	}
	if cfg.RerankTopM <= 0 {
		cfg.RerankTopM = DefaultRerankTopM
	}
	if cfg.AnswerSources <= 0 || cfg.AnswerSources > 5 {
		cfg.AnswerSources = DefaultAnswerSources
	}
	return &Engine{
		store:     ds,
		retriever: NewRetriever(ds, vs, qe, cfg.RetrievalLimit, cfg.VariantWorkers),
		expander:  NewExpander(service, cfg.MaxVariants),
		llm:       service,
		cfg:       cfg,
	}
}

// Search runs one request through the pipeline.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	if err := validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	intent := Classify(req.Query)
	aiWeight := e.cfg.DefaultAIWeight
	if req.AIWeight != nil {
		aiWeight = *req.AIWeight
	}
	aiWeight = adjustAIWeight(aiWeight, req.Query, intent)
	lexWeight := 1 - aiWeight

	meta := Metadata{
		Query:              req.Query,
		Intent:             string(intent),
		IntentInstructions: intent.Instructions(),
		AIWeight:           aiWeight,
		LexicalWeight:      lexWeight,
		PromptVersion:      llm.PromptVersion,
	}

	// Rewrite feeds the variant list; its failure never fails the request.
	var suggested []string
	if req.ExpansionEnabled() && e.llmUsable() {
		if rw, err := e.llm.Rewrite(ctx, req.Query, string(intent)); err == nil {
			meta.TokensUsed += rw.TokensUsed
			if rw.RewrittenQuery != "" && !strings.EqualFold(rw.RewrittenQuery, req.Query) {
				meta.RewrittenQuery = rw.RewrittenQuery
				suggested = append(suggested, rw.RewrittenQuery)
			}
			suggested = append(suggested, rw.AlternativeQueries...)
		}
	}

	variants := []string{req.Query}
	if req.ExpansionEnabled() {
		variants = e.expander.Expand(ctx, req.Query, suggested)
	}

	cands, semanticDegraded := e.retriever.Retrieve(ctx, variants, req.Filters)
	if ctx.Err() != nil {
		return nil, sqerrors.Timeout("search request deadline exceeded", ctx.Err())
	}
	meta.SemanticDegraded = semanticDegraded

	list := fuse(cands, e.cfg.RRFConstant)

	// Every candidate starts with an estimated AI score derived from its
	// fused standing, so semantic-only hits keep ranking when no model
	// score arrives; reranking overwrites the top M.
	for _, c := range list {
		c.aiScore = c.rrfNorm * 100 * 0.9
		c.aiEstimated = true
	}
	if req.EnableReranking && e.llmUsable() && len(list) > 0 {
		meta.RerankUsed = e.rerank(ctx, req, intent, list, &meta)
	}
	for _, c := range list {
		if c.aiEstimated {
			meta.EstimatedScores = true
		}
	}

	scoreHybrid(list, aiWeight, req.PostTypePriority, meta.RerankUsed)

	total := len(list)
	page := paginate(list, req.Offset, req.Limit)
	resp := &Response{
		Results: buildResults(page, req.Offset, aiWeight),
		Pagination: Pagination{
			Offset:       req.Offset,
			Limit:        req.Limit,
			HasMore:      req.Offset+req.Limit < total,
			TotalResults: total,
		},
	}

	if req.IncludeAnswer && e.llmUsable() && len(list) > 0 {
		resp.Answer = e.answer(ctx, req.Query, req.StrictAnswerMode(), list, &meta)
	}
	if e.llmUsable() && len(list) > 0 {
		if alt, err := e.llm.AlternativeQueries(ctx, req.Query, sourcesFor(list, 3)); err == nil {
			meta.AltQueries = alt.Queries
			meta.TokensUsed += alt.TokensUsed
		}
	}

	meta.ResponseTimeMs = time.Since(started).Milliseconds()
	resp.Metadata = meta

	slog.Info("search completed",
		slog.String("query", req.Query),
		slog.String("intent", string(intent)),
		slog.Int("results", total),
		slog.Bool("rerank_used", meta.RerankUsed),
		slog.Duration("took", time.Since(started)))
	return resp, nil
}

// rerank scores the top M candidates through the LLM. Returns whether the
// model's scores were applied.
func (e *Engine) rerank(ctx context.Context, req Request, intent Intent, list []*candidate, meta *Metadata) bool {
	m := min(e.cfg.RerankTopM, len(list))
	top := list[:m]

	cands := make([]llm.Candidate, m)
	for i, c := range top {
		cands[i] = llm.Candidate{
			Index:        i,
			Title:        c.doc.Title,
			Excerpt:      excerptOf(c.doc),
			Type:         c.doc.Type,
			PublishedAt:  c.doc.PublishedAt,
			WordCount:    c.doc.WordCount,
			Categories:   termNames(c.doc.Categories),
			Tags:         termNames(c.doc.Tags),
			LexicalScore: c.lexNorm * 100,
		}
	}

	res, err := e.llm.Rerank(ctx, llm.RerankRequest{
		Query:        req.Query,
		Intent:       string(intent),
		Instructions: req.RerankInstructions,
		Candidates:   cands,
	})
	if err != nil {
		slog.Warn("rerank degraded, keeping estimated scores",
			slog.String("error", err.Error()))
		return false
	}
	meta.TokensUsed += res.TokensUsed
	for i, s := range res.Scores {
		top[i].aiScore = s.AIScore
		top[i].aiEstimated = s.Estimated
		top[i].aiReason = s.Reason
	}
	return true
}

// answer synthesizes the answer from the top results. Strict mode limits
// the model to facts stated verbatim in the sources.
func (e *Engine) answer(ctx context.Context, query string, strict bool, list []*candidate, meta *Metadata) *Answer {
	res, err := e.llm.Answer(ctx, query, sourcesFor(list, e.cfg.AnswerSources), strict)
	if err != nil {
		slog.Warn("answer synthesis degraded", slog.String("error", err.Error()))
		return nil
	}
	meta.TokensUsed += res.TokensUsed
	return &Answer{Text: res.Answer, CitedSourceIDs: res.CitedSourceIDs}
}

func (e *Engine) llmUsable() bool {
	return e.llm != nil && e.llm.Available()
}

// validate enforces the request bounds.
func validate(req Request) error {
	q := len([]rune(strings.TrimSpace(req.Query)))
	if q < MinQueryLen || q > MaxQueryLen {
		return sqerrors.Validation(fmt.Sprintf("query length must be in [%d, %d]", MinQueryLen, MaxQueryLen))
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return sqerrors.Validation(fmt.Sprintf("limit must be in [1, %d]", MaxLimit))
	}
	if req.Offset < 0 {
		return sqerrors.Validation("offset must be non-negative")
	}
	if req.AIWeight != nil && (*req.AIWeight < 0 || *req.AIWeight > 1) {
		return sqerrors.Validation("aiWeight must be in [0, 1]")
	}
	return nil
}

func paginate(list []*candidate, offset, limit int) []*candidate {
	if offset >= len(list) {
		return nil
	}
	end := min(offset+limit, len(list))
	return list[offset:end]
}

func buildResults(page []*candidate, offset int, aiWeight float64) []Result {
	results := make([]Result, len(page))
	for i, c := range page {
		results[i] = Result{
			ID:            c.doc.ID,
			Title:         c.doc.Title,
			Excerpt:       excerptOf(c.doc),
			URL:           c.doc.URL,
			Type:          c.doc.Type,
			Author:        c.doc.Author,
			PublishedAt:   c.doc.PublishedAt,
			FeaturedImage: c.doc.FeaturedImage,
			Categories:    c.doc.Categories,
			Tags:          c.doc.Tags,
			Score:         c.hybrid,
			Explanation: RankingExplanation{
				LexicalScore:      c.lexNorm,
				SemanticScore:     c.semantic,
				RRFScore:          c.rrf,
				FieldBoost:        c.fieldBoost,
				FreshnessBoost:    c.freshnessBoost,
				TaxonomyBoost:     c.taxonomyBoost,
				AIScore:           c.aiScore,
				AIScoreNormalized: c.aiScore / 100,
				ScoreEstimated:    c.aiEstimated,
				AIWeight:          aiWeight,
				LexicalWeight:     1 - aiWeight,
				HybridScore:       c.hybrid,
				TypePriorityIndex: c.priorityIndex,
				Position:          offset + i + 1,
				Reason:            c.aiReason,
			},
		}
	}
	return results
}

// sourcesFor renders the top n candidates as numbered answer sources.
func sourcesFor(list []*candidate, n int) []llm.Source {
	n = min(n, len(list))
	sources := make([]llm.Source, n)
	for i := 0; i < n; i++ {
		sources[i] = llm.Source{
			Ordinal: i + 1,
			Title:   list[i].doc.Title,
			Excerpt: excerptOf(list[i].doc),
			URL:     list[i].doc.URL,
		}
	}
	return sources
}

// excerptOf prefers the document excerpt and falls back to the leading
// body text.
func excerptOf(doc *model.Document) string {
	if doc.Excerpt != "" {
		return doc.Excerpt
	}
	body := doc.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return body
}

func termNames(terms []model.Term) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Name
	}
	return out
}
