package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MaxExcerptLen truncates candidate excerpts in the rerank prompt.
const MaxExcerptLen = 300

// Rerank scores every candidate against the query. The result always
// covers the full candidate set in input order: ids the model omitted get
// an estimated score of lexicalScore x 0.9 and Estimated=true.
func (c *Client) Rerank(ctx context.Context, req RerankRequest) (*RerankResult, error) {
	if len(req.Candidates) == 0 {
		return &RerankResult{}, nil
	}

	system := buildRerankSystem(req.Intent, req.Instructions)
	user := buildRerankUser(req)
	raw, tokens, err := c.complete(ctx, rerankPrompt.name, system, user, 1500)
	if err != nil {
		return nil, err
	}

	var wire []struct {
		ID      int     `json:"id"`
		AIScore float64 `json:"ai_score"`
		Reason  string  `json:"reason"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		slog.Warn("rerank output unparseable, estimating all scores")
		wire = nil
	}

	// First occurrence wins; unknown ids are dropped.
	byID := make(map[int]Score, len(wire))
	for _, w := range wire {
		if _, seen := byID[w.ID]; seen {
			continue
		}
		byID[w.ID] = Score{Index: w.ID, AIScore: w.AIScore, Reason: w.Reason}
	}

	scores := make([]Score, len(req.Candidates))
	for i, cand := range req.Candidates {
		if s, ok := byID[cand.Index]; ok {
			scores[i] = s
		} else {
			scores[i] = Score{
				Index:     cand.Index,
				AIScore:   cand.LexicalScore * 0.9,
				Estimated: true,
			}
		}
	}
	normalizeScores(scores)

	return &RerankResult{Scores: scores, TokensUsed: tokens}, nil
}

// buildRerankUser renders the candidate list for the prompt.
func buildRerankUser(req RerankRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", req.Query)
	now := time.Now()
	for _, cand := range req.Candidates {
		excerpt := cand.Excerpt
		if len(excerpt) > MaxExcerptLen {
			excerpt = excerpt[:MaxExcerptLen]
		}
		days := -1
		if cand.PublishedAt != nil {
			days = int(now.Sub(*cand.PublishedAt).Hours() / 24)
		}
		fmt.Fprintf(&b, "id=%d | %s | type=%s | published %s | %d words | lexical=%.1f\n",
			cand.Index, cand.Title, cand.Type, freshnessLabel(days), cand.WordCount, cand.LexicalScore)
		if len(cand.Categories) > 0 {
			fmt.Fprintf(&b, "  categories: %s\n", strings.Join(cand.Categories, ", "))
		}
		if len(cand.Tags) > 0 {
			fmt.Fprintf(&b, "  tags: %s\n", strings.Join(cand.Tags, ", "))
		}
		fmt.Fprintf(&b, "  %s\n", excerpt)
	}
	return b.String()
}

// normalizeScores spreads narrow-band model output across 60..100 by
// percentile, or min-max rescales scores that escaped [0,100]. Estimated
// scores are left alone apart from clamping.
func normalizeScores(scores []Score) {
	var modeled []float64
	for _, s := range scores {
		if !s.Estimated {
			modeled = append(modeled, s.AIScore)
		}
	}
	if len(modeled) >= 2 {
		lo, hi := modeled[0], modeled[0]
		for _, v := range modeled {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		switch {
		case hi-lo < 20:
			percentileSpread(scores, modeled)
		case lo < 0 || hi > 100:
			for i := range scores {
				if !scores[i].Estimated {
					scores[i].AIScore = (scores[i].AIScore - lo) / (hi - lo) * 100
				}
			}
		}
	}
	for i := range scores {
		scores[i].AIScore = min(100, max(0, scores[i].AIScore))
	}
}

// percentileSpread maps modeled scores onto 60..100 by rank. Equal inputs
// keep equal outputs.
func percentileSpread(scores []Score, modeled []float64) {
	sorted := append([]float64(nil), modeled...)
	sort.Float64s(sorted)
	n := len(sorted)
	rankOf := func(v float64) float64 {
		below := sort.SearchFloat64s(sorted, v)
		if n == 1 {
			return 1
		}
		return float64(below) / float64(n-1)
	}
	for i := range scores {
		if scores[i].Estimated {
			continue
		}
		scores[i].AIScore = 60 + rankOf(scores[i].AIScore)*40
	}
}
