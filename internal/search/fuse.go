package search

import (
	"sort"
	"strings"
)

// Fusion defaults.
const (
	DefaultRRFConstant = 60
	DefaultRerankTopM  = 20
	DefaultAIWeight    = 0.7
)

// fuse computes reciprocal-rank-fusion scores across the lexical and
// semantic streams and returns the candidates ordered by RRF descending,
// ties by document id. Component scores stay on the candidate for the
// explanation.
func fuse(cands map[string]*candidate, k int) []*candidate {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	list := make([]*candidate, 0, len(cands))
	for _, c := range cands {
		list = append(list, c)
	}

	rankStream := func(score func(*candidate) float64) {
		ranked := make([]*candidate, 0, len(list))
		for _, c := range list {
			if score(c) > 0 {
				ranked = append(ranked, c)
			}
		}
		sort.Slice(ranked, func(i, j int) bool {
			si, sj := score(ranked[i]), score(ranked[j])
			if si != sj {
				return si > sj
			}
			return ranked[i].doc.ID < ranked[j].doc.ID
		})
		for rank, c := range ranked {
			c.rrf += 1.0 / float64(k+rank+1)
		}
	}
	rankStream(func(c *candidate) float64 { return c.lexical })
	rankStream(func(c *candidate) float64 { return c.semantic })

	normalizeLexical(list)

	sort.Slice(list, func(i, j int) bool {
		if list[i].rrf != list[j].rrf {
			return list[i].rrf > list[j].rrf
		}
		return list[i].doc.ID < list[j].doc.ID
	})
	if len(list) > 0 && list[0].rrf > 0 {
		maxRRF := list[0].rrf
		for _, c := range list {
			c.rrfNorm = c.rrf / maxRRF
		}
	}
	return list
}

// normalizeLexical maps boosted lexical scores into [0,1] across the set
// so the hybrid formula mixes comparable magnitudes.
func normalizeLexical(list []*candidate) {
	maxLex := 0.0
	for _, c := range list {
		if c.lexical > maxLex {
			maxLex = c.lexical
		}
	}
	for _, c := range list {
		if maxLex > 0 {
			c.lexNorm = c.lexical / maxLex
		}
	}
}

// adjustAIWeight applies the query-shape and intent adjustments, then
// clamps into [0,1].
func adjustAIWeight(base float64, query string, intent Intent) float64 {
	w := base
	trimmed := strings.TrimSpace(query)
	quoted := strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`)
	tokens := len(strings.Fields(trimmed))

	if tokens <= 2 || quoted {
		w *= 0.8
	}
	if intent == IntentPersonName {
		w = min(w*1.15, 0.9)
	}
	if tokens >= 6 || intent == IntentHowTo {
		w = min(w*1.1, 0.85)
	}
	return min(1, max(0, w))
}

// scoreHybrid computes the final score for every candidate and sorts by a
// single composite key: hybrid descending, post-type priority index
// ascending, document id ascending. When no model scores were applied the
// lexical evidence already sits inside the fused standing, so mixing
// lexNorm back in would double-count it and sink semantic-only hits; the
// discounted fused standing is then the score.
func scoreHybrid(list []*candidate, aiWeight float64, typePriority []string, reranked bool) {
	lexWeight := 1 - aiWeight
	for _, c := range list {
		if reranked {
			c.hybrid = lexWeight*c.lexNorm + aiWeight*(c.aiScore/100)
		} else {
			c.hybrid = c.aiScore / 100
		}
	}

	prio := make(map[string]int, len(typePriority))
	for i, t := range typePriority {
		prio[t] = i
	}
	priorityOf := func(c *candidate) int {
		if i, ok := prio[c.doc.Type]; ok {
			return i
		}
		return len(typePriority)
	}
	for _, c := range list {
		c.priorityIndex = priorityOf(c)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].hybrid != list[j].hybrid {
			return list[i].hybrid > list[j].hybrid
		}
		pi, pj := priorityOf(list[i]), priorityOf(list[j])
		if pi != pj {
			return pi < pj
		}
		return list[i].doc.ID < list[j].doc.ID
	})
}
