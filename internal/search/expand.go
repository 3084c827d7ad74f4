package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sitequery/sitequery/internal/llm"
)

// DefaultMaxVariants bounds the variant list, original included.
const DefaultMaxVariants = 3

// synonymDict drives deterministic expansion. Keys and values are
// lower-case single terms substituted in place.
var synonymDict = map[string][]string{
	"lawyer":   {"attorney"},
	"attorney": {"lawyer"},
	"price":    {"cost"},
	"cost":     {"price"},
	"pricing":  {"cost"},
	"buy":      {"purchase"},
	"purchase": {"buy"},
	"job":      {"career"},
	"jobs":     {"careers"},
	"help":     {"support"},
	"support":  {"help"},
	"phone":    {"contact"},
	"email":    {"contact"},
	"services": {"solutions"},
	"firm":     {"company"},
	"staff":    {"team"},
}

// Expander produces query variants for retrieval.
type Expander struct {
	llm         llm.Service
	maxVariants int
}

// NewExpander creates an expander. The LLM service may be nil, in which
// case only dictionary expansion runs.
func NewExpander(service llm.Service, maxVariants int) *Expander {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	return &Expander{llm: service, maxVariants: maxVariants}
}

// Expand returns up to maxVariants distinct query variants. The original
// query is always variant 0. Extra LLM-suggested phrasings may be passed
// in from an earlier rewrite call to avoid a second round trip.
func (e *Expander) Expand(ctx context.Context, query string, suggested []string) []string {
	variants := []string{query}
	if skipExpansion(query) {
		return variants
	}

	seen := map[string]bool{strings.ToLower(strings.TrimSpace(query)): true}
	add := func(v string) bool {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			return len(variants) < e.maxVariants
		}
		seen[key] = true
		variants = append(variants, v)
		return len(variants) < e.maxVariants
	}

	for _, v := range synonymVariants(query) {
		if !add(v) {
			return variants
		}
	}
	for _, v := range suggested {
		if !add(v) {
			return variants
		}
	}

	if e.llm != nil && e.llm.Available() && len(variants) < e.maxVariants {
		lines, err := e.llm.ExpandQuery(ctx, query, e.maxVariants-len(variants))
		if err != nil {
			slog.Debug("llm expansion skipped", slog.String("reason", err.Error()))
			return variants
		}
		for _, v := range lines {
			if !add(v) {
				break
			}
		}
	}
	return variants
}

// skipExpansion reports queries too short or too exact to rephrase.
func skipExpansion(query string) bool {
	trimmed := strings.TrimSpace(query)
	if len([]rune(trimmed)) < 5 {
		return true
	}
	if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return true
	}
	return len(strings.Fields(trimmed)) < 2
}

// synonymVariants substitutes dictionary synonyms one term at a time.
func synonymVariants(query string) []string {
	tokens := strings.Fields(query)
	var out []string
	for i, tok := range tokens {
		key := strings.ToLower(strings.Trim(tok, "?.,!"))
		for _, syn := range synonymDict[key] {
			variant := make([]string, len(tokens))
			copy(variant, tokens)
			variant[i] = syn
			out = append(out, strings.Join(variant, " "))
		}
	}
	return out
}
