package search

import (
	"strings"
	"time"

	"github.com/sitequery/sitequery/internal/model"
)

// Boost caps.
const (
	maxFieldBoost    = 2.0
	maxTaxonomyAdd   = 0.5
	maxTaxonomyBoost = 1.5
)

// boostTokens returns the lower-cased query tokens usable for field
// matching. Tokens under three characters are ignored.
func boostTokens(query string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, `"?.,!`)
		if len(tok) >= 3 {
			out = append(out, tok)
		}
	}
	return out
}

// fieldBoost rewards query presence in title, excerpt, and body. The
// bonuses sum onto a 1.0 base and the factor is capped.
func fieldBoost(doc *model.Document, query string, tokens []string) float64 {
	phrase := strings.ToLower(strings.Trim(strings.TrimSpace(query), `"`))
	title := strings.ToLower(doc.Title)
	excerpt := strings.ToLower(doc.Excerpt)
	body := strings.ToLower(doc.Body)

	bonus := 0.0
	switch {
	case phrase != "" && strings.Contains(title, phrase):
		bonus += 3.0
	case allTokensIn(title, tokens):
		bonus += 2.0
	case anyTokenIn(title, tokens):
		bonus += 1.0
	}
	if phrase != "" && strings.Contains(excerpt, phrase) {
		bonus += 1.5
	} else if anyTokenIn(excerpt, tokens) {
		bonus += 0.5
	}
	if anyTokenIn(body, tokens) {
		bonus += 0.2
	}

	factor := 1.0 + bonus
	if factor > maxFieldBoost {
		factor = maxFieldBoost
	}
	return factor
}

// freshnessBoost rewards recent publication. Missing dates are neutral.
func freshnessBoost(doc *model.Document, now time.Time) float64 {
	age, ok := doc.Age(now)
	if !ok {
		return 1.0
	}
	days := age.Hours() / 24
	switch {
	case days < 30:
		return 1.5
	case days < 90:
		return 1.2
	case days < 365:
		return 1.1
	default:
		return 1.0
	}
}

// taxonomyBoost rewards category and tag matches. Additive bonuses are
// capped, then converted to a multiplicative factor.
func taxonomyBoost(doc *model.Document, query string, tokens []string) float64 {
	phrase := strings.ToLower(strings.Trim(strings.TrimSpace(query), `"`))

	add := 0.0
	add += termBoost(doc.Categories, phrase, tokens, 0.3, 0.15)
	add += termBoost(doc.Tags, phrase, tokens, 0.2, 0.1)
	if add > maxTaxonomyAdd {
		add = maxTaxonomyAdd
	}

	factor := 1.0 + add
	if factor > maxTaxonomyBoost {
		factor = maxTaxonomyBoost
	}
	return factor
}

// termBoost scores one taxonomy: full bonus for an exact name match,
// partial for token overlap. Each taxonomy contributes at most once per
// bonus tier.
func termBoost(terms []model.Term, phrase string, tokens []string, exact, overlap float64) float64 {
	matchedExact := false
	matchedOverlap := false
	for _, t := range terms {
		name := strings.ToLower(t.Name)
		if name == "" {
			continue
		}
		if name == phrase {
			matchedExact = true
			continue
		}
		if anyTokenIn(name, tokens) {
			matchedOverlap = true
		}
	}
	bonus := 0.0
	if matchedExact {
		bonus += exact
	}
	if matchedOverlap {
		bonus += overlap
	}
	return bonus
}

// boostFactors records the multipliers applied to one stream score. They
// travel with the score so the ranking explanation can report them.
type boostFactors struct {
	field     float64
	freshness float64
	taxonomy  float64
}

// applyBoosts runs the full boost pipeline for one variant.
func applyBoosts(score float64, doc *model.Document, variant string, tokens []string, now time.Time) (float64, boostFactors) {
	bf := boostFactors{
		field:     fieldBoost(doc, variant, tokens),
		freshness: freshnessBoost(doc, now),
		taxonomy:  taxonomyBoost(doc, variant, tokens),
	}
	return score * bf.field * bf.freshness * bf.taxonomy, bf
}

func allTokensIn(text string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}

func anyTokenIn(text string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
