package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sitequery/sitequery/internal/model"
)

func daysAgo(d int) *time.Time {
	t := time.Now().AddDate(0, 0, -d)
	return &t
}

func TestFieldBoostTitleTiers(t *testing.T) {
	tokens := boostTokens("tax planning")

	exact := &model.Document{Title: "Tax planning for startups"}
	allTok := &model.Document{Title: "Planning your tax year"}
	oneTok := &model.Document{Title: "Tax basics"}
	none := &model.Document{Title: "Quarterly review"}

	bExact := fieldBoost(exact, "tax planning", tokens)
	bAll := fieldBoost(allTok, "tax planning", tokens)
	bOne := fieldBoost(oneTok, "tax planning", tokens)
	bNone := fieldBoost(none, "tax planning", tokens)

	assert.Equal(t, maxFieldBoost, bExact) // 1+3 capped at 2
	assert.Equal(t, maxFieldBoost, bAll)   // 1+2 capped at 2
	assert.Equal(t, 2.0, bOne)             // 1+1
	assert.Equal(t, 1.0, bNone)
}

func TestFieldBoostIgnoresShortTokens(t *testing.T) {
	tokens := boostTokens("go up")
	assert.Empty(t, tokens)
	doc := &model.Document{Title: "going places"}
	assert.Equal(t, 1.0, fieldBoost(doc, "go up", tokens))
}

func TestFieldBoostCap(t *testing.T) {
	doc := &model.Document{
		Title:   "tax planning guide",
		Excerpt: "tax planning for everyone",
		Body:    "tax planning details",
	}
	b := fieldBoost(doc, "tax planning", boostTokens("tax planning"))
	assert.Equal(t, maxFieldBoost, b)
}

func TestFreshnessBoostTiers(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1.5, freshnessBoost(&model.Document{PublishedAt: daysAgo(10)}, now))
	assert.Equal(t, 1.2, freshnessBoost(&model.Document{PublishedAt: daysAgo(60)}, now))
	assert.Equal(t, 1.1, freshnessBoost(&model.Document{PublishedAt: daysAgo(200)}, now))
	assert.Equal(t, 1.0, freshnessBoost(&model.Document{PublishedAt: daysAgo(500)}, now))
	assert.Equal(t, 1.0, freshnessBoost(&model.Document{}, now))
}

func TestTaxonomyBoost(t *testing.T) {
	doc := &model.Document{
		Categories: []model.Term{{Slug: "tax", Name: "Tax"}},
		Tags:       []model.Term{{Slug: "planning", Name: "Planning"}},
	}

	// Exact category match.
	b := taxonomyBoost(doc, "tax", boostTokens("tax"))
	assert.InDelta(t, 1.3, b, 0.001)

	// Exact tag match.
	b = taxonomyBoost(doc, "planning", boostTokens("planning"))
	assert.InDelta(t, 1.2, b, 0.001)

	// No taxonomy signal.
	b = taxonomyBoost(doc, "mergers", boostTokens("mergers"))
	assert.Equal(t, 1.0, b)
}

func TestTaxonomyBoostCap(t *testing.T) {
	doc := &model.Document{
		Categories: []model.Term{{Name: "tax planning"}, {Name: "planning tax advice"}},
		Tags:       []model.Term{{Name: "tax planning"}, {Name: "tax planning tips"}},
	}
	b := taxonomyBoost(doc, "tax planning", boostTokens("tax planning"))
	assert.LessOrEqual(t, b, maxTaxonomyBoost)
}

func TestAdjustAIWeight(t *testing.T) {
	// Short query dampens.
	assert.InDelta(t, 0.56, adjustAIWeight(0.7, "tax help", IntentGeneral), 0.001)

	// Person name raises with ceiling. Two tokens also dampen first.
	w := adjustAIWeight(0.7, "James Walsh", IntentPersonName)
	assert.InDelta(t, 0.7*0.8*1.15, w, 0.001)

	// Long query raises with ceiling.
	w = adjustAIWeight(0.8, "how do I file my quarterly taxes online", IntentHowTo)
	assert.InDelta(t, 0.85, w, 0.001)

	// Always clamped into [0,1].
	assert.LessOrEqual(t, adjustAIWeight(1.0, "one two three four five six seven", IntentGeneral), 1.0)
	assert.GreaterOrEqual(t, adjustAIWeight(0.0, "ab", IntentGeneral), 0.0)
}
