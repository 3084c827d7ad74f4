package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandOriginalIsAlwaysFirst(t *testing.T) {
	e := NewExpander(nil, 3)
	variants := e.Expand(context.Background(), "lawyer fees explained", nil)
	require.NotEmpty(t, variants)
	assert.Equal(t, "lawyer fees explained", variants[0])
}

func TestExpandSkipsShortAndExactQueries(t *testing.T) {
	e := NewExpander(nil, 3)

	assert.Equal(t, []string{"tax"}, e.Expand(context.Background(), "tax", nil))
	assert.Equal(t, []string{"hi"}, e.Expand(context.Background(), "hi", nil))
	assert.Equal(t, []string{`"exact phrase"`}, e.Expand(context.Background(), `"exact phrase"`, nil))
}

func TestExpandUsesSynonymDictionary(t *testing.T) {
	e := NewExpander(nil, 3)
	variants := e.Expand(context.Background(), "lawyer fees explained", nil)
	assert.Contains(t, variants, "attorney fees explained")
}

func TestExpandDedupesCaseInsensitively(t *testing.T) {
	e := NewExpander(nil, 5)
	variants := e.Expand(context.Background(), "lawyer fees explained",
		[]string{"Attorney fees explained", "LAWYER FEES EXPLAINED", "fee schedule"})
	seen := map[string]bool{}
	for _, v := range variants {
		lower := strings.ToLower(v)
		assert.False(t, seen[lower], "duplicate variant %q", v)
		seen[lower] = true
	}
	assert.Contains(t, variants, "fee schedule")
}

func TestExpandCapsVariantCount(t *testing.T) {
	e := NewExpander(nil, 3)
	variants := e.Expand(context.Background(), "lawyer fees explained",
		[]string{"a1 lawyer", "a2 lawyer", "a3 lawyer", "a4 lawyer"})
	assert.Len(t, variants, 3)
}
