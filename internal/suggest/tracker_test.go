package suggest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordAndSuggest(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tr.Record(ctx, "tax planning")
	}
	tr.Record(ctx, "tax deadlines")
	tr.Record(ctx, "Tax Planning") // normalizes onto the first
	tr.Record(ctx, "audit support")

	got := tr.Suggest(ctx, "tax", 10)
	assert.Equal(t, []string{"tax planning", "tax deadlines"}, got)
}

func TestSuggestLimit(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		tr.Record(ctx, fmt.Sprintf("tax topic %d", i))
	}
	assert.Len(t, tr.Suggest(ctx, "tax", 2), 2)
}

func TestSuggestSynonymPrefix(t *testing.T) {
	tr := New(Config{})
	ctx := context.Background()
	tr.Record(ctx, "attorney fees")

	// "lawyer" completes through its synonym.
	got := tr.Suggest(ctx, "lawyer", 5)
	assert.Contains(t, got, "attorney fees")
}

func TestSuggestEmptyPrefix(t *testing.T) {
	tr := New(Config{})
	assert.Nil(t, tr.Suggest(context.Background(), "  ", 5))
}

func TestEviction(t *testing.T) {
	tr := New(Config{MaxTracked: 10})
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		tr.Record(ctx, fmt.Sprintf("query number %d", i))
	}
	assert.LessOrEqual(t, tr.Tracked(), 11)
}

func TestMemoryOnlyAvailable(t *testing.T) {
	tr := New(Config{})
	assert.True(t, tr.Available(context.Background()))
}
