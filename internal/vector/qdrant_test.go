package vector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sitequery/sitequery/internal/model"
)

func TestPointID_StableAndDistinct(t *testing.T) {
	a := PointID("doc-1#0")
	b := PointID("doc-1#0")
	c := PointID("doc-1#1")

	assert.Equal(t, a, b, "same chunk id must hash to the same point id")
	assert.NotEqual(t, a, c)
}

func TestPayloadFor_IncludesParentMetadata(t *testing.T) {
	published := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	chunk := &model.Chunk{
		ID:          "doc-9#2",
		DocumentID:  "doc-9",
		Ordinal:     2,
		Title:       "About Us",
		Type:        "page",
		URL:         "https://example.com/about",
		PublishedAt: &published,
	}

	payload := payloadFor(chunk)

	assert.Equal(t, "doc-9", payload["document_id"])
	assert.Equal(t, "doc-9#2", payload["chunk_id"])
	assert.Equal(t, int64(2), payload["ordinal"])
	assert.Equal(t, "page", payload["type"])
	assert.Equal(t, "2025-03-15T12:00:00Z", payload["published_at"])
}

func TestPayloadFor_OmitsMissingDate(t *testing.T) {
	payload := payloadFor(&model.Chunk{ID: "d#0", DocumentID: "d"})
	_, ok := payload["published_at"]
	assert.False(t, ok)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.2))
	assert.Equal(t, 0.5, clamp01(0.5))
	assert.Equal(t, 1.0, clamp01(1.7))
}

func TestAliasSwap_DeleteThenCreate(t *testing.T) {
	ops := aliasSwap("content", "content_build_42")

	assert.Len(t, ops, 2)
	del := ops[0].GetDeleteAlias()
	assert.NotNil(t, del)
	assert.Equal(t, "content", del.GetAliasName())
	create := ops[1].GetCreateAlias()
	assert.NotNil(t, create)
	assert.Equal(t, "content", create.GetAliasName())
	assert.Equal(t, "content_build_42", create.GetCollectionName())
}

func TestIsStaleBuild(t *testing.T) {
	cases := []struct {
		name    string
		current string
		staging string
		stale   bool
	}{
		{"content_build_1", "content_build_2", "", true},
		{"content_build_2", "content_build_2", "", false},
		{"content_build_3", "content_build_2", "content_build_3", false},
		{"content", "content", "", false},
		{"other_build_1", "content_build_2", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.stale, isStaleBuild(tc.name, "content", tc.current, tc.staging),
			"name=%s current=%s staging=%s", tc.name, tc.current, tc.staging)
	}
}
