package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/model"
)

func TestExtractList(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"bare object", `{"items": [{"a": 1}, {"b": 2}]}`, 2},
		{"prose around json", "Here are the results:\n```json\n{\"items\": [{\"a\": 1}]}\n```\nDone.", 1},
		{"malformed json", `{"items": [{"a": 1}`, 0},
		{"wrong key", `{"results": [{"a": 1}]}`, 0},
		{"key not a list", `{"items": "nope"}`, 0},
		{"non-object entries skipped", `{"items": [1, "two", {"a": 1}]}`, 1},
		{"empty text", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, extractList(tt.text, "items"), tt.want)
		})
	}
}

func TestParseEvidenceItems(t *testing.T) {
	text := `{"items": [
		{"title": "Good thread", "url": "https://www.reddit.com/r/hvac/comments/a1/", "channel": "r/hvac", "date": "2026-08-20", "relevance": 1.7, "engagement": {"upvotes": 40, "comments": 12}},
		{"title": "No url"},
		{"title": "Wrong site", "url": "https://example.com/post"},
		{"title": "Bad date", "url": "https://reddit.com/r/hvac/comments/a2/", "date": "last week", "relevance": -3}
	]}`

	items := parseEvidenceItems(text, model.SourceCommunity, zap.NewNop())
	require.Len(t, items, 2)

	assert.Equal(t, "C1", items[0].ID)
	assert.Equal(t, "hvac", items[0].Channel)
	assert.Equal(t, 1.0, items[0].Relevance, "relevance clamps to [0,1]")
	require.NotNil(t, items[0].Date)
	assert.Equal(t, "2026-08-20", *items[0].Date)
	require.NotNil(t, items[0].Engagement)
	assert.Equal(t, 40, items[0].Engagement.Upvotes)

	assert.Equal(t, "C2", items[1].ID)
	assert.Nil(t, items[1].Date, "non-ISO dates are dropped")
	assert.Equal(t, 0.0, items[1].Relevance)
	assert.Nil(t, items[1].Engagement)
}

func TestParseEvidenceItems_WebIgnoresEngagement(t *testing.T) {
	text := `{"items": [{"title": "Page", "url": "https://blog.example.com/post", "engagement": {"upvotes": 9}}]}`
	items := parseEvidenceItems(text, model.SourceWeb, zap.NewNop())
	require.Len(t, items, 1)
	assert.Equal(t, "W1", items[0].ID)
	assert.Nil(t, items[0].Engagement)
}

func TestParseEvidenceItems_Malformed(t *testing.T) {
	assert.Nil(t, parseEvidenceItems("total garbage", model.SourceMicro, zap.NewNop()))
}

func TestParseCompetitors(t *testing.T) {
	text := `{"competitors": [
		{"name": "DispatchPro", "url": "https://dispatchpro.example", "pricing": "$99/mo"},
		{"note": "nameless entries are dropped"}
	]}`
	comps := parseCompetitors(text)
	require.Len(t, comps, 1)
	assert.Equal(t, "DispatchPro", comps[0].Name)
	assert.Equal(t, "$99/mo", comps[0].Pricing)
}

func TestParseTrendItems(t *testing.T) {
	text := `{"items": [
		{"title": "Consolidation", "direction": "Rising", "summary": "s"},
		{"title": "Oddball", "direction": "sideways"},
		{"summary": "untitled entries are dropped"}
	]}`
	trends := parseTrendItems(text)
	require.Len(t, trends, 2)
	assert.Equal(t, "rising", trends[0].Direction)
	assert.Empty(t, trends[1].Direction, "unknown directions are cleared")
}
