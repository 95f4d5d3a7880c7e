package backend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/model"
)

var isoDayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// extractList pulls the named array of objects out of model output that may
// surround the JSON with prose or code fences. Malformed output yields nil,
// never an error; the caller decides how to degrade.
func extractList(text, key string) []map[string]any {
	re := regexp.MustCompile(`\{[\s\S]*"` + key + `"[\s\S]*\}`)
	match := re.FindString(text)
	if match == "" {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(match), &obj); err != nil {
		return nil
	}
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}

	out := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// idPrefixes keep raw item IDs readable in logs and checkpoints.
var idPrefixes = map[model.SourceType]string{
	model.SourceCommunity: "C",
	model.SourceMicro:     "M",
	model.SourceWeb:       "W",
}

// parseEvidenceItems converts untrusted discovery output into raw items:
// URL required, relevance clamped to [0,1], non-ISO dates dropped to nil.
func parseEvidenceItems(text string, source model.SourceType, log *zap.Logger) []model.RawEvidenceItem {
	entries := extractList(text, "items")
	if entries == nil {
		log.Warn("no parseable items in discovery output", zap.String("source", string(source)))
		return nil
	}

	items := make([]model.RawEvidenceItem, 0, len(entries))
	for _, entry := range entries {
		url := stringField(entry, "url")
		if url == "" {
			continue
		}
		if source == model.SourceCommunity && !strings.Contains(url, "reddit.com") {
			continue
		}

		item := model.RawEvidenceItem{
			ID:          fmt.Sprintf("%s%d", idPrefixes[source], len(items)+1),
			Source:      source,
			Title:       stringField(entry, "title"),
			Text:        stringField(entry, "text"),
			URL:         url,
			Channel:     strings.TrimPrefix(stringField(entry, "channel"), "r/"),
			WhyRelevant: stringField(entry, "why_relevant"),
			Relevance:   clamp01(floatField(entry, "relevance", 0.5)),
		}

		if day := stringField(entry, "date"); isoDayRe.MatchString(day) {
			item.Date = &day
		}
		if source != model.SourceWeb {
			item.Engagement = parseEngagement(entry)
		}
		items = append(items, item)
	}
	return items
}

func parseEngagement(entry map[string]any) *model.Engagement {
	raw, ok := entry["engagement"].(map[string]any)
	if !ok {
		return nil
	}
	eng := &model.Engagement{
		Upvotes:  intField(raw, "upvotes"),
		Comments: intField(raw, "comments"),
		Likes:    intField(raw, "likes"),
		Reposts:  intField(raw, "reposts"),
		Replies:  intField(raw, "replies"),
	}
	if *eng == (model.Engagement{}) {
		return nil
	}
	return eng
}

func parseCompetitors(text string) []model.Competitor {
	entries := extractList(text, "competitors")
	out := make([]model.Competitor, 0, len(entries))
	for _, entry := range entries {
		name := stringField(entry, "name")
		if name == "" {
			continue
		}
		out = append(out, model.Competitor{
			Name:    name,
			URL:     stringField(entry, "url"),
			Note:    stringField(entry, "note"),
			Pricing: stringField(entry, "pricing"),
		})
	}
	return out
}

var trendDirections = map[string]struct{}{"rising": {}, "stable": {}, "fading": {}}

func parseTrendItems(text string) []model.TrendItem {
	entries := extractList(text, "items")
	out := make([]model.TrendItem, 0, len(entries))
	for _, entry := range entries {
		title := stringField(entry, "title")
		if title == "" {
			continue
		}
		item := model.TrendItem{
			Title:     title,
			Summary:   stringField(entry, "summary"),
			SourceURL: stringField(entry, "source_url"),
		}
		if dir := strings.ToLower(stringField(entry, "direction")); dir != "" {
			if _, ok := trendDirections[dir]; ok {
				item.Direction = dir
			}
		}
		out = append(out, item)
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func floatField(m map[string]any, key string, def float64) float64 {
	f, ok := m[key].(float64)
	if !ok {
		return def
	}
	return f
}

func intField(m map[string]any, key string) int {
	f, ok := m[key].(float64)
	if !ok {
		return 0
	}
	return int(f)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
