package evidence

import (
	"sort"
	"time"

	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/model"
)

// BuildSet runs the full evidence pipeline for every source: normalize
// against the window, score, consolidate near-duplicates, then truncate to
// the per-source display limit. Dedup runs before truncation so the limit
// reflects distinct items. Pure: identical inputs yield an identical set.
func BuildSet(
	raw map[model.SourceType][]model.RawEvidenceItem,
	window model.DateWindow,
	now time.Time,
	cfg config.ResearchConfig,
	perSourceLimit int,
) *model.EvidenceSet {
	set := &model.EvidenceSet{}
	for _, src := range model.SourceTypes {
		items := Normalize(raw[src], window)
		Score(items, src, now, cfg.Scoring)

		if src == model.SourceWeb {
			items = DedupeWeb(items)
		} else {
			items = DedupePosts(items, cfg.Dedup)
		}

		sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
		if perSourceLimit > 0 && len(items) > perSourceLimit {
			items = items[:perSourceLimit]
		}
		set.SetSource(src, items)
	}
	return set
}

// StrongCounts returns the number of items at or above the strong-score
// threshold per source, used by the discovery early-stop heuristic.
func StrongCounts(set *model.EvidenceSet, threshold int) map[model.SourceType]int {
	counts := make(map[model.SourceType]int, len(model.SourceTypes))
	for _, src := range model.SourceTypes {
		for _, item := range set.BySource(src) {
			if item.Score >= threshold {
				counts[src]++
			}
		}
	}
	return counts
}
