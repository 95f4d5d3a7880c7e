package evidence

import (
	"strings"

	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/model"
)

// DedupePosts collapses near-identical text posts. It builds a character
// shingle set per item and removes the lower-scored member of any pair whose
// Jaccard similarity meets the threshold; ties keep the earlier item. O(n²)
// per source, acceptable at per-run item caps.
//
// The pass is idempotent: after one application no surviving pair meets the
// threshold, because marking considers every pair regardless of whether a
// member was already marked.
func DedupePosts(items []model.NormalizedEvidenceItem, cfg config.DedupConfig) []model.NormalizedEvidenceItem {
	if len(items) < 2 {
		return items
	}
	size := cfg.ShingleSize
	if size <= 0 {
		size = 3
	}

	sets := make([]map[string]struct{}, len(items))
	for i, item := range items {
		sets[i] = shingles(normalizeText(item.Title+" "+item.Text), size)
	}

	removed := make([]bool, len(items))
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if jaccard(sets[i], sets[j]) < cfg.SimilarityThreshold {
				continue
			}
			if items[j].Score > items[i].Score {
				removed[i] = true
			} else {
				removed[j] = true
			}
		}
	}

	out := make([]model.NormalizedEvidenceItem, 0, len(items))
	for i, item := range items {
		if !removed[i] {
			out = append(out, item)
		}
	}
	return out
}

// DedupeWeb collapses web pages on exact canonical URL only; titles and
// snippets are too heterogeneous for shingling to be reliable. The
// higher-scored page wins, ties keep the earlier one.
func DedupeWeb(items []model.NormalizedEvidenceItem) []model.NormalizedEvidenceItem {
	best := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for i, item := range items {
		key, err := CanonicalURL(item.URL)
		if err != nil {
			key = item.URL
		}
		prev, ok := best[key]
		if !ok {
			best[key] = i
			order = append(order, key)
			continue
		}
		if item.Score > items[prev].Score {
			best[key] = i
		}
	}

	out := make([]model.NormalizedEvidenceItem, 0, len(best))
	for _, key := range order {
		out = append(out, items[best[key]])
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func shingles(s string, k int) map[string]struct{} {
	set := make(map[string]struct{})
	runes := []rune(s)
	if len(runes) < k {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+k <= len(runes); i++ {
		set[string(runes[i:i+k])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
