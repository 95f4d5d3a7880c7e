package evidence

import (
	"github.com/heyimsteve/nichescout/internal/model"
)

// Normalize converts raw items into normalized items for one source type.
// Items whose date falls outside the inclusive window are dropped; items with
// no date are kept. An unknown date is not grounds for exclusion, only for a
// confidence penalty.
func Normalize(items []model.RawEvidenceItem, window model.DateWindow) []model.NormalizedEvidenceItem {
	out := make([]model.NormalizedEvidenceItem, 0, len(items))
	for _, item := range items {
		if item.Date != nil && !window.Contains(*item.Date) {
			continue
		}

		conf := model.DateConfidenceLow
		if item.Date != nil && window.Contains(*item.Date) {
			conf = model.DateConfidenceHigh
		}

		out = append(out, model.NormalizedEvidenceItem{
			RawEvidenceItem: item,
			DateConfidence:  conf,
			// Subs and Score start at zero; scoring is a separate pass so
			// normalization stays pure and source-agnostic.
		})
	}
	return out
}
