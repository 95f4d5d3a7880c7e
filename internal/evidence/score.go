package evidence

import (
	"math"
	"time"

	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/model"
)

// Score computes sub-scores and the composite score for every item of one
// source batch, in place. Given identical inputs the result is identical:
// recomputation after a checkpoint resume must reproduce the prior ranking,
// so nothing here may depend on wall-clock state beyond the passed now.
func Score(items []model.NormalizedEvidenceItem, src model.SourceType, now time.Time, cfg config.ScoringConfig) {
	blends := engagementBlends(items, src, cfg)
	minB, maxB := blendRange(blends)

	for i := range items {
		item := &items[i]
		item.Subs.Relevance = int(math.Round(item.Relevance * 100))
		item.Subs.Recency = recencySub(item.Date, now, cfg.RecencyMaxDays)

		var composite float64
		if src == model.SourceWeb {
			// Web pages carry no engagement signal; weights shift to
			// relevance/recency and generic results are trusted less.
			item.Subs.Engagement = 0
			composite = cfg.WebRelevance*float64(item.Subs.Relevance) +
				cfg.WebRecency*float64(item.Subs.Recency) -
				cfg.WebFlatPenalty
			switch item.DateConfidence {
			case model.DateConfidenceHigh:
				composite += cfg.WebHighConfBonus
			case model.DateConfidenceLow:
				composite -= cfg.WebLowConfPenalty
			}
		} else {
			var missingEngagement bool
			if b, ok := blends[i]; ok {
				item.Subs.Engagement = normalizeBlend(b, minB, maxB)
			} else {
				// The sub-score display stays meaningful; the penalty for
				// missing data hits the composite instead.
				item.Subs.Engagement = cfg.EngagementDefault
				missingEngagement = true
			}
			composite = cfg.PostRelevance*float64(item.Subs.Relevance) +
				cfg.PostRecency*float64(item.Subs.Recency) +
				cfg.PostEngagement*float64(item.Subs.Engagement)
			if missingEngagement {
				composite -= cfg.EngagementPenalty
			}
		}

		switch item.DateConfidence {
		case model.DateConfidenceLow:
			composite -= cfg.LowConfPenalty
		case model.DateConfidenceMed:
			composite -= cfg.MedConfPenalty
		}

		item.Score = clampScore(int(math.Round(composite)))
	}
}

// recencySub decays linearly from 100 (today or future-dated) to 0 at
// maxDays old. Undated items score 0 and rely on the confidence penalty.
func recencySub(date *string, now time.Time, maxDays int) int {
	if date == nil {
		return 0
	}
	d, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return 0
	}
	age := now.UTC().Truncate(24*time.Hour).Sub(d).Hours() / 24
	if age <= 0 {
		return 100
	}
	if maxDays <= 0 {
		maxDays = 30
	}
	sub := 100 * (1 - age/float64(maxDays))
	if sub < 0 {
		return 0
	}
	return int(math.Round(sub))
}

// engagementBlends returns the log1p-weighted blend per item index, for items
// that actually carry engagement counters.
func engagementBlends(items []model.NormalizedEvidenceItem, src model.SourceType, cfg config.ScoringConfig) map[int]float64 {
	blends := make(map[int]float64)
	if src == model.SourceWeb {
		return blends
	}
	for i, item := range items {
		e := item.Engagement
		if e == nil {
			continue
		}
		var primary, secondary float64
		switch src {
		case model.SourceCommunity:
			primary = float64(e.Upvotes)
			secondary = float64(e.Comments)
		case model.SourceMicro:
			primary = float64(e.Likes)
			secondary = float64(e.Reposts + e.Replies)
		}
		w := cfg.PrimaryWeight
		blends[i] = w*math.Log1p(primary) + (1-w)*math.Log1p(secondary)
	}
	return blends
}

func blendRange(blends map[int]float64) (min, max float64) {
	first := true
	for _, b := range blends {
		if first {
			min, max = b, b
			first = false
			continue
		}
		if b < min {
			min = b
		}
		if b > max {
			max = b
		}
	}
	return min, max
}

// normalizeBlend min-max normalizes a blend into [0,100] across the batch.
// A batch with a single distinct blend value pins to the midpoint.
func normalizeBlend(b, min, max float64) int {
	if max <= min {
		return 50
	}
	return int(math.Round(100 * (b - min) / (max - min)))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
