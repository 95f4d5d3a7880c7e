package evidence

import (
	"github.com/heyimsteve/nichescout/internal/config"
)

// testResearchConfig mirrors the shipped viper defaults.
func testResearchConfig() config.ResearchConfig {
	return config.ResearchConfig{
		WindowDays: 30,
		Scoring:    testScoringConfig(),
		Dedup: config.DedupConfig{
			SimilarityThreshold: 0.70,
			ShingleSize:         3,
		},
	}
}

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		RecencyMaxDays:    30,
		PostRelevance:     0.45,
		PostRecency:       0.25,
		PostEngagement:    0.30,
		WebRelevance:      0.55,
		WebRecency:        0.45,
		WebFlatPenalty:    6,
		WebHighConfBonus:  4,
		WebLowConfPenalty: 6,
		EngagementDefault: 35,
		EngagementPenalty: 3,
		PrimaryWeight:     0.55,
		LowConfPenalty:    5,
		MedConfPenalty:    2,
		StrongThreshold:   60,
	}
}

func strPtr(s string) *string { return &s }
