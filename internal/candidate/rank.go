package candidate

import (
	"math"
	"sort"

	"github.com/heyimsteve/nichescout/internal/model"
)

const (
	scoreWeight   = 0.65
	outcomeWeight = 0.35

	killDaysThreshold       = 120
	killDifficultyThreshold = 8
)

// OutcomeScore maps the three outcome estimates onto a 0-100 score. Each
// component contributes up to 10 points; lower difficulty and complexity and a
// shorter time to first dollar score higher.
func OutcomeScore(o model.Outcomes) int {
	timeComp := 10 - (float64(o.TimeToFirstDollarDays)-14)/35
	if timeComp < 0 {
		timeComp = 0
	}
	if timeComp > 10 {
		timeComp = 10
	}
	gtmComp := float64(11 - o.GTMDifficulty)
	intComp := float64(11 - o.IntegrationComplexity)
	return int(math.Round((timeComp + gtmComp + intComp) / 30 * 100))
}

// Rank computes outcome scores and composite ranks, appends threshold-derived
// kill criteria, and orders candidates by descending composite rank.
func Rank(cands []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(cands))
	copy(out, cands)

	for i := range out {
		out[i].Outcomes.WeightedScore = OutcomeScore(out[i].Outcomes)
		out[i].CompositeRank = scoreWeight*out[i].Score + outcomeWeight*float64(out[i].Outcomes.WeightedScore)
		out[i].KillCriteria = appendKillCriteria(out[i])
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CompositeRank > out[j].CompositeRank })
	return out
}

// appendKillCriteria adds threshold-derived criteria to whatever the draft
// already carried, deduplicated and capped.
func appendKillCriteria(c model.Candidate) []string {
	criteria := append([]string{}, c.KillCriteria...)

	if c.Outcomes.SpendEstimate == "" {
		criteria = append(criteria, "No spend estimate identified")
	}
	if c.Outcomes.TimeToFirstDollarDays > killDaysThreshold {
		criteria = append(criteria, "Time to first dollar exceeds 120 days")
	}
	if c.Outcomes.GTMDifficulty >= killDifficultyThreshold {
		criteria = append(criteria, "Go-to-market difficulty 8 or higher")
	}
	if c.Outcomes.IntegrationComplexity >= killDifficultyThreshold {
		criteria = append(criteria, "Integration complexity 8 or higher")
	}
	if len(c.Competitors) == 0 {
		criteria = append(criteria, "No competitors found")
	}

	seen := make(map[string]struct{}, len(criteria))
	deduped := criteria[:0]
	for _, entry := range criteria {
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		deduped = append(deduped, entry)
	}
	if len(deduped) > maxKillCriteria {
		deduped = deduped[:maxKillCriteria]
	}
	return deduped
}
