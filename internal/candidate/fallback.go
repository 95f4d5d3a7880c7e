package candidate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/evidence"
	"github.com/heyimsteve/nichescout/internal/model"
)

// painKeywords mark headlines that describe a problem worth building against.
var painKeywords = []string{
	"struggle", "struggling", "frustrat", "hate", "annoy", "problem",
	"pain", "can't", "cannot", "broken", "difficult", "tedious",
	"manual", "waste", "wasting", "slow", "expensive", "nightmare",
	"wish", "missing", "lacking", "fed up", "stuck",
}

// spendKeywords suggest people already pay for something in this space.
var spendKeywords = []string{
	"pay", "paid", "paying", "$", "subscription", "pricing", "price",
	"budget", "cost", "invoice", "spend",
}

const (
	fallbackMaxCandidates = 3
	fallbackProofTarget   = 4
)

// Fallback synthesizes 1-3 candidates directly from scored evidence when
// generation produced nothing usable. It is deterministic: the same evidence
// set always yields the same candidates, and every proof point is grounded
// because it is built from an indexed item.
func Fallback(set *model.EvidenceSet, index *evidence.Index, niche string, max int) []model.Candidate {
	if max <= 0 || max > fallbackMaxCandidates {
		max = fallbackMaxCandidates
	}
	items := set.All()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) == 0 {
		return nil
	}

	issues := extractIssues(items, max)
	if len(issues) == 0 {
		issues = []string{fmt.Sprintf("Recurring problems around %s", niche)}
	}

	log := zap.L().Named("candidate")
	out := make([]model.Candidate, 0, len(issues))
	for i, issue := range issues {
		// Rotate the starting offset so candidates lead with different
		// evidence even when their overlap rankings coincide.
		selected := matchEvidence(issue, items, i, fallbackProofTarget)
		if len(selected) == 0 {
			continue
		}

		cand := buildFallbackCandidate(issue, niche, selected, index)
		if len(cand.ProofPoints) == 0 {
			continue
		}
		log.Info("synthesized fallback candidate",
			zap.String("name", cand.Name),
			zap.Int("proof_points", len(cand.ProofPoints)))
		out = append(out, cand)
	}
	return out
}

// extractIssues pulls headline phrases containing pain-indicating keywords
// from the highest-scored items down.
func extractIssues(items []model.NormalizedEvidenceItem, max int) []string {
	seen := make(map[string]struct{})
	var issues []string
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		lower := strings.ToLower(title)
		if !containsAny(lower, painKeywords) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		issues = append(issues, title)
		if len(issues) >= max {
			break
		}
	}
	return issues
}

// matchEvidence ranks items by lexical overlap with the issue phrase and
// returns up to want of them, starting at a rotated offset. Items with zero
// overlap still participate at the tail so a candidate always reaches the
// proof-point floor when the set is large enough.
func matchEvidence(issue string, items []model.NormalizedEvidenceItem, rotation, want int) []model.NormalizedEvidenceItem {
	issueTokens := tokens(issue)

	type scored struct {
		item    model.NormalizedEvidenceItem
		overlap int
		pos     int
	}
	ranked := make([]scored, 0, len(items))
	for pos, item := range items {
		ranked = append(ranked, scored{
			item:    item,
			overlap: overlapCount(issueTokens, tokens(item.Title+" "+item.Text)),
			pos:     pos,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].pos < ranked[j].pos
	})

	if len(ranked) == 0 {
		return nil
	}
	start := rotation % len(ranked)
	out := make([]model.NormalizedEvidenceItem, 0, want)
	for i := 0; i < len(ranked) && len(out) < want; i++ {
		out = append(out, ranked[(start+i)%len(ranked)].item)
	}
	return out
}

func buildFallbackCandidate(issue, niche string, selected []model.NormalizedEvidenceItem, index *evidence.Index) model.Candidate {
	evidenceLines := make([]string, 0, len(selected))
	var proofs []model.ProofPoint
	scoreSum := 0
	spendSignal := false

	for _, item := range selected {
		evidenceLines = append(evidenceLines, item.Title)
		scoreSum += item.Score
		if containsAny(strings.ToLower(item.Title+" "+item.Text), spendKeywords) {
			spendSignal = true
		}
		_, key, ok := index.Lookup(item.URL)
		if !ok {
			continue
		}
		pp := model.ProofPoint{Claim: item.Title, SourceURL: key, Source: item.Source}
		if item.Date != nil {
			pp.Date = *item.Date
		}
		proofs = append(proofs, pp)
	}

	cand := model.Candidate{
		Name:             truncate(issue, 80),
		ProblemStatement: issue,
		TargetUser:       fmt.Sprintf("People active in %s", niche),
		Checks: model.Checks{
			Pain:     model.Check{Passed: true, Evidence: evidenceLines},
			Spending: model.Check{Passed: spendSignal, Evidence: evidenceLines},
		},
		ProofPoints: proofs,
		Outcomes: model.Outcomes{
			TimeToFirstDollarDays: 90,
			GTMDifficulty:         5,
			IntegrationComplexity: 5,
			Confidence:            0.3,
		},
		Fallback: true,
	}
	if len(selected) > 0 {
		cand.Score = float64(scoreSum) / float64(len(selected))
	}
	return cand
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,!?:;\"'()[]")
		if len(word) >= 3 {
			out[word] = struct{}{}
		}
	}
	return out
}

func overlapCount(a, b map[string]struct{}) int {
	n := 0
	for word := range a {
		if _, ok := b[word]; ok {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}
