// Package candidate turns untrusted generated drafts into grounded opportunity
// records, synthesizes fallback candidates when generation yields nothing
// usable, and ranks the final list.
package candidate

import (
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/evidence"
	"github.com/heyimsteve/nichescout/internal/model"
)

const (
	maxEvidencePerCheck = 6
	maxProofPoints      = 8
	maxClaimsPerCheck   = 5
	maxKillCriteria     = 8
	minGroundedProofs   = 3
)

var sourceEnum = []string{
	string(model.SourceCommunity),
	string(model.SourceMicro),
	string(model.SourceWeb),
}

// Validator decodes candidate drafts and enforces the grounding rule against
// an evidence index.
type Validator struct {
	index *evidence.Index
	log   *zap.Logger
}

// NewValidator creates a validator over a built evidence index.
func NewValidator(index *evidence.Index) *Validator {
	return &Validator{index: index, log: zap.L().Named("candidate")}
}

// ValidateAll decodes each draft into a candidate, keeps at most max of them,
// and reports whether any survivor is usable (launch-ready or evidence-backed).
func (v *Validator) ValidateAll(drafts []map[string]any, max int) ([]model.Candidate, bool) {
	out := make([]model.Candidate, 0, len(drafts))
	usable := false
	for _, draft := range drafts {
		cand, ok := v.Validate(draft)
		if !ok {
			continue
		}
		out = append(out, cand)
		if cand.LaunchReady || cand.EvidenceBacked() {
			usable = true
		}
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, usable
}

// Validate decodes one untrusted draft. It returns false only when the draft
// lacks even a name or problem statement; everything else degrades to a
// default rather than failing.
func (v *Validator) Validate(draft map[string]any) (model.Candidate, bool) {
	name := str(draft, "name", "")
	problem := str(draft, "problem_statement", str(draft, "problem", ""))
	if name == "" || problem == "" {
		v.log.Debug("dropping draft without name or problem statement")
		return model.Candidate{}, false
	}

	cand := model.Candidate{
		Name:             name,
		ProblemStatement: problem,
		TargetUser:       str(draft, "target_user", ""),
		Checks: model.Checks{
			Spending: v.decodeCheck(mapAt(mapAt(draft, "checks"), "spending"), false),
			Pain:     v.decodeCheck(mapAt(mapAt(draft, "checks"), "pain"), false),
			Room:     v.decodeCheck(mapAt(mapAt(draft, "checks"), "room"), true),
		},
		Outcomes: model.Outcomes{
			TimeToFirstDollarDays: intClamp(mapAt(draft, "outcomes"), "time_to_first_dollar_days", 1, 3650, 90),
			GTMDifficulty:         intClamp(mapAt(draft, "outcomes"), "gtm_difficulty", 1, 10, 5),
			IntegrationComplexity: intClamp(mapAt(draft, "outcomes"), "integration_complexity", 1, 10, 5),
			SpendEstimate:         str(mapAt(draft, "outcomes"), "spend_estimate", ""),
			Rationale:             str(mapAt(draft, "outcomes"), "rationale", ""),
			Confidence:            numClamp(mapAt(draft, "outcomes"), "confidence", 0, 1, 0.5),
		},
		KillCriteria: strSlice(draft, "kill_criteria", maxKillCriteria),
		Score:        numClamp(draft, "score", 0, 100, 50),
	}

	for _, raw := range mapSlice(draft, "proof_points", maxProofPoints) {
		pp, ok := v.groundProofPoint(raw)
		if !ok {
			continue
		}
		cand.ProofPoints = append(cand.ProofPoints, pp)
	}
	for _, raw := range mapSlice(draft, "sources", maxProofPoints) {
		pp, ok := v.groundProofPoint(raw)
		if !ok {
			continue
		}
		cand.ProofPoints = append(cand.ProofPoints, pp)
	}
	if len(cand.ProofPoints) > maxProofPoints {
		cand.ProofPoints = cand.ProofPoints[:maxProofPoints]
	}

	cand.LaunchReady = cand.Checks.PassedCount() == 3 && len(cand.ProofPoints) >= minGroundedProofs
	return cand, true
}

// decodeCheck decodes one validation gate, grounding every claim URL and, for
// the room check, the check-level URL itself.
func (v *Validator) decodeCheck(raw map[string]any, withURL bool) model.Check {
	check := model.Check{
		Passed:   boolOr(raw, "passed", false),
		Evidence: strSlice(raw, "evidence", maxEvidencePerCheck),
	}
	for _, claimRaw := range mapSlice(raw, "claims", maxClaimsPerCheck) {
		claim := model.Claim{
			Text:       str(claimRaw, "text", ""),
			Confidence: numClamp(claimRaw, "confidence", 0, 1, 0.5),
		}
		if claim.Text == "" {
			continue
		}
		if rawURL := str(claimRaw, "source_url", str(claimRaw, "url", "")); rawURL != "" {
			if _, key, ok := v.index.Lookup(rawURL); ok {
				claim.SourceURL = key
			} else {
				v.log.Debug("dropping ungrounded claim url", zap.String("url", rawURL))
			}
		}
		check.Claims = append(check.Claims, claim)
	}
	if withURL {
		if rawURL := str(raw, "url", ""); rawURL != "" {
			if _, key, ok := v.index.Lookup(rawURL); ok {
				check.URL = key
			}
		}
	}
	return check
}

// groundProofPoint enforces the hard grounding invariant: a proof point whose
// source URL does not resolve through the evidence index is discarded, and an
// accepted URL is rewritten to its canonical form.
func (v *Validator) groundProofPoint(raw map[string]any) (model.ProofPoint, bool) {
	rawURL := str(raw, "source_url", str(raw, "url", ""))
	if rawURL == "" {
		return model.ProofPoint{}, false
	}
	item, key, ok := v.index.Lookup(rawURL)
	if !ok {
		v.log.Debug("dropping ungrounded proof point", zap.String("url", rawURL))
		return model.ProofPoint{}, false
	}

	pp := model.ProofPoint{
		Claim:     str(raw, "claim", str(raw, "title", item.Title)),
		SourceURL: key,
		Source:    model.SourceType(enumOr(raw, "source", sourceEnum, string(item.Source))),
	}
	pp.Date = str(raw, "date", "")
	if pp.Date == "" && item.Date != nil {
		pp.Date = *item.Date
	}
	return pp, true
}
