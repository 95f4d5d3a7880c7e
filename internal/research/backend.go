// Package research runs the checkpointed pipeline for one niche: staged
// discovery with adaptive early-stop, candidate validation with grounding,
// concurrent enrichment, trend synthesis and final ranking. The generative
// backend is consumed through the Backend interface only.
package research

import (
	"context"

	"github.com/heyimsteve/nichescout/internal/model"
)

// DiscoverRequest asks the backend to collect raw evidence for one query
// against one source type, restricted to the date window.
type DiscoverRequest struct {
	Niche  string
	Query  string
	Source model.SourceType
	Window model.DateWindow
	Mode   model.DepthMode
}

// DiscoverResult carries the parsed items plus the usage of the call.
type DiscoverResult struct {
	Items []model.RawEvidenceItem
	Usage model.UsageTotals
}

// DraftRequest asks the backend to generate candidate drafts from scored
// evidence. Relaxed loosens the response-format constraints on the bounded
// retry before the deterministic fallback kicks in.
type DraftRequest struct {
	Niche         string
	Set           *model.EvidenceSet
	MaxCandidates int
	Relaxed       bool
}

// DraftResult carries untrusted candidate drafts. Every field of every draft
// goes through the candidate validator before use.
type DraftResult struct {
	Drafts []map[string]any
	Usage  model.UsageTotals
}

// Backend is the generative search/text collaborator of the orchestrator.
// Implementations must be safe for concurrent calls.
type Backend interface {
	Discover(ctx context.Context, req DiscoverRequest) (DiscoverResult, error)
	DraftCandidates(ctx context.Context, req DraftRequest) (DraftResult, error)
	Competitors(ctx context.Context, niche string, cand model.Candidate) ([]model.Competitor, model.UsageTotals, error)
	TrendItems(ctx context.Context, niche string, set *model.EvidenceSet) ([]model.TrendItem, model.UsageTotals, error)
}
