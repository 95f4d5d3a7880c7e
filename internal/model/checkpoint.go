package model

import "time"

// Stage is one state of the research orchestrator.
type Stage string

const (
	StageStarting   Stage = "starting"
	StageDiscover   Stage = "discovering"
	StageCandidates Stage = "validating:candidates"
	StageEnrichment Stage = "validating:enrichment"
	StageTrend      Stage = "validating:trend"
	StageComplete   Stage = "complete"
)

// DepthMode selects how much discovery work a run performs.
type DepthMode string

const (
	ModeQuick   DepthMode = "quick"
	ModeDefault DepthMode = "default"
	ModeDeep    DepthMode = "deep"
)

// QueryPlanEntry is one natural-language discovery query in the run plan.
type QueryPlanEntry struct {
	Text   string     `json:"text"`
	Source SourceType `json:"source"`
}

// UsageTotals accumulates backend token usage across a run.
type UsageTotals struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Requests     int   `json:"requests"`
}

// Add accumulates another usage sample.
func (u *UsageTotals) Add(other UsageTotals) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Requests += other.Requests
}

// ResearchCheckpoint is the durable snapshot of one run's progress, keyed by
// a caller-supplied resume key. Exclusively owned by the orchestrator instance
// processing that key; the store does no cross-process locking, so two
// invocations sharing a key race (last write wins).
type ResearchCheckpoint struct {
	Niche               string                           `json:"niche"`
	Mode                DepthMode                        `json:"mode"`
	StartedAt           time.Time                        `json:"started_at"`
	Queries             []QueryPlanEntry                 `json:"queries"`
	TotalSteps          int                              `json:"total_steps"`
	CompletedSteps      int                              `json:"completed_steps"`
	CompletedQueryCount int                              `json:"completed_query_count"`
	Usage               UsageTotals                      `json:"usage_totals"`
	RawEvidence         map[SourceType][]RawEvidenceItem `json:"raw_evidence_by_source"`
	// Stage results deliberately omit omitempty: a completed stage with an
	// empty result must survive a JSON round-trip as [] rather than null,
	// or resume would rerun it.
	FinalCandidates    []Candidate `json:"final_candidates"`
	EnrichedCandidates []Candidate `json:"enriched_candidates"`
	TrendItems         []TrendItem `json:"trend_items"`
	FinalReport        *Report     `json:"final_report,omitempty"`
	EarlyStopped       bool        `json:"early_stopped,omitempty"`
	RecoveryNotes      []string    `json:"recovery_notes,omitempty"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Clone returns a deep-enough copy for snapshot-then-persist semantics: the
// orchestrator mutates the copy, saves it, and only then adopts it, so the
// serialized bytes always match the in-memory state at the moment of save.
func (c *ResearchCheckpoint) Clone() *ResearchCheckpoint {
	cp := *c
	cp.Queries = append([]QueryPlanEntry(nil), c.Queries...)
	cp.RawEvidence = make(map[SourceType][]RawEvidenceItem, len(c.RawEvidence))
	for src, items := range c.RawEvidence {
		cp.RawEvidence[src] = append([]RawEvidenceItem(nil), items...)
	}
	// Preserve nil-ness: a nil stage result means "not reached yet" and
	// must not turn into an empty slice (or vice versa).
	if c.FinalCandidates != nil {
		cp.FinalCandidates = append([]Candidate{}, c.FinalCandidates...)
	}
	if c.EnrichedCandidates != nil {
		cp.EnrichedCandidates = append([]Candidate{}, c.EnrichedCandidates...)
	}
	if c.TrendItems != nil {
		cp.TrendItems = append([]TrendItem{}, c.TrendItems...)
	}
	cp.RecoveryNotes = append([]string(nil), c.RecoveryNotes...)
	return &cp
}

// Report is the finalized output of a research run.
type Report struct {
	Niche          string             `json:"niche"`
	Mode           DepthMode          `json:"mode"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Window         DateWindow         `json:"window"`
	Candidates     []Candidate        `json:"candidates"`
	TrendItems     []TrendItem        `json:"trend_items,omitempty"`
	EvidenceCounts map[SourceType]int `json:"evidence_counts"`
	Usage          UsageTotals        `json:"usage_totals"`
	RecoveryNotes  []string           `json:"recovery_notes,omitempty"`
	EarlyStopped   bool               `json:"early_stopped,omitempty"`
}
