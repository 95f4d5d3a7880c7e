package model

// Claim is a typed assertion extracted from a candidate draft, tied to a
// grounded source URL when one survived validation.
type Claim struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // [0,1]
	SourceURL  string  `json:"source_url,omitempty"`
}

// Check is one of the three validation gates on a candidate.
type Check struct {
	Passed   bool     `json:"passed"`
	Evidence []string `json:"evidence,omitempty"`
	Claims   []Claim  `json:"claims,omitempty"`
	URL      string   `json:"url,omitempty"` // set for the Room check only
}

// Checks holds the spending/pain/room validation gates.
type Checks struct {
	Spending Check `json:"spending"`
	Pain     Check `json:"pain"`
	Room     Check `json:"room"`
}

// PassedCount returns how many of the three checks passed.
func (c Checks) PassedCount() int {
	n := 0
	for _, chk := range []Check{c.Spending, c.Pain, c.Room} {
		if chk.Passed {
			n++
		}
	}
	return n
}

// ProofPoint is a grounded citation backing a candidate.
type ProofPoint struct {
	Claim     string     `json:"claim"`
	SourceURL string     `json:"source_url"`
	Date      string     `json:"date,omitempty"`
	Source    SourceType `json:"source"`
}

// Outcomes holds the secondary outcome estimates for a candidate.
type Outcomes struct {
	TimeToFirstDollarDays int     `json:"time_to_first_dollar_days"`
	GTMDifficulty         int     `json:"gtm_difficulty"`         // 1-10, lower = easier
	IntegrationComplexity int     `json:"integration_complexity"` // 1-10, lower = easier
	WeightedScore         int     `json:"weighted_score"`         // 0-100 outcome score
	SpendEstimate         string  `json:"spend_estimate,omitempty"`
	Rationale             string  `json:"rationale,omitempty"`
	Confidence            float64 `json:"confidence,omitempty"`
}

// Competitor is an existing player in the candidate's space.
type Competitor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Note    string `json:"note,omitempty"`
	Pricing string `json:"pricing,omitempty"`
}

// Candidate is one opportunity record produced by validation (or fallback
// synthesis), enriched once with competitors and ranked once at finalize.
type Candidate struct {
	Name             string       `json:"name"`
	ProblemStatement string       `json:"problem_statement"`
	TargetUser       string       `json:"target_user,omitempty"`
	Checks           Checks       `json:"checks"`
	ProofPoints      []ProofPoint `json:"proof_points"`
	Outcomes         Outcomes     `json:"outcomes"`
	Competitors      []Competitor `json:"competitors,omitempty"`
	KillCriteria     []string     `json:"kill_criteria,omitempty"`
	Score            float64      `json:"score"`          // 0-100 candidate score
	CompositeRank    float64      `json:"composite_rank"` // blended final ordering score
	Subject          string       `json:"subject,omitempty"`
	LaunchReady      bool         `json:"launch_ready"`
	Fallback         bool         `json:"fallback,omitempty"`
}

// EvidenceBacked reports whether the candidate clears the weaker of the two
// quality bars: at least two checks passed and at least three proof points.
func (c Candidate) EvidenceBacked() bool {
	return c.Checks.PassedCount() >= 2 && len(c.ProofPoints) >= 3
}

// TrendItem is one synthesized trend observation for the final report.
type TrendItem struct {
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	Direction string `json:"direction,omitempty"` // rising|stable|fading
	SourceURL string `json:"source_url,omitempty"`
}
