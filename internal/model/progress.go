package model

// RunProgressEvent is one ordered progress sample emitted by the
// orchestrator. Ephemeral; only the checkpoint's step counters survive.
type RunProgressEvent struct {
	Stage          Stage  `json:"stage"`
	Message        string `json:"message"`
	ElapsedMS      int64  `json:"elapsed_ms"`
	ETAMS          int64  `json:"eta_ms"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
}

// SubjectState is a batch subject's lifecycle status.
type SubjectState string

const (
	SubjectPending   SubjectState = "pending"
	SubjectRunning   SubjectState = "running"
	SubjectCompleted SubjectState = "completed"
	SubjectFailed    SubjectState = "failed"
)

// SubjectStatus is the per-subject breakdown carried on batch progress events.
type SubjectStatus struct {
	State          SubjectState `json:"state"`
	CompletedSteps int          `json:"completed_steps"`
	TotalSteps     int          `json:"total_steps"`
	ETAMS          int64        `json:"eta_ms"`
	Error          string       `json:"error,omitempty"`
}

// BatchProgressEvent aggregates progress across concurrently running subjects.
type BatchProgressEvent struct {
	RunProgressEvent
	Subjects map[string]SubjectStatus `json:"subjects"`
}

// BatchResult is the merged outcome of a multi-subject batch run.
type BatchResult struct {
	Candidates []Candidate       `json:"candidates"`
	Reports    map[string]Report `json:"reports"`
	Failures   map[string]string `json:"failures,omitempty"`
	Usage      UsageTotals       `json:"usage_totals"`
}
