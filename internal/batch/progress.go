package batch

import (
	"fmt"
	"sync"
	"time"

	"github.com/heyimsteve/nichescout/internal/model"
)

// aggregator folds per-subject progress events into batch-level ones: summed
// step counters, ETA = the slowest running subject, and a status table.
type aggregator struct {
	mu       sync.Mutex
	progress func(model.BatchProgressEvent)
	now      func() time.Time
	started  time.Time
	subjects map[string]model.SubjectStatus
}

func newAggregator(subjects []string, progress func(model.BatchProgressEvent), now func() time.Time) *aggregator {
	table := make(map[string]model.SubjectStatus, len(subjects))
	for _, s := range subjects {
		table[s] = model.SubjectStatus{State: model.SubjectPending}
	}
	return &aggregator{
		progress: progress,
		now:      now,
		started:  now(),
		subjects: table,
	}
}

func (a *aggregator) start(subject string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.subjects[subject]
	st.State = model.SubjectRunning
	a.subjects[subject] = st
	a.emitLocked(model.StageStarting, fmt.Sprintf("started %q", subject))
}

func (a *aggregator) update(subject string, ev model.RunProgressEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.subjects[subject]
	st.CompletedSteps = ev.CompletedSteps
	st.TotalSteps = ev.TotalSteps
	st.ETAMS = ev.ETAMS
	a.subjects[subject] = st
	a.emitLocked(ev.Stage, fmt.Sprintf("%s: %s", subject, ev.Message))
}

func (a *aggregator) finish(subject string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.subjects[subject]
	st.ETAMS = 0
	if err != nil {
		st.State = model.SubjectFailed
		st.Error = err.Error()
	} else {
		st.State = model.SubjectCompleted
		st.CompletedSteps = st.TotalSteps
	}
	a.subjects[subject] = st
	a.emitLocked(model.StageComplete, fmt.Sprintf("finished %q", subject))
}

func (a *aggregator) emitLocked(stage model.Stage, msg string) {
	if a.progress == nil {
		return
	}

	var completed, total int
	var eta int64
	table := make(map[string]model.SubjectStatus, len(a.subjects))
	for subject, st := range a.subjects {
		completed += st.CompletedSteps
		total += st.TotalSteps
		if st.State == model.SubjectRunning && st.ETAMS > eta {
			eta = st.ETAMS
		}
		table[subject] = st
	}

	a.progress(model.BatchProgressEvent{
		RunProgressEvent: model.RunProgressEvent{
			Stage:          stage,
			Message:        msg,
			ElapsedMS:      a.now().Sub(a.started).Milliseconds(),
			ETAMS:          eta,
			CompletedSteps: completed,
			TotalSteps:     total,
		},
		Subjects: table,
	})
}
