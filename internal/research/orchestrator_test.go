package research

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyimsteve/nichescout/internal/checkpoint"
	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/model"
	"github.com/heyimsteve/nichescout/internal/resilience"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Research: config.ResearchConfig{
			WindowDays: 30,
			Scoring: config.ScoringConfig{
				RecencyMaxDays: 30,
				PostRelevance:  0.45, PostRecency: 0.25, PostEngagement: 0.30,
				WebRelevance: 0.55, WebRecency: 0.45,
				WebFlatPenalty: 6, WebHighConfBonus: 4, WebLowConfPenalty: 6,
				EngagementDefault: 35, EngagementPenalty: 3,
				PrimaryWeight:  0.55,
				LowConfPenalty: 5, MedConfPenalty: 2,
				StrongThreshold: 60,
			},
			Dedup: config.DedupConfig{SimilarityThreshold: 0.70, ShingleSize: 3},
			Modes: map[string]config.ModeConfig{
				"quick":   {Queries: 3, Concurrency: 2, PerSourceLimit: 8, EarlyStopFloor: 3, EarlyStopTotal: 16, EarlyStopStrong: 4, MaxCandidates: 3, EnrichConcurrency: 2},
				"default": {Queries: 5, Concurrency: 3, PerSourceLimit: 12, EarlyStopFloor: 3, EarlyStopTotal: 24, EarlyStopStrong: 6, MaxCandidates: 5, EnrichConcurrency: 3},
				"deep":    {Queries: 8, Concurrency: 4, PerSourceLimit: 24, EarlyStopFloor: 4, EarlyStopTotal: 40, EarlyStopStrong: 10, MaxCandidates: 8, EnrichConcurrency: 4},
			},
		},
	}
}

func testOptions(b Backend, store checkpoint.Store, key string) Options {
	return Options{
		Backend:   b,
		Store:     store,
		Config:    testConfig(),
		ResumeKey: key,
		Retry:     resilience.RetryConfig{MaxAttempts: 1},
		Now:       func() time.Time { return testNow },
	}
}

// usableDraft builds one launch-ready draft grounded in the run's own
// evidence, the way a well-behaved backend would.
func usableDraft(req DraftRequest) (DraftResult, error) {
	items := req.Set.All()
	if len(items) < 3 {
		return DraftResult{}, nil
	}
	proofs := make([]any, 0, 3)
	for _, item := range items[:3] {
		proofs = append(proofs, map[string]any{"claim": item.Title, "source_url": item.URL})
	}
	draft := map[string]any{
		"name":              "Reconciliation autopilot",
		"problem_statement": "Teams rekey data between systems every week",
		"checks": map[string]any{
			"spending": map[string]any{"passed": true},
			"pain":     map[string]any{"passed": true},
			"room":     map[string]any{"passed": true},
		},
		"proof_points": proofs,
		"outcomes": map[string]any{
			"time_to_first_dollar_days": 45.0,
			"gtm_difficulty":            4.0,
			"integration_complexity":    3.0,
			"spend_estimate":            "$120/mo",
		},
		"score": 82.0,
	}
	return DraftResult{Drafts: []map[string]any{draft}, Usage: model.UsageTotals{Requests: 1}}, nil
}

// countingStore counts Save calls on top of a real store.
type countingStore struct {
	checkpoint.Store
	mu    sync.Mutex
	saves int
}

func (s *countingStore) Save(ctx context.Context, key string, cp *model.ResearchCheckpoint) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.Store.Save(ctx, key, cp)
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func TestRun_CompletesQuickMode(t *testing.T) {
	b := &mockBackend{draftFn: func(_ int, req DraftRequest) (DraftResult, error) { return usableDraft(req) }}
	store := checkpoint.NewMemory()

	o, err := New(testOptions(b, store, "hvac-dispatch"))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	discover, draft, competitors, trend := b.calls()
	assert.Equal(t, 3, discover)
	assert.Equal(t, 1, draft)
	assert.Equal(t, 1, competitors)
	assert.Equal(t, 1, trend)

	require.Len(t, res.Report.Candidates, 1)
	cand := res.Report.Candidates[0]
	assert.True(t, cand.LaunchReady)
	assert.NotZero(t, cand.CompositeRank)
	assert.Equal(t, []model.Competitor{{Name: "incumbent"}}, cand.Competitors)
	assert.False(t, res.Report.EarlyStopped)
	assert.Empty(t, res.Report.RecoveryNotes)
	assert.Empty(t, res.Warning)

	cp, err := store.Load(context.Background(), "hvac-dispatch")
	require.NoError(t, err)
	require.NotNil(t, cp)
	require.NotNil(t, cp.FinalReport)
	assert.Equal(t, cp.TotalSteps, cp.CompletedSteps)
}

func TestRun_CompletedCheckpointShortCircuits(t *testing.T) {
	store := checkpoint.NewMemory()
	seeded := &model.ResearchCheckpoint{
		Niche:       "seeded niche",
		Mode:        model.ModeQuick,
		FinalReport: &model.Report{Niche: "seeded niche", Mode: model.ModeQuick},
	}
	require.NoError(t, store.Save(context.Background(), "done", seeded))

	b := &mockBackend{}
	o, err := New(testOptions(b, store, "done"))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "seeded niche", "quick")
	require.NoError(t, err)
	assert.Equal(t, "seeded niche", res.Report.Niche)

	discover, draft, competitors, trend := b.calls()
	assert.Zero(t, discover+draft+competitors+trend)
}

func TestRun_ResumeAfterInterruptionMatchesUninterrupted(t *testing.T) {
	newBackend := func(failFirstDraft bool) *mockBackend {
		failed := false
		return &mockBackend{draftFn: func(_ int, req DraftRequest) (DraftResult, error) {
			if failFirstDraft && !failed {
				failed = true
				return DraftResult{}, eris.New("model returned garbage")
			}
			return usableDraft(req)
		}}
	}

	// Reference: one uninterrupted run.
	refBackend := newBackend(false)
	refOrch, err := New(testOptions(refBackend, checkpoint.NewMemory(), "ref"))
	require.NoError(t, err)
	ref, err := refOrch.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	// Interrupted: draft stage fails permanently after discovery persisted.
	store := checkpoint.NewMemory()
	b := newBackend(true)
	first, err := New(testOptions(b, store, "resume-me"))
	require.NoError(t, err)
	_, err = first.Run(context.Background(), "hvac dispatch software", "quick")
	require.Error(t, err)

	cp, err := store.Load(context.Background(), "resume-me")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, 3, cp.CompletedQueryCount)
	assert.Nil(t, cp.FinalCandidates)

	// Resume with the same backend responses: discovery must not rerun and
	// the final report must match the uninterrupted run.
	second, err := New(testOptions(b, store, "resume-me"))
	require.NoError(t, err)
	res, err := second.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	discover, _, _, _ := b.calls()
	assert.Equal(t, 3, discover, "resume must not repeat completed discovery")
	assert.Equal(t, ref.Report, res.Report)
}

func TestRun_EarlyStopNeverFiresAtQueryFloor(t *testing.T) {
	// quick mode: floor equals the plan length, so the heuristic can never
	// fire before the last query.
	b := &mockBackend{draftFn: func(_ int, req DraftRequest) (DraftResult, error) { return usableDraft(req) }}
	o, err := New(testOptions(b, checkpoint.NewMemory(), "floor"))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	discover, _, _, _ := b.calls()
	assert.Equal(t, 3, discover)
	assert.False(t, res.Report.EarlyStopped)
}

func TestRun_EarlyStopSkipsRemainingQueries(t *testing.T) {
	b := &mockBackend{draftFn: func(_ int, req DraftRequest) (DraftResult, error) { return usableDraft(req) }}
	opts := testOptions(b, checkpoint.NewMemory(), "early")
	opts.Config.Research.Modes["default"] = config.ModeConfig{
		Queries: 5, Concurrency: 1, PerSourceLimit: 12,
		EarlyStopFloor: 2, EarlyStopTotal: 4, EarlyStopStrong: 2,
		MaxCandidates: 3, EnrichConcurrency: 2,
	}
	var final model.RunProgressEvent
	opts.Progress = func(ev model.RunProgressEvent) { final = ev }
	o, err := New(opts)
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "hvac dispatch software", "default")
	require.NoError(t, err)

	discover, _, _, _ := b.calls()
	assert.Equal(t, 2, discover, "remaining queries must be skipped, not run")
	assert.True(t, res.Report.EarlyStopped)
	// Skipped queries still count toward the step budget.
	assert.Equal(t, final.TotalSteps, final.CompletedSteps)
	assert.Equal(t, model.StageComplete, final.Stage)
}

func TestRun_CancellationSuppressesWritesAndEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &mockBackend{}
	b.discoverFn = func(call int, req DiscoverRequest) (DiscoverResult, error) {
		if call >= 2 {
			cancel()
			return DiscoverResult{}, context.Canceled
		}
		return DiscoverResult{Items: cannedItems(req.Source, req.Query, 3)}, nil
	}

	store := &countingStore{Store: checkpoint.NewMemory()}
	opts := testOptions(b, store, "cancel-me")
	var events []model.RunProgressEvent
	opts.Progress = func(ev model.RunProgressEvent) { events = append(events, ev) }

	o, err := New(opts)
	require.NoError(t, err)

	_, err = o.Run(ctx, "hvac dispatch software", "quick")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// Only the initial starting snapshot may have been written; the batch
	// that observed cancellation must not persist or report progress.
	assert.Equal(t, 1, store.saveCount())
	require.NotEmpty(t, events)
	assert.Equal(t, model.StageStarting, events[len(events)-1].Stage)
}

func TestRun_TransientTrendFailureDegradesWithArtifact(t *testing.T) {
	artifacts := t.TempDir()

	b := &mockBackend{
		draftFn: func(_ int, req DraftRequest) (DraftResult, error) { return usableDraft(req) },
		trendFn: func(int) ([]model.TrendItem, model.UsageTotals, error) {
			return nil, model.UsageTotals{}, resilience.NewTransientError(errors.New("upstream unavailable"), 503)
		},
	}
	opts := testOptions(b, checkpoint.NewMemory(), "degraded")
	opts.ArtifactsDir = artifacts

	o, err := New(opts)
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	assert.NotEmpty(t, res.Warning)
	assert.Empty(t, res.Report.TrendItems)
	require.NotEmpty(t, res.Report.RecoveryNotes)
	assert.Contains(t, res.Report.RecoveryNotes[len(res.Report.RecoveryNotes)-1], artifacts)

	matches, err := filepath.Glob(filepath.Join(artifacts, "degraded-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), checkpoint.ArtifactKind)
}

func TestRun_FallbackWhenGenerationUnusable(t *testing.T) {
	b := &mockBackend{draftFn: func(_ int, _ DraftRequest) (DraftResult, error) {
		return DraftResult{Usage: model.UsageTotals{Requests: 1}}, nil
	}}
	o, err := New(testOptions(b, checkpoint.NewMemory(), "fallback"))
	require.NoError(t, err)

	res, err := o.Run(context.Background(), "hvac dispatch software", "quick")
	require.NoError(t, err)

	_, draft, _, _ := b.calls()
	assert.Equal(t, 2, draft, "a relaxed retry precedes the fallback")

	require.NotEmpty(t, res.Report.Candidates)
	for _, cand := range res.Report.Candidates {
		assert.True(t, cand.Fallback)
		assert.GreaterOrEqual(t, len(cand.ProofPoints), 3)
	}
	require.NotEmpty(t, res.Report.RecoveryNotes)
}

func TestRun_RequiresNiche(t *testing.T) {
	o, err := New(testOptions(&mockBackend{}, checkpoint.NewMemory(), "x"))
	require.NoError(t, err)
	_, err = o.Run(context.Background(), "  ", "quick")
	assert.Error(t, err)
}

func TestBuildQueryPlan(t *testing.T) {
	plan := buildQueryPlan("growler cleaning", 3)
	require.Len(t, plan, 3)
	assert.Contains(t, plan[0].Text, "growler cleaning")
	assert.Equal(t, plan, buildQueryPlan("growler cleaning", 3))

	// Counts are clamped to the template list.
	assert.Len(t, buildQueryPlan("x", 50), len(queryTemplates))
	assert.Len(t, buildQueryPlan("x", 0), 1)
}

func TestEtaMS(t *testing.T) {
	assert.Zero(t, etaMS(time.Second, 0, 10))
	assert.Zero(t, etaMS(time.Second, 10, 10))
	assert.Equal(t, int64(4000), etaMS(time.Second, 2, 10))
}
