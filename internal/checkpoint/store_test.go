package checkpoint

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyimsteve/nichescout/internal/model"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"passthrough", "my-run_1.2", "my-run_1.2"},
		{"lowercases", "MyRun", "myrun"},
		{"collapses unsafe runs", "ai note taking / august!!", "ai-note-taking-august"},
		{"trims dashes", "  --run--  ", "run"},
		{"empty becomes default", "///", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeKey(tt.in))
		})
	}
}

func TestSanitizeKey_LengthCapped(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "abcd"
	}
	assert.LessOrEqual(t, len(SanitizeKey(long)), maxKeyLen)
}

func testCheckpoint(niche string) *model.ResearchCheckpoint {
	return &model.ResearchCheckpoint{
		Niche:     niche,
		Mode:      model.ModeQuick,
		StartedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Queries: []model.QueryPlanEntry{
			{Text: "q1", Source: model.SourceCommunity},
		},
		TotalSteps:          7,
		CompletedSteps:      2,
		CompletedQueryCount: 1,
		RawEvidence: map[model.SourceType][]model.RawEvidenceItem{
			model.SourceCommunity: {{ID: "a", URL: "https://example.com/a"}},
		},
		UpdatedAt: time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC),
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	loaded, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	cp := testCheckpoint("ai note apps")
	require.NoError(t, store.Save(ctx, "Run One", cp))

	loaded, err = store.Load(ctx, "run one")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, cp.Niche, loaded.Niche)
	assert.Equal(t, cp.CompletedQueryCount, loaded.CompletedQueryCount)

	// Load returns a copy; mutating it must not alter the stored snapshot.
	loaded.CompletedQueryCount = 99
	again, err := store.Load(ctx, "run one")
	require.NoError(t, err)
	assert.Equal(t, 1, again.CompletedQueryCount)

	require.NoError(t, store.Clear(ctx, "run one"))
	gone, err := store.Load(ctx, "run one")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLite(ctx, t.TempDir()+"/checkpoints.db")
	require.NoError(t, err)
	defer store.Close()

	cp := testCheckpoint("invoice tooling")
	require.NoError(t, store.Save(ctx, "run-a", cp))

	loaded, err := store.Load(ctx, "run-a")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "invoice tooling", loaded.Niche)
	assert.Len(t, loaded.RawEvidence[model.SourceCommunity], 1)

	// Save again under the same key: last write wins.
	cp.CompletedQueryCount = 3
	require.NoError(t, store.Save(ctx, "run-a", cp))
	loaded, err = store.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.CompletedQueryCount)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "run-a", infos[0].Key)
	assert.False(t, infos[0].Finalized)

	require.NoError(t, store.Clear(ctx, "run-a"))
	gone, err := store.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStageOf(t *testing.T) {
	cp := testCheckpoint("x")
	assert.Equal(t, model.StageDiscover, stageOf(cp))

	cp.FinalCandidates = []model.Candidate{{Name: "c"}}
	assert.Equal(t, model.StageCandidates, stageOf(cp))

	cp.EnrichedCandidates = []model.Candidate{{Name: "c"}}
	assert.Equal(t, model.StageEnrichment, stageOf(cp))

	cp.TrendItems = []model.TrendItem{{Title: "t"}}
	assert.Equal(t, model.StageTrend, stageOf(cp))

	cp.FinalReport = &model.Report{}
	assert.Equal(t, model.StageComplete, stageOf(cp))
}

func TestArtifact_WriteImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewMemory()

	cp := testCheckpoint("fitness coaching apps")
	notes := []string{"discovery query 3 failed: rate limited"}
	path, err := WriteArtifact(dir, "My Run", notes, nil, cp)
	require.NoError(t, err)
	assert.FileExists(t, path)

	key, err := ImportArtifact(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, "my-run", key)

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "fitness coaching apps", loaded.Niche)
}

func TestImportArtifact_RejectsWrongKind(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bogus.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"other","version":1}`), 0o644))

	_, err := ImportArtifact(context.Background(), NewMemory(), path)
	assert.Error(t, err)
}
