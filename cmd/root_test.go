package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyimsteve/nichescout/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"research", "batch", "checkpoints"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "nichescout", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestResearchCommand_Flags(t *testing.T) {
	flag := researchCmd.Flags().Lookup("mode")
	require.NotNil(t, flag, "research command should have --mode flag")
	assert.Equal(t, "default", flag.DefValue)

	require.NotNil(t, researchCmd.Flags().Lookup("resume"))
	require.NotNil(t, researchCmd.Flags().Lookup("json"))
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("mode")
	require.NotNil(t, flag, "batch command should have --mode flag")
	assert.Equal(t, "default", flag.DefValue)
}

func TestCheckpointsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range checkpointsCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"list", "clear", "import"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestFormatReport(t *testing.T) {
	r := model.Report{
		Niche:  "bookkeeping",
		Mode:   model.ModeQuick,
		Window: model.DateWindow{From: "2026-08-01", To: "2026-08-30"},
		Candidates: []model.Candidate{
			{
				Name:             "Export reconciler",
				ProblemStatement: "Teams rekey exports every week",
				Score:            80,
				CompositeRank:    78.5,
				LaunchReady:      true,
				KillCriteria:     []string{"No competitors found"},
			},
		},
		EvidenceCounts: map[model.SourceType]int{model.SourceCommunity: 4},
		TrendItems:     []model.TrendItem{{Title: "steady interest", Direction: "stable"}},
	}

	var buf bytes.Buffer
	formatReport(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "bookkeeping")
	assert.Contains(t, out, "Export reconciler")
	assert.Contains(t, out, "launch")
	assert.Contains(t, out, "kill: No competitors found")
	assert.Contains(t, out, "steady interest (stable)")
}

func TestFormatReport_NoCandidates(t *testing.T) {
	var buf bytes.Buffer
	formatReport(&buf, model.Report{Niche: "x"})
	assert.Contains(t, buf.String(), "No candidates survived validation.")
}

func TestFormatBatchResult(t *testing.T) {
	res := &model.BatchResult{
		Reports: map[string]model.Report{"a": {}, "b": {}},
		Failures: map[string]string{
			"c": "backend unavailable",
		},
		Candidates: []model.Candidate{
			{Name: "merged one", Subject: "a", Score: 75, CompositeRank: 70.1},
		},
	}

	var buf bytes.Buffer
	formatBatchResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "2 researched, 1 failed")
	assert.Contains(t, out, "merged one")
	assert.True(t, strings.Contains(out, "evidence"))
}
