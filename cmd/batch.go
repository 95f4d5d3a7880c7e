package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/backend"
	"github.com/heyimsteve/nichescout/internal/batch"
	"github.com/heyimsteve/nichescout/internal/model"
)

var (
	batchMode string
	batchJSON bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <subject> [subject...]",
	Short: "Research several subjects concurrently and merge the candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open checkpoint store")
		}
		defer st.Close() //nolint:errcheck

		coord, err := batch.New(batch.Options{
			Backend:      backend.FromConfig(cfg),
			Store:        st,
			Config:       cfg,
			ArtifactsDir: cfg.Checkpoint.ArtifactsDir,
			Progress:     printBatchProgress,
		})
		if err != nil {
			return err
		}

		res, err := coord.Run(ctx, args, batchMode)
		if err != nil {
			return eris.Wrap(err, "batch run")
		}

		zap.L().Info("batch complete",
			zap.Int("subjects", len(res.Reports)),
			zap.Int("failed", len(res.Failures)),
			zap.Int("merged_candidates", len(res.Candidates)),
		)
		for subject, msg := range res.Failures {
			fmt.Fprintf(os.Stderr, "failed: %s: %s\n", subject, msg)
		}

		if batchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatBatchResult(os.Stdout, res)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchMode, "mode", "default", "research depth: quick, default, or deep")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print the full merged result as JSON")
	rootCmd.AddCommand(batchCmd)
}

func printBatchProgress(ev model.BatchProgressEvent) {
	eta := ""
	if ev.ETAMS > 0 {
		eta = fmt.Sprintf(", eta %s", (time.Duration(ev.ETAMS) * time.Millisecond).Round(time.Second))
	}
	fmt.Fprintf(os.Stderr, "[batch] %s (%d/%d%s)\n", ev.Message, ev.CompletedSteps, ev.TotalSteps, eta)
}

func formatBatchResult(w io.Writer, res *model.BatchResult) {
	subjects := make([]string, 0, len(res.Reports))
	for s := range res.Reports {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	fmt.Fprintf(w, "Subjects: %d researched, %d failed\n", len(subjects), len(res.Failures))

	if len(res.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates survived the merge.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSUBJECT\tSCORE\tCOMPOSITE\tREADY")
	for i, c := range res.Candidates {
		ready := "evidence"
		if c.LaunchReady {
			ready = "launch"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%.1f\t%s\n", i+1, c.Name, c.Subject, c.Score, c.CompositeRank, ready)
	}
	tw.Flush() //nolint:errcheck
}
