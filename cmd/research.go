package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/backend"
	"github.com/heyimsteve/nichescout/internal/model"
	"github.com/heyimsteve/nichescout/internal/research"
)

var (
	researchMode   string
	researchResume string
	researchJSON   bool
)

var researchCmd = &cobra.Command{
	Use:   "research <niche>",
	Short: "Research one niche and print ranked opportunity candidates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		niche := strings.TrimSpace(args[0])

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open checkpoint store")
		}
		defer st.Close() //nolint:errcheck

		resumeKey := researchResume
		if resumeKey == "" {
			resumeKey = niche
		}

		orch, err := research.New(research.Options{
			Backend:      backend.FromConfig(cfg),
			Store:        st,
			Config:       cfg,
			ResumeKey:    resumeKey,
			ArtifactsDir: cfg.Checkpoint.ArtifactsDir,
			Progress:     printRunProgress,
		})
		if err != nil {
			return err
		}

		res, err := orch.Run(ctx, niche, researchMode)
		if err != nil {
			return eris.Wrap(err, "research run")
		}

		zap.L().Info("research complete",
			zap.String("niche", niche),
			zap.Int("candidates", len(res.Report.Candidates)),
			zap.Int64("total_tokens", res.Report.Usage.InputTokens+res.Report.Usage.OutputTokens),
		)
		if res.Warning != "" {
			fmt.Fprintln(os.Stderr, "warning:", res.Warning)
		}

		if researchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Report)
		}
		formatReport(os.Stdout, res.Report)
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchMode, "mode", "default", "research depth: quick, default, or deep")
	researchCmd.Flags().StringVar(&researchResume, "resume", "", "resume key (defaults to the niche)")
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "print the full report as JSON")
	rootCmd.AddCommand(researchCmd)
}

func printRunProgress(ev model.RunProgressEvent) {
	eta := ""
	if ev.ETAMS > 0 {
		eta = fmt.Sprintf(", eta %s", (time.Duration(ev.ETAMS) * time.Millisecond).Round(time.Second))
	}
	fmt.Fprintf(os.Stderr, "[%s] %s (%d/%d%s)\n", ev.Stage, ev.Message, ev.CompletedSteps, ev.TotalSteps, eta)
}

func formatReport(w io.Writer, r model.Report) {
	fmt.Fprintf(w, "Niche: %s  (mode %s, window %s to %s)\n", r.Niche, r.Mode, r.Window.From, r.Window.To)
	counts := make([]string, 0, len(r.EvidenceCounts))
	for src, n := range r.EvidenceCounts {
		counts = append(counts, fmt.Sprintf("%s=%d", src, n))
	}
	fmt.Fprintf(w, "Evidence: %s\n", strings.Join(counts, " "))
	if len(r.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates survived validation.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tCOMPOSITE\tREADY\tPROOFS\tKILLS")
	for i, c := range r.Candidates {
		ready := "evidence"
		if c.LaunchReady {
			ready = "launch"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%.1f\t%s\t%d\t%d\n",
			i+1, c.Name, c.Score, c.CompositeRank, ready, len(c.ProofPoints), len(c.KillCriteria))
	}
	tw.Flush() //nolint:errcheck

	for _, c := range r.Candidates {
		fmt.Fprintf(w, "\n%s\n  %s\n", c.Name, c.ProblemStatement)
		for _, k := range c.KillCriteria {
			fmt.Fprintf(w, "  kill: %s\n", k)
		}
	}
	if len(r.TrendItems) > 0 {
		fmt.Fprintln(w, "\nTrends:")
		for _, tr := range r.TrendItems {
			line := tr.Title
			if tr.Direction != "" {
				line += " (" + tr.Direction + ")"
			}
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
