// Package batch fans one research run out per subject, aggregates their
// progress, and merges the per-subject candidates into a single ranked list.
package batch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heyimsteve/nichescout/internal/candidate"
	"github.com/heyimsteve/nichescout/internal/checkpoint"
	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/evidence"
	"github.com/heyimsteve/nichescout/internal/model"
	"github.com/heyimsteve/nichescout/internal/research"
	"github.com/heyimsteve/nichescout/internal/resilience"
)

// Options configures a batch Coordinator.
type Options struct {
	Backend      research.Backend
	Store        checkpoint.Store
	Config       *config.Config
	ArtifactsDir string
	Progress     func(model.BatchProgressEvent)
	Retry        resilience.RetryConfig
	Now          func() time.Time
}

// Coordinator runs one orchestrator per subject concurrently. Subjects are
// independent: one failing is reported in the result, not fatal to the batch.
type Coordinator struct {
	opts Options
	log  *zap.Logger
}

// New creates a batch coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Backend == nil {
		return nil, eris.New("batch: backend is required")
	}
	if opts.Config == nil {
		return nil, eris.New("batch: config is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{opts: opts, log: zap.L().Named("batch")}, nil
}

// Run researches every subject concurrently and merges the results.
// Cancellation aborts all subjects and propagates.
func (c *Coordinator) Run(ctx context.Context, subjects []string, mode string) (*model.BatchResult, error) {
	subjects = dedupeSubjects(subjects)
	if len(subjects) == 0 {
		return nil, eris.New("batch: at least one subject is required")
	}

	agg := newAggregator(subjects, c.opts.Progress, c.opts.Now)

	type subjectOutcome struct {
		report model.Report
		err    error
	}
	outcomes := make(map[string]subjectOutcome, len(subjects))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, subject := range subjects {
		g.Go(func() error {
			orch, err := research.New(research.Options{
				Backend:      c.opts.Backend,
				Store:        c.opts.Store,
				Config:       c.opts.Config,
				ResumeKey:    subject,
				ArtifactsDir: c.opts.ArtifactsDir,
				Retry:        c.opts.Retry,
				Now:          c.opts.Now,
				Progress:     func(ev model.RunProgressEvent) { agg.update(subject, ev) },
			})
			if err != nil {
				return err
			}

			agg.start(subject)
			res, err := orch.Run(gctx, subject, mode)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if resilience.IsCancellation(err) {
					return err
				}
				c.log.Warn("subject failed", zap.String("subject", subject), zap.Error(err))
				outcomes[subject] = subjectOutcome{err: err}
				agg.finish(subject, err)
				return nil
			}
			outcomes[subject] = subjectOutcome{report: res.Report}
			agg.finish(subject, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if resilience.IsCancellation(err) {
			return nil, eris.Wrap(err, "batch: canceled")
		}
		return nil, eris.Wrap(err, "batch: run")
	}

	result := &model.BatchResult{
		Reports:  make(map[string]model.Report, len(subjects)),
		Failures: make(map[string]string),
	}
	var pool []model.Candidate
	for subject, out := range outcomes {
		if out.err != nil {
			result.Failures[subject] = out.err.Error()
			continue
		}
		result.Reports[subject] = out.report
		result.Usage.Add(out.report.Usage)
		for _, cand := range out.report.Candidates {
			cand.Subject = subject
			pool = append(pool, cand)
		}
	}
	if len(result.Reports) == 0 {
		return nil, eris.New("batch: every subject failed")
	}

	result.Candidates = Merge(pool)
	c.log.Info("batch complete",
		zap.Int("subjects", len(subjects)),
		zap.Int("failures", len(result.Failures)),
		zap.Int("merged_candidates", len(result.Candidates)))
	return result, nil
}

// Merge filters the pooled candidates down to launch-ready or evidence-backed
// ones, collapses duplicates discovered under different subjects, and re-ranks
// the survivors as one list. The duplicate key ignores the originating subject
// so the same problem found twice merges to one entry; the higher-scored
// duplicate wins.
func Merge(pool []model.Candidate) []model.Candidate {
	kept := make([]model.Candidate, 0, len(pool))
	for _, cand := range pool {
		if cand.LaunchReady || cand.EvidenceBacked() {
			kept = append(kept, cand)
		}
	}

	best := make(map[string]int, len(kept))
	order := make([]string, 0, len(kept))
	for i, cand := range kept {
		key := similarityKey(cand)
		prev, seen := best[key]
		if !seen {
			best[key] = i
			order = append(order, key)
			continue
		}
		if cand.Score > kept[prev].Score {
			best[key] = i
		}
	}

	deduped := make([]model.Candidate, 0, len(order))
	for _, key := range order {
		deduped = append(deduped, kept[best[key]])
	}
	return candidate.Rank(deduped)
}

// similarityKey identifies a candidate by its normalized problem statement
// plus its sorted canonical proof URLs.
func similarityKey(cand model.Candidate) string {
	urls := make([]string, 0, len(cand.ProofPoints))
	for _, pp := range cand.ProofPoints {
		key, err := evidence.CanonicalURL(pp.SourceURL)
		if err != nil {
			key = pp.SourceURL
		}
		urls = append(urls, key)
	}
	sort.Strings(urls)

	problem := strings.Join(strings.Fields(strings.ToLower(cand.ProblemStatement)), " ")
	return problem + "|" + strings.Join(urls, ",")
}

func dedupeSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
