package research

import (
	"context"
	"fmt"
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
	"github.com/heyimsteve/nichescout/internal/resilience"
)

// finalStageSteps is the budget for the post-discovery stages: candidate
// validation, enrichment, trend synthesis and finalize.
const finalStageSteps = 4

// Options configures an Orchestrator.
type Options struct {
	Backend      Backend
	Store        checkpoint.Store // nil means an in-memory store (stateless run)
	Config       *config.Config
	ResumeKey    string
	ArtifactsDir string
	Progress     func(model.RunProgressEvent)
	Retry        resilience.RetryConfig
	Now          func() time.Time // nil means time.Now
}

// Result is the outcome of a run. Warning is set when the run completed
// degraded and a recovery artifact was written.
type Result struct {
	Report  model.Report
	Warning string
}

// Orchestrator drives one niche through the research pipeline, persisting a
// checkpoint on every stage transition and after every discovery batch so an
// interrupted run resumes where it left off.
type Orchestrator struct {
	backend      Backend
	store        checkpoint.Store
	cfg          *config.Config
	key          string
	artifactsDir string
	progress     func(model.RunProgressEvent)
	retry        resilience.RetryConfig
	now          func() time.Time
	log          *zap.Logger
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Backend == nil {
		return nil, eris.New("research: backend is required")
	}
	if opts.Config == nil {
		return nil, eris.New("research: config is required")
	}
	store := opts.Store
	if store == nil {
		store = checkpoint.NewMemory()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(model.RunProgressEvent) {}
	}
	key := checkpoint.SanitizeKey(opts.ResumeKey)
	return &Orchestrator{
		backend:      opts.Backend,
		store:        store,
		cfg:          opts.Config,
		key:          key,
		artifactsDir: opts.ArtifactsDir,
		progress:     progress,
		retry:        opts.Retry,
		now:          nowFn,
		log:          zap.L().Named("research").With(zap.String("checkpoint", key)),
	}, nil
}

// Run executes the pipeline for a niche. A checkpoint whose final report is
// already set short-circuits and returns that report unchanged.
func (o *Orchestrator) Run(ctx context.Context, niche, modeName string) (*Result, error) {
	if strings.TrimSpace(niche) == "" {
		return nil, eris.New("research: niche is required")
	}
	runStart := o.now()

	cp, err := o.store.Load(ctx, o.key)
	if err != nil {
		return nil, eris.Wrap(err, "research: load checkpoint")
	}
	if cp != nil && cp.FinalReport != nil {
		o.log.Info("checkpoint already finalized, returning stored report")
		o.emit(runStart, cp, model.StageComplete, "run already complete")
		return &Result{Report: *cp.FinalReport}, nil
	}

	mode := normalizeMode(modeName)
	modeCfg := o.cfg.Research.Mode(string(mode))

	if cp == nil {
		queries := buildQueryPlan(niche, modeCfg.Queries)
		cp = &model.ResearchCheckpoint{
			Niche:       niche,
			Mode:        mode,
			StartedAt:   o.now().UTC(),
			Queries:     queries,
			TotalSteps:  len(queries) + finalStageSteps,
			RawEvidence: make(map[model.SourceType][]model.RawEvidenceItem),
		}
		if err := o.saveAndEmit(ctx, runStart, cp, model.StageStarting, "run started"); err != nil {
			return nil, err
		}
	} else {
		// The stored plan and mode win over the flags of this invocation.
		mode = cp.Mode
		modeCfg = o.cfg.Research.Mode(string(cp.Mode))
		o.log.Info("resuming run",
			zap.String("niche", cp.Niche),
			zap.Int("completed_queries", cp.CompletedQueryCount),
			zap.Int("total_queries", len(cp.Queries)))
	}

	// The window and the scoring reference are anchored to the original run
	// start so a resumed run scores evidence identically.
	window := model.LastDays(o.cfg.Research.WindowDays, cp.StartedAt)

	if cp.CompletedQueryCount < len(cp.Queries) {
		if err := o.discover(ctx, runStart, cp, modeCfg, window); err != nil {
			return nil, err
		}
	}

	set := evidence.BuildSet(cp.RawEvidence, window, cp.StartedAt, o.cfg.Research, modeCfg.PerSourceLimit)
	index := evidence.BuildIndex(set)

	if cp.FinalCandidates == nil {
		if err := o.runCandidates(ctx, runStart, cp, set, index, modeCfg); err != nil {
			return nil, err
		}
	}
	if cp.EnrichedCandidates == nil {
		if err := o.runEnrichment(ctx, runStart, cp, modeCfg); err != nil {
			return nil, err
		}
	}
	if cp.TrendItems == nil {
		if err := o.runTrend(ctx, runStart, cp, set); err != nil {
			return nil, err
		}
	}

	return o.finalize(ctx, runStart, cp, set, window)
}

// discover works through the query plan in concurrent groups, persisting the
// accumulated raw evidence after each group and evaluating the adaptive
// early-stop against the re-scored set.
func (o *Orchestrator) discover(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, modeCfg config.ModeConfig, window model.DateWindow) error {
	concurrency := modeCfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	for cp.CompletedQueryCount < len(cp.Queries) {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "research: discovery canceled")
		}

		start := cp.CompletedQueryCount
		end := start + concurrency
		if end > len(cp.Queries) {
			end = len(cp.Queries)
		}
		group := cp.Queries[start:end]

		type queryOutcome struct {
			items  []model.RawEvidenceItem
			source model.SourceType
			usage  model.UsageTotals
			note   string
		}
		outcomes := make([]queryOutcome, len(group))

		g, gctx := errgroup.WithContext(ctx)
		for i, q := range group {
			g.Go(func() error {
				res, err := resilience.DoVal(gctx, o.retry, func(ctx context.Context) (DiscoverResult, error) {
					return o.backend.Discover(ctx, DiscoverRequest{
						Niche:  cp.Niche,
						Query:  q.Text,
						Source: q.Source,
						Window: window,
						Mode:   cp.Mode,
					})
				})
				if err != nil {
					if resilience.IsCancellation(err) || !resilience.IsTransient(err) {
						return err
					}
					// Retries exhausted on a transient failure: degrade
					// this query instead of failing the run.
					outcomes[i] = queryOutcome{note: fmt.Sprintf("discovery query %q failed after retries: %v", q.Text, err)}
					return nil
				}
				outcomes[i] = queryOutcome{items: res.Items, source: q.Source, usage: res.Usage}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if resilience.IsCancellation(err) {
				return eris.Wrap(err, "research: discovery canceled")
			}
			return eris.Wrap(err, "research: discovery")
		}

		next := cp.Clone()
		for _, out := range outcomes {
			if out.note != "" {
				next.RecoveryNotes = append(next.RecoveryNotes, out.note)
				continue
			}
			next.RawEvidence[out.source] = append(next.RawEvidence[out.source], out.items...)
			next.Usage.Add(out.usage)
		}
		next.CompletedQueryCount = end
		next.CompletedSteps += len(group)

		// Early stop never fires on or after the last query; skipped queries
		// still count as completed steps so the budget stays truthful.
		if end < len(next.Queries) && end >= modeCfg.EarlyStopFloor {
			set := evidence.BuildSet(next.RawEvidence, window, next.StartedAt, o.cfg.Research, 0)
			strong := 0
			for _, n := range evidence.StrongCounts(set, o.cfg.Research.Scoring.StrongThreshold) {
				strong += n
			}
			if set.Count() >= modeCfg.EarlyStopTotal && strong >= modeCfg.EarlyStopStrong {
				skipped := len(next.Queries) - end
				next.CompletedSteps += skipped
				next.CompletedQueryCount = len(next.Queries)
				next.EarlyStopped = true
				o.log.Info("early stop",
					zap.Int("processed_queries", end),
					zap.Int("skipped_queries", skipped),
					zap.Int("total_items", set.Count()),
					zap.Int("strong_items", strong))
			}
		}

		msg := fmt.Sprintf("discovery %d/%d queries", next.CompletedQueryCount, len(next.Queries))
		if err := o.saveAndEmit(ctx, runStart, next, model.StageDiscover, msg); err != nil {
			return err
		}
		*cp = *next
	}
	return nil
}

// runCandidates drafts candidates from the backend, validates and grounds
// them, retries once relaxed, and falls back to deterministic synthesis when
// generation yields nothing usable.
func (o *Orchestrator) runCandidates(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, set *model.EvidenceSet, index *evidence.Index, modeCfg config.ModeConfig) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "research: candidates canceled")
	}
	next := cp.Clone()
	validator := candidate.NewValidator(index)

	var cands []model.Candidate
	usable := false

	for _, relaxed := range []bool{false, true} {
		if usable {
			break
		}
		res, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (DraftResult, error) {
			return o.backend.DraftCandidates(ctx, DraftRequest{
				Niche:         cp.Niche,
				Set:           set,
				MaxCandidates: modeCfg.MaxCandidates,
				Relaxed:       relaxed,
			})
		})
		if err != nil {
			if resilience.IsCancellation(err) {
				return eris.Wrap(err, "research: candidates canceled")
			}
			if !resilience.IsTransient(err) {
				return eris.Wrap(err, "research: draft candidates")
			}
			next.RecoveryNotes = append(next.RecoveryNotes, fmt.Sprintf("candidate generation failed after retries: %v", err))
			continue
		}
		next.Usage.Add(res.Usage)
		if decoded, ok := validator.ValidateAll(res.Drafts, modeCfg.MaxCandidates); ok {
			cands, usable = decoded, true
		} else if !relaxed && len(decoded) > 0 {
			// Keep the weak first pass around in case the relaxed retry
			// does no better and the fallback finds nothing either.
			cands = decoded
		}
	}

	if !usable {
		if fb := candidate.Fallback(set, index, cp.Niche, modeCfg.MaxCandidates); len(fb) > 0 {
			next.RecoveryNotes = append(next.RecoveryNotes, "generation yielded no usable candidates; synthesized fallback candidates from evidence")
			cands = fb
		}
	}
	if cands == nil {
		cands = []model.Candidate{}
	}

	next.FinalCandidates = cands
	next.CompletedSteps++
	msg := fmt.Sprintf("validated %d candidates", len(cands))
	if err := o.saveAndEmit(ctx, runStart, next, model.StageCandidates, msg); err != nil {
		return err
	}
	*cp = *next
	return nil
}

// runEnrichment adds competitors to each candidate with bounded concurrency.
// A candidate whose enrichment fails transiently keeps its draft state.
func (o *Orchestrator) runEnrichment(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, modeCfg config.ModeConfig) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "research: enrichment canceled")
	}
	next := cp.Clone()

	enriched := make([]model.Candidate, len(next.FinalCandidates))
	copy(enriched, next.FinalCandidates)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	limit := modeCfg.EnrichConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range enriched {
		g.Go(func() error {
			cand := enriched[i]
			res, err := resilience.DoVal(gctx, o.retry, func(ctx context.Context) (compResult, error) {
				c, u, err := o.backend.Competitors(ctx, next.Niche, cand)
				return compResult{comps: c, usage: u}, err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if resilience.IsCancellation(err) || !resilience.IsTransient(err) {
					return err
				}
				next.RecoveryNotes = append(next.RecoveryNotes, fmt.Sprintf("enrichment failed for %q after retries: %v", cand.Name, err))
				return nil
			}
			enriched[i].Competitors = res.comps
			next.Usage.Add(res.usage)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if resilience.IsCancellation(err) {
			return eris.Wrap(err, "research: enrichment canceled")
		}
		return eris.Wrap(err, "research: enrichment")
	}

	next.EnrichedCandidates = enriched
	next.CompletedSteps++
	if err := o.saveAndEmit(ctx, runStart, next, model.StageEnrichment, "enrichment complete"); err != nil {
		return err
	}
	*cp = *next
	return nil
}

type compResult struct {
	comps []model.Competitor
	usage model.UsageTotals
}

// runTrend synthesizes trend items from the evidence set. A transient failure
// degrades to an empty trend list with a recovery note.
func (o *Orchestrator) runTrend(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, set *model.EvidenceSet) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "research: trend canceled")
	}
	next := cp.Clone()

	res, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (trendResult, error) {
		t, u, err := o.backend.TrendItems(ctx, next.Niche, set)
		return trendResult{items: t, usage: u}, err
	})
	switch {
	case err == nil:
		next.Usage.Add(res.usage)
		next.TrendItems = res.items
	case resilience.IsCancellation(err):
		return eris.Wrap(err, "research: trend canceled")
	case resilience.IsTransient(err):
		next.RecoveryNotes = append(next.RecoveryNotes, fmt.Sprintf("trend synthesis failed after retries: %v", err))
	default:
		return eris.Wrap(err, "research: trend synthesis")
	}
	if next.TrendItems == nil {
		next.TrendItems = []model.TrendItem{}
	}

	next.CompletedSteps++
	if err := o.saveAndEmit(ctx, runStart, next, model.StageTrend, "trend synthesis complete"); err != nil {
		return err
	}
	*cp = *next
	return nil
}

type trendResult struct {
	items []model.TrendItem
	usage model.UsageTotals
}

// finalize ranks the enriched candidates, assembles the report, writes a
// recovery artifact when the run degraded, and marks the checkpoint complete.
func (o *Orchestrator) finalize(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, set *model.EvidenceSet, window model.DateWindow) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "research: finalize canceled")
	}
	next := cp.Clone()

	report := model.Report{
		Niche:       next.Niche,
		Mode:        next.Mode,
		GeneratedAt: o.now().UTC(),
		Window:      window,
		Candidates:  candidate.Rank(next.EnrichedCandidates),
		TrendItems:  next.TrendItems,
		EvidenceCounts: map[model.SourceType]int{
			model.SourceCommunity: len(set.Community),
			model.SourceMicro:     len(set.Micro),
			model.SourceWeb:       len(set.Web),
		},
		Usage:         next.Usage,
		RecoveryNotes: next.RecoveryNotes,
		EarlyStopped:  next.EarlyStopped,
	}

	warning := ""
	if len(next.RecoveryNotes) > 0 && o.artifactsDir != "" {
		path, err := checkpoint.WriteArtifact(o.artifactsDir, o.key, next.RecoveryNotes, &report, next)
		if err != nil {
			o.log.Warn("failed to write recovery artifact", zap.Error(err))
		} else {
			warning = "recovery artifact written: " + path
			next.RecoveryNotes = append(next.RecoveryNotes, warning)
			report.RecoveryNotes = next.RecoveryNotes
		}
	}

	next.FinalReport = &report
	next.CompletedSteps = next.TotalSteps
	if err := o.saveAndEmit(ctx, runStart, next, model.StageComplete, "run complete"); err != nil {
		return nil, err
	}
	*cp = *next

	o.log.Info("run complete",
		zap.String("niche", report.Niche),
		zap.Int("candidates", len(report.Candidates)),
		zap.Bool("early_stopped", report.EarlyStopped),
		zap.Int("recovery_notes", len(report.RecoveryNotes)))
	return &Result{Report: report, Warning: warning}, nil
}

// saveAndEmit persists the checkpoint and emits a progress event, unless the
// context is already canceled: cancellation suppresses both.
func (o *Orchestrator) saveAndEmit(ctx context.Context, runStart time.Time, cp *model.ResearchCheckpoint, stage model.Stage, msg string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "research: canceled")
	}
	cp.UpdatedAt = o.now().UTC()
	if err := o.store.Save(ctx, o.key, cp); err != nil {
		return eris.Wrap(err, "research: save checkpoint")
	}
	o.emit(runStart, cp, stage, msg)
	return nil
}

func (o *Orchestrator) emit(runStart time.Time, cp *model.ResearchCheckpoint, stage model.Stage, msg string) {
	elapsed := o.now().Sub(runStart)
	o.progress(model.RunProgressEvent{
		Stage:          stage,
		Message:        msg,
		ElapsedMS:      elapsed.Milliseconds(),
		ETAMS:          etaMS(elapsed, cp.CompletedSteps, cp.TotalSteps),
		CompletedSteps: cp.CompletedSteps,
		TotalSteps:     cp.TotalSteps,
	})
}

func normalizeMode(name string) model.DepthMode {
	switch model.DepthMode(strings.ToLower(strings.TrimSpace(name))) {
	case model.ModeQuick:
		return model.ModeQuick
	case model.ModeDeep:
		return model.ModeDeep
	default:
		return model.ModeDefault
	}
}
