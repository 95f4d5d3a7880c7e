// Package backend implements the research.Backend interface over the
// OpenRouter responses API (discovery via web search) and the Anthropic
// messages API (candidate drafting, enrichment, trend synthesis).
package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/config"
	"github.com/heyimsteve/nichescout/internal/model"
	"github.com/heyimsteve/nichescout/internal/research"
	"github.com/heyimsteve/nichescout/internal/resilience"
	"github.com/heyimsteve/nichescout/pkg/anthropic"
	"github.com/heyimsteve/nichescout/pkg/openrouter"
)

// digestItemsPerSource caps evidence lines fed into synthesis prompts.
const digestItemsPerSource = 15

// Client implements research.Backend.
type Client struct {
	search openrouter.Client
	synth  anthropic.Client
	cfg    *config.Config
	log    *zap.Logger
}

// New wires a backend over the two API clients.
func New(search openrouter.Client, synth anthropic.Client, cfg *config.Config) *Client {
	return &Client{
		search: search,
		synth:  synth,
		cfg:    cfg,
		log:    zap.L().Named("backend"),
	}
}

// FromConfig constructs the production backend with real API clients.
func FromConfig(cfg *config.Config) *Client {
	search := openrouter.NewClient(cfg.OpenRouter.Key,
		openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
		openrouter.WithReferer(cfg.OpenRouter.Referer),
		openrouter.WithRateLimit(cfg.OpenRouter.RateLimit),
	)
	return New(search, anthropic.NewClient(cfg.Anthropic.Key), cfg)
}

// Discover runs one web-search query against one source type.
func (c *Client) Discover(ctx context.Context, req research.DiscoverRequest) (research.DiscoverResult, error) {
	searchModel := c.cfg.OpenRouter.SearchModel
	if req.Source == model.SourceMicro && c.cfg.OpenRouter.MicroModel != "" {
		searchModel = c.cfg.OpenRouter.MicroModel
	}

	orReq := openrouter.ResponsesRequest{
		Model:   searchModel,
		Input:   discoverPrompt(req.Query, req.Source, req.Mode),
		Include: []string{"web_search_call.action.sources"},
	}
	tool := openrouter.Tool{Type: "web_search"}
	if domains := searchDomains[req.Source]; len(domains) > 0 {
		tool.Filters = &openrouter.ToolFilters{AllowedDomains: domains}
	}
	orReq.Tools = []openrouter.Tool{tool}

	resp, err := c.search.Responses(ctx, orReq)
	if err != nil {
		return research.DiscoverResult{}, classifySearchErr(err)
	}

	usage := model.UsageTotals{
		InputTokens:  resp.Usage.InTokens(),
		OutputTokens: resp.Usage.OutTokens(),
		Requests:     1,
	}
	items := parseEvidenceItems(resp.OutputText(), req.Source, c.log)
	c.log.Debug("discovery query done",
		zap.String("source", string(req.Source)),
		zap.String("query", req.Query),
		zap.Int("items", len(items)))
	return research.DiscoverResult{Items: items, Usage: usage}, nil
}

// DraftCandidates asks the text model for candidate drafts built strictly
// from the evidence digest. Output is returned untrusted; the candidate
// validator owns coercion and grounding.
func (c *Client) DraftCandidates(ctx context.Context, req research.DraftRequest) (research.DraftResult, error) {
	prompt := draftPrompt(req.Niche, evidenceDigest(req.Set, digestItemsPerSource), req.MaxCandidates, req.Relaxed)

	resp, err := c.synth.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.Model,
		MaxTokens: int64(c.cfg.Anthropic.MaxTokens),
		System:    draftSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return research.DraftResult{}, classifySynthErr(err)
	}
	resp.Usage.Log(c.cfg.Anthropic.Model, "candidates")

	drafts := extractList(resp.Text(), "candidates")
	if drafts == nil {
		c.log.Warn("no parseable candidates in draft output", zap.Bool("relaxed", req.Relaxed))
	}
	return research.DraftResult{
		Drafts: drafts,
		Usage: model.UsageTotals{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Requests:     1,
		},
	}, nil
}

// Competitors enriches one candidate with known competing tools.
func (c *Client) Competitors(ctx context.Context, niche string, cand model.Candidate) ([]model.Competitor, model.UsageTotals, error) {
	resp, err := c.synth.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.Model,
		MaxTokens: int64(c.cfg.Anthropic.MaxTokens),
		Messages:  []anthropic.Message{{Role: "user", Content: competitorsPrompt(niche, cand)}},
	})
	if err != nil {
		return nil, model.UsageTotals{}, classifySynthErr(err)
	}
	resp.Usage.Log(c.cfg.Anthropic.Model, "enrichment")

	usage := model.UsageTotals{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Requests:     1,
	}
	return parseCompetitors(resp.Text()), usage, nil
}

// TrendItems synthesizes report trends from the evidence set.
func (c *Client) TrendItems(ctx context.Context, niche string, set *model.EvidenceSet) ([]model.TrendItem, model.UsageTotals, error) {
	resp, err := c.synth.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Anthropic.Model,
		MaxTokens: int64(c.cfg.Anthropic.MaxTokens),
		Messages:  []anthropic.Message{{Role: "user", Content: trendPrompt(niche, evidenceDigest(set, digestItemsPerSource))}},
	})
	if err != nil {
		return nil, model.UsageTotals{}, classifySynthErr(err)
	}
	resp.Usage.Log(c.cfg.Anthropic.Model, "trend")

	usage := model.UsageTotals{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Requests:     1,
	}
	return parseTrendItems(resp.Text()), usage, nil
}

// classifySearchErr marks retryable OpenRouter failures as transient.
func classifySearchErr(err error) error {
	var apiErr *openrouter.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return eris.Wrap(err, "backend: discovery")
}

// transientSynthMarkers match retryable failure modes surfaced by the
// messages API as error strings.
var transientSynthMarkers = []string{
	"429", "502", "503", "529",
	"overloaded", "rate limit", "rate_limit", "timeout", "temporarily",
}

func classifySynthErr(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range transientSynthMarkers {
		if strings.Contains(msg, marker) {
			return resilience.NewTransientError(err, 0)
		}
	}
	return eris.Wrap(err, "backend: synthesis")
}
