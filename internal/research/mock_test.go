package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/heyimsteve/nichescout/internal/model"
)

// mockBackend scripts backend behavior per call site and counts invocations.
type mockBackend struct {
	mu              sync.Mutex
	discoverCalls   int
	draftCalls      int
	competitorCalls int
	trendCalls      int

	discoverFn    func(call int, req DiscoverRequest) (DiscoverResult, error)
	draftFn       func(call int, req DraftRequest) (DraftResult, error)
	competitorsFn func(call int, cand model.Candidate) ([]model.Competitor, model.UsageTotals, error)
	trendFn       func(call int) ([]model.TrendItem, model.UsageTotals, error)
}

func (m *mockBackend) Discover(_ context.Context, req DiscoverRequest) (DiscoverResult, error) {
	m.mu.Lock()
	m.discoverCalls++
	call := m.discoverCalls
	m.mu.Unlock()
	if m.discoverFn != nil {
		return m.discoverFn(call, req)
	}
	return DiscoverResult{Items: cannedItems(req.Source, req.Query, 3), Usage: model.UsageTotals{Requests: 1}}, nil
}

func (m *mockBackend) DraftCandidates(_ context.Context, req DraftRequest) (DraftResult, error) {
	m.mu.Lock()
	m.draftCalls++
	call := m.draftCalls
	m.mu.Unlock()
	if m.draftFn != nil {
		return m.draftFn(call, req)
	}
	return DraftResult{Usage: model.UsageTotals{Requests: 1}}, nil
}

func (m *mockBackend) Competitors(_ context.Context, _ string, cand model.Candidate) ([]model.Competitor, model.UsageTotals, error) {
	m.mu.Lock()
	m.competitorCalls++
	call := m.competitorCalls
	m.mu.Unlock()
	if m.competitorsFn != nil {
		return m.competitorsFn(call, cand)
	}
	return []model.Competitor{{Name: "incumbent"}}, model.UsageTotals{Requests: 1}, nil
}

func (m *mockBackend) TrendItems(_ context.Context, _ string, _ *model.EvidenceSet) ([]model.TrendItem, model.UsageTotals, error) {
	m.mu.Lock()
	m.trendCalls++
	call := m.trendCalls
	m.mu.Unlock()
	if m.trendFn != nil {
		return m.trendFn(call)
	}
	return []model.TrendItem{{Title: "steady interest", Direction: "stable"}}, model.UsageTotals{Requests: 1}, nil
}

func (m *mockBackend) calls() (discover, draft, competitors, trend int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discoverCalls, m.draftCalls, m.competitorCalls, m.trendCalls
}

// cannedTitles and cannedTexts are mutually dissimilar so one query's items
// survive near-duplicate consolidation; the titles carry pain keywords so the
// fallback path always has material to work with.
var cannedTitles = []string{
	"Struggling to reconcile %s data before every deadline",
	"Paying for three %s tools and still exporting by hand",
	"Our %s onboarding paperwork is a complete nightmare",
}

var cannedTexts = []string{
	"The team spends every Friday rekeying numbers between systems and nobody trusts the totals.",
	"Each vendor locks the one export we actually need behind an enterprise plan upsell.",
	"Hiring a contractor just to keep the shared spreadsheets alive feels absurd at this size.",
}

// cannedItems fabricates deterministic raw evidence for one query.
func cannedItems(src model.SourceType, query string, n int) []model.RawEvidenceItem {
	date := "2026-08-25"
	slug := strings.ReplaceAll(query, " ", "-")
	if n > len(cannedTitles) {
		n = len(cannedTitles)
	}
	items := make([]model.RawEvidenceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.RawEvidenceItem{
			ID:        fmt.Sprintf("%s-%s-%d", src, slug, i),
			Source:    src,
			Title:     fmt.Sprintf(cannedTitles[i], query),
			Text:      cannedTexts[i],
			URL:       fmt.Sprintf("https://example.com/%s/%s/%d", src, slug, i),
			Date:      &date,
			Relevance: 0.8,
			Engagement: &model.Engagement{
				Upvotes: 100 + 20*i, Comments: 10 + i,
				Likes: 50 + 10*i, Reposts: 5 + i, Replies: 3 + i,
			},
		})
	}
	return items
}
