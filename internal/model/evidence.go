package model

import "time"

// SourceType identifies where an evidence item was collected from.
type SourceType string

const (
	SourceCommunity SourceType = "community" // forum/community posts (upvotes, comments)
	SourceMicro     SourceType = "micro"     // micro-blog posts (likes, reposts, replies)
	SourceWeb       SourceType = "web"       // generic web pages (no engagement)
)

// SourceTypes lists all evidence sources in canonical order.
var SourceTypes = []SourceType{SourceCommunity, SourceMicro, SourceWeb}

// DateConfidence expresses how much we trust an item's date.
type DateConfidence string

const (
	DateConfidenceHigh DateConfidence = "high"
	DateConfidenceMed  DateConfidence = "med"
	DateConfidenceLow  DateConfidence = "low"
)

// Engagement holds the type-specific engagement counters a backend may supply.
// Community posts use Upvotes/Comments, micro posts use Likes/Reposts/Replies,
// web pages carry none.
type Engagement struct {
	Upvotes  int `json:"upvotes,omitempty"`
	Comments int `json:"comments,omitempty"`
	Likes    int `json:"likes,omitempty"`
	Reposts  int `json:"reposts,omitempty"`
	Replies  int `json:"replies,omitempty"`
}

// RawEvidenceItem is one unit of collected text as parsed from a backend
// response. Immutable once produced.
type RawEvidenceItem struct {
	ID          string      `json:"id"`
	Source      SourceType  `json:"source"`
	Title       string      `json:"title"`
	Text        string      `json:"text,omitempty"`
	URL         string      `json:"url"`
	Channel     string      `json:"channel,omitempty"` // subreddit, author handle, or site
	Date        *string     `json:"date,omitempty"`    // ISO day, nil when unknown
	Relevance   float64     `json:"relevance"`         // backend-supplied, [0,1]
	WhyRelevant string      `json:"why_relevant,omitempty"`
	Engagement  *Engagement `json:"engagement,omitempty"`
}

// SubScores are the 0-100 sub-scores feeding the composite evidence score.
type SubScores struct {
	Relevance  int `json:"relevance"`
	Recency    int `json:"recency"`
	Engagement int `json:"engagement"`
}

// NormalizedEvidenceItem is a raw item after window filtering, with date
// confidence and scoring fields attached.
type NormalizedEvidenceItem struct {
	RawEvidenceItem
	DateConfidence DateConfidence `json:"date_confidence"`
	Subs           SubScores      `json:"subs"`
	Score          int            `json:"score"`
}

// DateWindow is an inclusive [From,To] window of ISO day strings.
type DateWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LastDays returns a window ending today (UTC) and starting n-1 days earlier.
func LastDays(n int, now time.Time) DateWindow {
	now = now.UTC()
	return DateWindow{
		From: now.AddDate(0, 0, -(n - 1)).Format("2006-01-02"),
		To:   now.Format("2006-01-02"),
	}
}

// Contains reports whether the ISO day falls inside the window. Malformed
// days are treated as outside.
func (w DateWindow) Contains(day string) bool {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return false
	}
	from, err := time.Parse("2006-01-02", w.From)
	if err != nil {
		return false
	}
	to, err := time.Parse("2006-01-02", w.To)
	if err != nil {
		return false
	}
	return !d.Before(from) && !d.After(to)
}

// EvidenceSet groups normalized items by source after scoring and dedup.
type EvidenceSet struct {
	Community []NormalizedEvidenceItem `json:"community"`
	Micro     []NormalizedEvidenceItem `json:"micro"`
	Web       []NormalizedEvidenceItem `json:"web"`
}

// BySource returns the slice for a source type.
func (s *EvidenceSet) BySource(src SourceType) []NormalizedEvidenceItem {
	switch src {
	case SourceCommunity:
		return s.Community
	case SourceMicro:
		return s.Micro
	case SourceWeb:
		return s.Web
	}
	return nil
}

// SetSource replaces the slice for a source type.
func (s *EvidenceSet) SetSource(src SourceType, items []NormalizedEvidenceItem) {
	switch src {
	case SourceCommunity:
		s.Community = items
	case SourceMicro:
		s.Micro = items
	case SourceWeb:
		s.Web = items
	}
}

// All returns every item across sources in canonical source order.
func (s *EvidenceSet) All() []NormalizedEvidenceItem {
	out := make([]NormalizedEvidenceItem, 0, len(s.Community)+len(s.Micro)+len(s.Web))
	out = append(out, s.Community...)
	out = append(out, s.Micro...)
	out = append(out, s.Web...)
	return out
}

// Count returns the total number of items across sources.
func (s *EvidenceSet) Count() int {
	return len(s.Community) + len(s.Micro) + len(s.Web)
}
