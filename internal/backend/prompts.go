package backend

import (
	"fmt"
	"strings"

	"github.com/heyimsteve/nichescout/internal/model"
)

// depthItemCounts is the (min,max) item range requested per discovery query.
// We ask for more than we display since the date window filters many out.
var depthItemCounts = map[model.DepthMode][2]int{
	model.ModeQuick:   {15, 25},
	model.ModeDefault: {30, 50},
	model.ModeDeep:    {70, 100},
}

// searchDomains restricts the web-search tool per source. Web search runs
// unrestricted.
var searchDomains = map[model.SourceType][]string{
	model.SourceCommunity: {"reddit.com"},
	model.SourceMicro:     {"x.com", "twitter.com"},
}

const discoverPromptTemplate = `Find %s about: %s

STEP 1: EXTRACT THE CORE SUBJECT
Identify the main noun/product/topic of the query and search for that.
DO NOT include filler words like "best", "top", "tips" in your search.

STEP 2: SEARCH BROADLY
Return as many relevant results as you find. We filter by date server-side.

STEP 3: INCLUDE ALL MATCHES
- Include ALL results about the core subject
- Set date to "YYYY-MM-DD" if you can determine it, otherwise null
- DO NOT pre-filter aggressively - include anything relevant
%s
Find %d-%d results. Return MORE rather than fewer.

Return JSON:
{
  "items": [
    {
      "title": "Result title",
      "text": "Body or snippet",
      "url": "https://...",
      "channel": "subreddit, author handle, or site name",
      "date": "YYYY-MM-DD or null",
      "why_relevant": "Why relevant",
      "relevance": 0.85,
      "engagement": {"upvotes": 0, "comments": 0, "likes": 0, "reposts": 0, "replies": 0}
    }
  ]
}`

var sourceDescriptions = map[model.SourceType]string{
	model.SourceCommunity: "community discussion threads",
	model.SourceMicro:     "short social posts",
	model.SourceWeb:       "web pages, articles and reviews",
}

var sourceRules = map[model.SourceType]string{
	model.SourceCommunity: "\nREQUIRED: URLs must contain \"/r/\" AND \"/comments/\"\nREJECT: developers.reddit.com, business.reddit.com\n",
	model.SourceMicro:     "\nREQUIRED: URLs must point at an individual post\nInclude likes/reposts/replies counts when visible.\n",
	model.SourceWeb:       "\nPrefer primary pages over aggregators. No engagement counters exist for web pages; omit them.\n",
}

func discoverPrompt(query string, source model.SourceType, mode model.DepthMode) string {
	counts, ok := depthItemCounts[mode]
	if !ok {
		counts = depthItemCounts[model.ModeDefault]
	}
	return fmt.Sprintf(discoverPromptTemplate,
		sourceDescriptions[source], query, sourceRules[source], counts[0], counts[1])
}

const draftSystemPrompt = `You are a market research analyst. You turn raw evidence about a niche into opportunity candidates. Cite only URLs that appear in the evidence; never invent citations.`

const draftUserTemplate = `Evidence collected about "%s":

%s

Identify up to %d product opportunity candidates supported by this evidence.

Return ONLY JSON in this exact shape:
{
  "candidates": [
    {
      "name": "Short product name",
      "problem_statement": "One sentence problem",
      "target_user": "Who has this problem",
      "checks": {
        "spending": {"passed": true, "evidence": ["..."], "claims": [{"text": "...", "confidence": 0.8, "source_url": "https://..."}]},
        "pain": {"passed": true, "evidence": ["..."], "claims": []},
        "room": {"passed": false, "evidence": [], "claims": [], "url": "https://..."}
      },
      "proof_points": [{"claim": "...", "source_url": "https://...", "date": "YYYY-MM-DD", "source": "community"}],
      "outcomes": {"time_to_first_dollar_days": 60, "gtm_difficulty": 4, "integration_complexity": 3, "spend_estimate": "$50/mo", "rationale": "...", "confidence": 0.7},
      "kill_criteria": ["..."],
      "score": 75
    }
  ]
}

Every source_url MUST be copied verbatim from the evidence above.`

const draftRelaxedSuffix = `

If strict JSON is difficult, still emit the closest valid JSON object you can with a "candidates" array; partial candidates are acceptable.`

func draftPrompt(niche, digest string, maxCandidates int, relaxed bool) string {
	prompt := fmt.Sprintf(draftUserTemplate, niche, digest, maxCandidates)
	if relaxed {
		prompt += draftRelaxedSuffix
	}
	return prompt
}

const competitorsTemplate = `Known problem: %s
Candidate product: %s (niche: %s)

List existing competitors or adjacent tools a buyer would compare against.

Return ONLY JSON:
{"competitors": [{"name": "...", "url": "https://...", "note": "one line", "pricing": "if known"}]}

Return an empty array when you know of none. Do not invent companies.`

func competitorsPrompt(niche string, cand model.Candidate) string {
	return fmt.Sprintf(competitorsTemplate, cand.ProblemStatement, cand.Name, niche)
}

const trendTemplate = `Evidence collected about "%s":

%s

Summarize the 3-5 trends this evidence shows.

Return ONLY JSON:
{"items": [{"title": "...", "summary": "...", "direction": "rising|stable|fading", "source_url": "https://..."}]}

Use only source_url values present in the evidence, or omit the field.`

func trendPrompt(niche, digest string) string {
	return fmt.Sprintf(trendTemplate, niche, digest)
}

// evidenceDigest renders the top items per source as prompt context, capped so
// a deep run does not blow the context window.
func evidenceDigest(set *model.EvidenceSet, perSource int) string {
	var b strings.Builder
	for _, src := range model.SourceTypes {
		items := set.BySource(src)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", src)
		n := len(items)
		if perSource > 0 && n > perSource {
			n = perSource
		}
		for _, item := range items[:n] {
			fmt.Fprintf(&b, "- [score %d] %s\n  %s\n", item.Score, item.Title, item.URL)
			if item.WhyRelevant != "" {
				fmt.Fprintf(&b, "  %s\n", item.WhyRelevant)
			}
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No evidence collected.\n"
	}
	return b.String()
}
