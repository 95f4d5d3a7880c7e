package research

import (
	"fmt"

	"github.com/heyimsteve/nichescout/internal/model"
)

// queryTemplates are the discovery angles, in priority order. A depth mode
// takes a prefix of this list, so quick runs cover the highest-signal angles
// and deep runs extend into the long tail.
var queryTemplates = []struct {
	format string
	source model.SourceType
}{
	{"%s complaints and pain points", model.SourceCommunity},
	{"%s problems people pay to solve", model.SourceMicro},
	{"%s tools pricing and alternatives", model.SourceWeb},
	{"%s workflow frustrations", model.SourceCommunity},
	{"best way to handle %s", model.SourceWeb},
	{"%s manual process automation", model.SourceMicro},
	{"switching tools for %s", model.SourceCommunity},
	{"%s software limitations", model.SourceWeb},
}

// buildQueryPlan derives the deterministic discovery plan for a niche. The
// same niche and count always yield the same plan, which resume correctness
// depends on.
func buildQueryPlan(niche string, count int) []model.QueryPlanEntry {
	if count <= 0 {
		count = 1
	}
	if count > len(queryTemplates) {
		count = len(queryTemplates)
	}
	plan := make([]model.QueryPlanEntry, 0, count)
	for _, tpl := range queryTemplates[:count] {
		plan = append(plan, model.QueryPlanEntry{
			Text:   fmt.Sprintf(tpl.format, niche),
			Source: tpl.source,
		})
	}
	return plan
}
