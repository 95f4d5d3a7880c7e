package evidence

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/heyimsteve/nichescout/internal/model"
)

// trackingParams are query parameters stripped during URL canonicalization.
// utm_* is matched by prefix.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"igshid":   {},
	"mc_cid":   {},
	"mc_eid":   {},
	"ref":      {},
	"ref_src":  {},
	"share_id": {},
	"si":       {},
	"feature":  {},
}

// CanonicalURL reduces raw URL variants of the same resource to one key:
// lower-cased host, no fragment, no trailing slash, tracking params removed.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", eris.Wrapf(err, "evidence: parse url %q", raw)
	}
	if u.Host == "" {
		return "", eris.Errorf("evidence: url has no host: %q", raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	q := u.Query()
	for key := range q {
		if _, drop := trackingParams[strings.ToLower(key)]; drop || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Index maps canonical URLs to normalized evidence items for O(1) grounding
// lookups. Built once per run after scoring and dedup; read-only afterward.
type Index struct {
	byURL map[string]model.NormalizedEvidenceItem
}

// BuildIndex indexes a scored evidence set. When several items collapse to
// one canonical key, the highest-scored item wins.
func BuildIndex(set *model.EvidenceSet) *Index {
	items := set.All()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	idx := &Index{byURL: make(map[string]model.NormalizedEvidenceItem, len(items))}
	for _, item := range items {
		key, err := CanonicalURL(item.URL)
		if err != nil {
			continue
		}
		if _, exists := idx.byURL[key]; !exists {
			idx.byURL[key] = item
		}
	}
	return idx
}

// Lookup resolves a raw URL to an indexed item through canonicalization.
// Returns the canonical key so callers can record citations in canonical form.
func (idx *Index) Lookup(rawURL string) (model.NormalizedEvidenceItem, string, bool) {
	key, err := CanonicalURL(rawURL)
	if err != nil {
		return model.NormalizedEvidenceItem{}, "", false
	}
	item, ok := idx.byURL[key]
	return item, key, ok
}

// Len returns the number of indexed keys.
func (idx *Index) Len() int {
	return len(idx.byURL)
}
