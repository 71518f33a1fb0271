package discovery

import (
	"regexp"
	"sort"

	"mvdan.cc/xurls/v2"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

var (
	schemeURLs = xurls.Strict()
	bareWWW    = regexp.MustCompile(`(?i)\bwww\.[a-z0-9][-a-z0-9]*\.[-a-z0-9.]*[a-z]`)
)

// CandidateExtractor mines answer text and structured mentions for
// competitor URLs. It holds no state beyond its exclusion set.
type CandidateExtractor struct {
	exclusions *Exclusions
}

func NewCandidateExtractor(exclusions *Exclusions) *CandidateExtractor {
	if exclusions == nil {
		exclusions = NewExclusions()
	}
	return &CandidateExtractor{exclusions: exclusions}
}

// Extract returns normalized candidate URLs, one per domain with the first
// occurrence winning, sorted and capped at maxCandidates. Identical input always
// produces identical output.
func (c *CandidateExtractor) Extract(texts []string, mentions []models.CompetitorMention, ownDomain string, maxCandidates int) []string {
	var raw []string
	for _, t := range texts {
		raw = append(raw, schemeURLs.FindAllString(t, -1)...)
		raw = append(raw, bareWWW.FindAllString(t, -1)...)
	}
	for _, m := range mentions {
		raw = append(raw, m.URLs...)
	}

	out := filterCandidates(raw, c.exclusions, ownDomain)
	sort.Strings(out)
	if maxCandidates > 0 && len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// filterCandidates normalizes, drops malformed, excluded and self URLs and
// keeps the first URL seen for each domain, in input order.
func filterCandidates(raw []string, exclusions *Exclusions, ownDomain string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range raw {
		u, err := NormalizeURL(r)
		if err != nil {
			continue
		}
		d := hostOf(u)
		if seen[d] || exclusions.Excluded(d) || (ownDomain != "" && SameSite(d, ownDomain)) {
			continue
		}
		seen[d] = true
		out = append(out, u)
	}
	return out
}
