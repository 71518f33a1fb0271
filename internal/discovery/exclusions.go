package discovery

import (
	"strings"
)

var (
	defaultExcludedDomains = []string{
		// social
		"facebook.com", "twitter.com", "x.com", "linkedin.com", "instagram.com", "youtube.com", "tiktok.com", "pinterest.com",
		// search engines
		"bing.com", "duckduckgo.com",
		// directories and reviews
		"pagesjaunes.ca", "yellowpages.com", "yellowpages.ca", "bbb.org", "crunchbase.com", "trustpilot.com", "clutch.co",
		// job boards
		"indeed.com", "glassdoor.com", "monster.com", "jobillico.com",
		// marketplaces
		"ebay.com", "etsy.com", "alibaba.com",
		// encyclopedias and forums
		"wikipedia.org", "wikihow.com", "quora.com", "reddit.com",
		// generic news
		"cnn.com", "bbc.com", "nytimes.com", "forbes.com", "lapresse.ca", "radio-canada.ca",
	}

	defaultExcludedSuffixes = []string{".gov", ".edu", ".gc.ca", ".gouv.qc.ca", ".gov.uk", ".gouv.fr"}

	// brands excluded under any public suffix: google.ca, amazon.fr, yelp.ca
	defaultExcludedLabels = []string{
		"google", "yahoo", "amazon", "yelp", "tripadvisor", "facebook", "linkedin", "youtube", "wikipedia", "indeed", "glassdoor",
	}
)

// Exclusions is the static set of domains that are never competitors
type Exclusions struct {
	domains  map[string]struct{}
	suffixes []string
	labels   map[string]struct{}
}

// NewExclusions returns the default set plus extra entries. An extra entry
// starting with "." is a suffix, anything else a domain.
func NewExclusions(extra ...string) *Exclusions {
	e := &Exclusions{
		domains:  make(map[string]struct{}),
		suffixes: append([]string(nil), defaultExcludedSuffixes...),
		labels:   make(map[string]struct{}),
	}
	for _, d := range defaultExcludedDomains {
		e.domains[d] = struct{}{}
	}
	for _, l := range defaultExcludedLabels {
		e.labels[l] = struct{}{}
	}
	for _, x := range extra {
		x = strings.ToLower(strings.TrimSpace(x))
		switch {
		case x == "":
		case strings.HasPrefix(x, "."):
			e.suffixes = append(e.suffixes, x)
		default:
			if d := Domain(x); d != "" {
				e.domains[d] = struct{}{}
			}
		}
	}
	return e
}

// Excluded reports whether a normalized domain is a listed domain or one of
// its subdomains, ends with a listed suffix, or belongs to a listed brand.
func (e *Exclusions) Excluded(domain string) bool {
	domain = strings.ToLower(domain)
	if domain == "" {
		return true
	}
	for d := domain; d != ""; {
		if _, ok := e.domains[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	for _, s := range e.suffixes {
		if strings.HasSuffix(domain, s) {
			return true
		}
	}
	_, ok := e.labels[label(domain)]
	return ok
}
