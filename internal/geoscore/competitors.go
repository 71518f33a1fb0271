package geoscore

import (
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// minNameLen keeps short domain labels ("ab", "go") from matching any word
const minNameLen = 4

// CompetitorVisibility measures how often each competitor shows up in the
// probed answers. A competitor counts for a result when its domain, or the
// name part of its domain, appears in the full response. Each platform's
// rate is over every probe attempted on it, failed ones included.
func CompetitorVisibility(report *models.VisibilityReport, competitors []models.ValidatedCompetitor) []models.CompetitorVisibility {
	out := make([]models.CompetitorVisibility, 0, len(competitors))
	if report == nil {
		return out
	}

	attempted := make(map[string]int, len(report.Platforms))
	for _, q := range report.Queries {
		for _, r := range q.PlatformResults {
			if r != nil {
				attempted[r.Platform]++
			}
		}
	}

	for _, c := range competitors {
		terms := competitorTerms(c.Domain)
		hits := make(map[string]int, len(report.Platforms))
		for _, q := range report.Queries {
			for _, r := range q.PlatformResults {
				if r == nil || r.FullResponse == "" {
					continue
				}
				lower := strings.ToLower(r.FullResponse)
				for _, t := range terms {
					if strings.Contains(lower, t) {
						hits[r.Platform]++
						break
					}
				}
			}
		}

		cv := models.CompetitorVisibility{Domain: c.Domain, ByPlatform: make(map[string]float64, len(report.Platforms))}
		sum := 0.0
		for _, p := range report.Platforms {
			rate := 0.0
			if attempted[p] > 0 {
				rate = float64(hits[p]) / float64(attempted[p])
			}
			cv.ByPlatform[p] = rate
			sum += rate
		}
		if len(report.Platforms) > 0 {
			cv.Overall = sum / float64(len(report.Platforms))
		}
		out = append(out, cv)
	}
	return out
}

func competitorTerms(domain string) []string {
	domain = strings.ToLower(domain)
	terms := []string{domain}
	if i := strings.IndexByte(domain, '.'); i >= minNameLen {
		terms = append(terms, domain[:i])
	}
	return terms
}
