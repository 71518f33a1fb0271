package discovery

import (
	"math"
	"sort"
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// Relevance weights
const (
	weightSimilarity = 0.5
	bonusSector      = 0.2
	bonusOffering    = 0.075
	bonusBoth        = 0.15
	bonusLLM         = 0.05
	penaltyGeneric   = 0.2

	scoredOfferings = 2
)

var genericTerms = []string{"directory", "portal", "info", "annuaire", "listing"}

// RelevanceScore is the breakdown behind a candidate's score
type RelevanceScore struct {
	Score      float64
	Similarity float64
	SameSector bool
	Offerings  int
	Generic    bool
}

// Relevance scores a candidate page against the subject's profile. The
// result is always within [0,1].
func Relevance(kw heuristics.KeywordExtractor, profile models.SemanticProfile, domain string, page *Page, source models.CandidateSource) RelevanceScore {
	var r RelevanceScore

	pageText := strings.Join([]string{page.Title, page.Description, page.headings()}, " ")
	r.Similarity = heuristics.Jaccard(kw.Keywords(profileText(profile)), kw.Keywords(pageText))
	score := weightSimilarity * r.Similarity

	// the domain is split on dots and dashes so "marketing-montreal.ca" reads as words
	surface := strings.Join([]string{strings.NewReplacer(".", " ", "-", " ").Replace(domain), page.Title, page.Description}, " ")
	for _, term := range []string{profile.PrimaryIndustry, profile.SubIndustry} {
		if kw.Contains(surface, term) {
			r.SameSector = true
			score += bonusSector
			break
		}
	}

	full := surface + " " + page.headings()
	for i, o := range profile.TopOfferings {
		if i == scoredOfferings {
			break
		}
		if kw.Contains(full, o) {
			r.Offerings++
			score += bonusOffering
		}
	}

	switch source {
	case models.SourceBoth:
		score += bonusBoth
	case models.SourceLLM:
		score += bonusLLM
	}

	if isGeneric(domain) {
		r.Generic = true
		score -= penaltyGeneric
	}

	r.Score = math.Round(math.Max(0, math.Min(1, score))*1000) / 1000
	return r
}

func profileText(p models.SemanticProfile) string {
	parts := []string{p.PrimaryIndustry, p.SubIndustry}
	parts = append(parts, p.TopOfferings...)
	parts = append(parts, p.Keywords...)
	return strings.Join(parts, " ")
}

func isGeneric(domain string) bool {
	for _, t := range genericTerms {
		if strings.Contains(domain, t) {
			return true
		}
	}
	return false
}

// Classify maps a score to a competitor type. ok is false when the score is
// below both thresholds.
func Classify(score float64, t models.Thresholds) (models.CompetitorType, bool) {
	switch {
	case score >= t.Direct:
		return models.CompetitorDirect, true
	case score >= t.Indirect:
		return models.CompetitorIndirect, true
	default:
		return "", false
	}
}

// Reason explains a classification in a short " | " separated line
func Reason(r RelevanceScore, kind models.CompetitorType, profile models.SemanticProfile, source models.CandidateSource) string {
	var parts []string
	if r.SameSector && profile.PrimaryIndustry != "" {
		parts = append(parts, "Same sector ("+profile.PrimaryIndustry+")")
	}
	if kind == models.CompetitorDirect {
		parts = append(parts, "Direct competitor")
	} else {
		parts = append(parts, "Indirect competitor")
	}
	switch {
	case r.Score >= 0.7:
		parts = append(parts, "Strong thematic similarity")
	case r.Score >= 0.5:
		parts = append(parts, "Moderate thematic similarity")
	}
	if source == models.SourceBoth {
		parts = append(parts, "Found by AI and web search")
	}
	return strings.Join(parts, " | ")
}

// Rank keeps the highest-scored entry per domain, sorts by score descending
// then domain, and truncates to limit when limit is positive. It also
// returns how many duplicates were removed.
func Rank(competitors []models.ValidatedCompetitor, limit int) ([]models.ValidatedCompetitor, int) {
	best := make(map[string]int, len(competitors))
	out := make([]models.ValidatedCompetitor, 0, len(competitors))
	dupes := 0
	for _, c := range competitors {
		if i, ok := best[c.Domain]; ok {
			dupes++
			if c.Score > out[i].Score {
				out[i] = c
			}
			continue
		}
		best[c.Domain] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Domain < out[j].Domain
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, dupes
}
