package heuristics

import (
	"regexp"
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const maxPatternCompetitors = 5

// CompetitorDetector finds competitor names in an answer without a model call
type CompetitorDetector interface {
	Detect(text string, brand models.BrandIdentity) []models.CompetitorMention
}

// CompetitorPatterns matches capitalised names followed by a company suffix
// ("Beneva Assurance", "Acme Inc") and "X & Y" firm names.
type CompetitorPatterns struct {
	patterns []*regexp.Regexp
}

const capWord = `[A-Z][\p{L}'-]+`

func NewCompetitorPatterns(extraSuffixes ...string) *CompetitorPatterns {
	suffixes := append([]string{
		"Assurance", "Assurances", "Insurance", "Finance", "Financial", "Immobilier", "Realty",
		"Inc", "Ltd", "LLC", "Group", "Groupe", "Agency", "Agence", "Consulting", "Solutions", "Bank", "Banque",
	}, extraSuffixes...)

	return &CompetitorPatterns{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b` + capWord + ` (?:` + strings.Join(suffixes, "|") + `)\b\.?`),
			regexp.MustCompile(`\b` + capWord + ` & ` + capWord + `\b`),
		},
	}
}

// Detect returns at most five distinct names in first-seen order, skipping
// anything that names the brand itself.
func (c *CompetitorPatterns) Detect(text string, brand models.BrandIdentity) []models.CompetitorMention {
	brandName := strings.ToLower(strings.TrimSpace(brand.Name))
	seen := make(map[string]bool)
	var out []models.CompetitorMention

	for _, re := range c.patterns {
		for _, m := range re.FindAllString(text, -1) {
			name := strings.TrimSuffix(strings.TrimSpace(m), ".")
			key := strings.ToLower(name)
			if seen[key] || (brandName != "" && strings.Contains(key, brandName)) {
				continue
			}
			seen[key] = true
			out = append(out, models.CompetitorMention{
				Name:        name,
				URLs:        []string{},
				MentionType: models.MentionTypeListed,
			})
			if len(out) == maxPatternCompetitors {
				return out
			}
		}
	}
	return out
}
