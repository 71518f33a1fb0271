package mention

import (
	"fmt"
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const maxReasons = 3

// Diagnose explains why a brand was absent from an answer. Reasons are
// ordered by severity and capped at three.
func Diagnose(query string, competitors []models.CompetitorMention) []models.InvisibilityReason {
	reasons := []models.InvisibilityReason{{
		Reason:          "NO_RELEVANT_CONTENT",
		Severity:        "CRITICAL",
		Explanation:     fmt.Sprintf("No page on the site appears to address %q directly", query),
		Action:          fmt.Sprintf("Publish a dedicated page or guide answering %q", query),
		EstimatedImpact: "HIGH",
	}}

	if len(competitors) > 0 {
		names := make([]string, 0, len(competitors))
		for _, c := range competitors {
			names = append(names, c.Name)
		}
		reasons = append(reasons, models.InvisibilityReason{
			Reason:          "INSUFFICIENT_DATA",
			Severity:        "HIGH",
			Explanation:     fmt.Sprintf("Cited competitors (%s) likely publish more factual, quotable data", strings.Join(names, ", ")),
			Action:          "Add 10-15 sourced statistics to the pages targeting this query",
			EstimatedImpact: "HIGH",
		})
	}

	reasons = append(reasons,
		models.InvisibilityReason{
			Reason:          "INSUFFICIENT_CONTENT",
			Severity:        "HIGH",
			Explanation:     "Existing content on this topic is probably too short to be quoted",
			Action:          "Expand the content to 2000+ words with a summary at the top",
			EstimatedImpact: "MEDIUM-HIGH",
		},
		models.InvisibilityReason{
			Reason:          "NO_SCHEMA_MARKUP",
			Severity:        "MEDIUM",
			Explanation:     "Structured data is probably missing or incomplete",
			Action:          "Add Organization, FAQPage and Article schema",
			EstimatedImpact: "MEDIUM",
		},
	)

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}
