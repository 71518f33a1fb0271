package geoscore

import (
	"fmt"
	"sort"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// InsightThreshold is the minimum competitor lead that triggers an insight
const InsightThreshold = 0.15

type template struct {
	title         string
	action        string
	impact        string
	estimatedTime string
}

var templates = map[models.ScoreComponent]template{
	models.ComponentVisibility: {
		title:         "Close the AI visibility gap",
		action:        "Publish pages that answer the probed questions directly and get cited by the sources AI answers rely on",
		impact:        "AI answer mentions +20-30%",
		estimatedTime: "2-4 weeks",
	},
	models.ComponentDirectAnswer: {
		title:         "Lead pages with a direct answer",
		action:        "Open each key page with a 40-60 word paragraph that answers its main question",
		impact:        "Quotability in AI answers +25%",
		estimatedTime: "20 minutes per page",
	},
	models.ComponentTLDR: {
		title:         "Add a TL;DR at the top of pages",
		action:        "Add a short summary block at the start of each main page",
		impact:        "ChatGPT visibility +25%",
		estimatedTime: "15 minutes per page",
	},
	models.ComponentSchema: {
		title:         "Implement schema markup",
		action:        "Add Organization, FAQPage and LocalBusiness JSON-LD",
		impact:        "AI indexing +50%",
		estimatedTime: "30 minutes per page",
	},
	models.ComponentStats: {
		title:         "Increase statistics density",
		action:        "Add 10-15 sourced statistics per page",
		impact:        "Credibility +40%, visibility +20%",
		estimatedTime: "1 hour of research per page",
	},
}

// Insights turns every gap row where competitors lead by at least
// InsightThreshold into a recommendation, largest gap first.
func Insights(rows []models.GapRow) []models.Insight {
	type lead struct {
		row  models.GapRow
		size float64
	}
	var leads []lead
	for _, r := range rows {
		if size := r.AvgCompetitor - r.Us; size >= InsightThreshold {
			leads = append(leads, lead{row: r, size: size})
		}
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].size > leads[j].size })

	out := make([]models.Insight, 0, len(leads))
	for _, l := range leads {
		t := templates[l.row.Component]
		out = append(out, models.Insight{
			Priority:      priority(l.size),
			Component:     l.row.Component,
			Title:         t.title,
			Problem:       fmt.Sprintf("Competitors average %.0f%% on %s versus %.0f%% for you", l.row.AvgCompetitor*100, l.row.Component, l.row.Us*100),
			Action:        t.action,
			Impact:        t.impact,
			EstimatedTime: t.estimatedTime,
		})
	}
	return out
}

func priority(gap float64) string {
	switch {
	case gap >= 0.4:
		return "CRITICAL"
	case gap >= 0.25:
		return "HIGH"
	default:
		return "MEDIUM"
	}
}
