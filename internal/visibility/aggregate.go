package visibility

import (
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// Summarize aggregates completed results. Every result counts as attempted,
// failed ones included, so a platform's score is mentions over the tasks
// dispatched for it. Sentiment and share of voice only look at mentions.
func Summarize(platforms []string, queries []models.QueryResults) models.VisibilitySummary {
	s := models.VisibilitySummary{
		ByPlatform:          make(map[string]float64, len(platforms)),
		AttemptedByPlatform: make(map[string]int, len(platforms)),
		FailedByPlatform:    make(map[string]int, len(platforms)),
		ErrorsByKind:        make(map[models.ErrorKind]int),
	}
	mentionedBy := make(map[string]int, len(platforms))
	for _, p := range platforms {
		s.AttemptedByPlatform[p] = 0
		s.FailedByPlatform[p] = 0
	}

	mentions := 0
	sov := 0.0
	for _, q := range queries {
		for _, r := range q.PlatformResults {
			if r == nil {
				continue
			}
			s.AttemptedByPlatform[r.Platform]++
			s.TotalCost += r.Cost
			if r.Error != nil {
				s.ErrorsByKind[*r.Error]++
			}
			if r.Failed() {
				s.FailedByPlatform[r.Platform]++
				continue
			}
			if !r.Mentioned {
				continue
			}

			mentionedBy[r.Platform]++
			mentions++
			sov += r.ShareOfVoice
			switch r.Sentiment {
			case models.SentimentPositive:
				s.SentimentBreakdown.Positive++
			case models.SentimentNegative:
				s.SentimentBreakdown.Negative++
			default:
				s.SentimentBreakdown.Neutral++
			}
		}
	}

	total := 0.0
	for _, p := range platforms {
		score := 0.0
		if n := s.AttemptedByPlatform[p]; n > 0 {
			score = float64(mentionedBy[p]) / float64(n)
		}
		s.ByPlatform[p] = score
		total += score
	}
	if len(platforms) > 0 {
		s.OverallVisibility = total / float64(len(platforms))
	}
	if mentions > 0 {
		s.AvgShareOfVoice = sov / float64(mentions)
	}
	return s
}
