// Package heuristics holds the swappable text heuristics used by probing and
// discovery: sentiment scoring, keyword extraction and pattern-based
// competitor detection.
package heuristics

import (
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// Sentiment classifies the tone of a short text window
type Sentiment interface {
	Classify(text string) models.Sentiment
}

// Lexicon counts positive and negative terms. More positive hits than
// negative is positive, the reverse is negative, and a tie is neutral.
type Lexicon struct {
	Positive []string
	Negative []string
}

// DefaultLexicon covers the French and English vocabulary seen in answers
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Positive: []string{
			"meilleur", "excellent", "recommandé", "professionnel", "qualité", "fiable", "expérimenté",
			"best", "recommended", "leading", "trusted", "reliable", "top-rated", "reputable", "award-winning", "popular",
		},
		Negative: []string{
			"problème", "mauvais", "décevant", "éviter", "attention", "plainte",
			"avoid", "complaint", "poor", "disappointing", "scam", "unreliable", "lawsuit", "worst",
		},
	}
}

func (l *Lexicon) Classify(text string) models.Sentiment {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range l.Positive {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range l.Negative {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
