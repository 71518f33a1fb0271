package geoscore

import (
	"math"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// statsSaturation is the stats-per-page density that earns the full component
const statsSaturation = 10.0

// Order is the fixed order of components in gap tables
var Order = []models.ScoreComponent{
	models.ComponentVisibility,
	models.ComponentDirectAnswer,
	models.ComponentTLDR,
	models.ComponentSchema,
	models.ComponentStats,
}

// DefaultWeights sum to 1
var DefaultWeights = map[models.ScoreComponent]float64{
	models.ComponentVisibility:   0.40,
	models.ComponentDirectAnswer: 0.20,
	models.ComponentTLDR:         0.15,
	models.ComponentSchema:       0.15,
	models.ComponentStats:        0.10,
}

// CompetitorProfile is what the scorer knows about one validated competitor
type CompetitorProfile struct {
	Domain     string
	Visibility float64
	Signals    models.ContentSignals
}

type Scorer struct {
	weights map[models.ScoreComponent]float64
}

func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights}
}

// Components maps visibility and content signals to the five components,
// each in [0,1].
func Components(visibility float64, s models.ContentSignals) map[models.ScoreComponent]float64 {
	return map[models.ScoreComponent]float64{
		models.ComponentVisibility:   clamp(visibility, 0, 1),
		models.ComponentDirectAnswer: clamp(s.DirectAnswerRate, 0, 1),
		models.ComponentTLDR:         clamp(s.TLDRRate, 0, 1),
		models.ComponentSchema:       clamp(s.SchemaRate, 0, 1),
		models.ComponentStats:        clamp(s.StatsPerPage/statsSaturation, 0, 1),
	}
}

// Value is the weighted sum of components on a 0-10 scale
func (sc *Scorer) Value(components map[models.ScoreComponent]float64) float64 {
	v := 0.0
	for _, c := range Order {
		v += sc.weights[c] * components[c]
	}
	return round(clamp(10*v, 0, 10), 2)
}

// Score combines our visibility summary and content signals. The gap table
// is built against the average of the competitors' own scores and is empty
// when there are none.
func (sc *Scorer) Score(summary models.VisibilitySummary, signals models.ContentSignals, competitors []CompetitorProfile) *models.GeoPowerScore {
	us := Components(summary.OverallVisibility, signals)
	score := &models.GeoPowerScore{
		Value:      sc.Value(us),
		Components: us,
		GapTable:   []models.GapRow{},
	}
	if len(competitors) == 0 {
		return score
	}

	avg := make(map[models.ScoreComponent]float64, len(Order))
	for _, c := range competitors {
		for k, v := range Components(c.Visibility, c.Signals) {
			avg[k] += v
		}
	}
	for _, k := range Order {
		a := avg[k] / float64(len(competitors))
		score.GapTable = append(score.GapTable, models.GapRow{
			Component:     k,
			Us:            round(us[k], 3),
			AvgCompetitor: round(a, 3),
			Gap:           round(us[k]-a, 3),
		})
	}
	return score
}

// CompetitorScores scores each competitor with the same formula
func (sc *Scorer) CompetitorScores(competitors []CompetitorProfile) map[string]float64 {
	out := make(map[string]float64, len(competitors))
	for _, c := range competitors {
		out[c.Domain] = sc.Value(Components(c.Visibility, c.Signals))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
