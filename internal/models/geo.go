package models

import "github.com/google/uuid"

// ContentSignals are content-quality measurements computed over a site's pages
type ContentSignals struct {
	Pages            int     `json:"pages"`
	DirectAnswerRate float64 `json:"direct_answer_rate"`
	TLDRRate         float64 `json:"tldr_rate"`
	SchemaRate       float64 `json:"schema_rate"`
	StatsPerPage     float64 `json:"stats_per_page"`
	WordCount        int     `json:"word_count,omitempty"`
	H2Count          int     `json:"h2_count,omitempty"`
	ListCount        int     `json:"list_count,omitempty"`
	TableCount       int     `json:"table_count,omitempty"`
	HasFAQ           bool    `json:"has_faq,omitempty"`
}

type ScoreComponent string

const (
	ComponentVisibility   ScoreComponent = "visibility"
	ComponentDirectAnswer ScoreComponent = "direct_answer"
	ComponentTLDR         ScoreComponent = "tldr"
	ComponentSchema       ScoreComponent = "schema"
	ComponentStats        ScoreComponent = "stats"
)

// GapRow compares one component of ours against the average competitor
type GapRow struct {
	Component     ScoreComponent `json:"component"`
	Us            float64        `json:"us"`
	AvgCompetitor float64        `json:"avg_competitor"`
	Gap           float64        `json:"gap"`
}

// GeoPowerScore is a composite in [0,10]
type GeoPowerScore struct {
	Value      float64                    `json:"value"`
	Components map[ScoreComponent]float64 `json:"components"`
	GapTable   []GapRow                   `json:"gap_table"`
}

// Insight is an actionable recommendation record
type Insight struct {
	Priority      string         `json:"priority"`
	Component     ScoreComponent `json:"component"`
	Title         string         `json:"title"`
	Problem       string         `json:"problem"`
	Action        string         `json:"action"`
	Impact        string         `json:"impact"`
	EstimatedTime string         `json:"estimated_time"`
}

// CompetitorVisibility is a competitor's mention rate across the probed answers
type CompetitorVisibility struct {
	Domain     string             `json:"domain"`
	ByPlatform map[string]float64 `json:"by_platform"`
	Overall    float64            `json:"overall"`
}

// AnalysisResult ties one run of every subsystem together
type AnalysisResult struct {
	RunID                uuid.UUID              `json:"run_id"`
	Visibility           *VisibilityReport      `json:"visibility"`
	Discovery            *DiscoveryResult       `json:"discovery"`
	Score                *GeoPowerScore         `json:"geo_power_score"`
	CompetitorScores     map[string]float64     `json:"competitor_scores"`
	CompetitorVisibility []CompetitorVisibility `json:"competitor_visibility"`
	Insights             []Insight              `json:"insights"`
}
