package models

// SemanticProfile is produced upstream by the semantic classifier
type SemanticProfile struct {
	PrimaryIndustry string    `json:"primary_industry" validate:"required"`
	SubIndustry     string    `json:"sub_industry,omitempty"`
	CompanyType     string    `json:"company_type,omitempty"`
	TopOfferings    []string  `json:"top_offerings,omitempty"`
	Location        *Location `json:"location,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
}

// Region returns the geographic scope used in search queries
func (p SemanticProfile) Region() string {
	return p.Location.Label()
}

type CandidateSource string

const (
	SourceLLM       CandidateSource = "llm"
	SourceWebSearch CandidateSource = "web_search"
	SourceBoth      CandidateSource = "both"
)

// CompetitorCandidate is transient: produced by stages 1/2, consumed by stage 3
type CompetitorCandidate struct {
	URL    string          `json:"url"`
	Source CandidateSource `json:"source"`
	Stage  string          `json:"stage"`
}

type CompetitorType string

const (
	CompetitorDirect   CompetitorType = "direct"
	CompetitorIndirect CompetitorType = "indirect"
)

// ValidatedCompetitor is unique by Domain within a ranked list
type ValidatedCompetitor struct {
	Domain      string          `json:"domain"`
	HomepageURL string          `json:"homepage_url"`
	Score       float64         `json:"score"`
	Type        CompetitorType  `json:"type"`
	Reason      string          `json:"reason"`
	Source      CandidateSource `json:"source"`
	Title       string          `json:"title,omitempty"`
	Signals     *ContentSignals `json:"content_signals,omitempty"`
}

// Thresholds drive direct/indirect classification
type Thresholds struct {
	Direct   float64 `json:"direct" yaml:"direct" validate:"gte=0,lte=1"`
	Indirect float64 `json:"indirect" yaml:"indirect" validate:"gte=0,lte=1"`
}

// DiscoveryResult is the output of the three-stage pipeline
type DiscoveryResult struct {
	LLMCandidates       []string              `json:"llm_candidates"`
	WebSearchCandidates []string              `json:"web_search_candidates"`
	Competitors         []ValidatedCompetitor `json:"competitors"`
	// FailedSearches counts Stage 2 queries that errored or never ran
	FailedSearches int `json:"failed_searches"`
	// TransientDrops counts candidates dropped on a timeout or rate limit
	TransientDrops int `json:"transient_drops"`
}

// Partial reports whether an outage may have hidden competitors from the run
func (r *DiscoveryResult) Partial() bool {
	return r.FailedSearches > 0 || r.TransientDrops > 0
}
