// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is the geographic scope a brand competes in
type Location struct {
	Country string  `json:"country" validate:"omitempty,len=2"` // ISO-3166 alpha-2
	City    *string `json:"city,omitempty"`
	Region  *string `json:"region,omitempty"` // state/province
}

// Label returns the most specific human readable part of the location
func (l *Location) Label() string {
	if l == nil {
		return ""
	}
	if l.City != nil && *l.City != "" {
		return *l.City
	}
	if l.Region != nil && *l.Region != "" {
		return *l.Region
	}
	return l.Country
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Query is produced by the external query generator and consumed read-only
type Query struct {
	Text           string   `json:"text" validate:"required"`
	Priority       Priority `json:"priority,omitempty"`
	Classification string   `json:"classification,omitempty"` // branded, semi-branded, non-branded, informational, ...
}

// BrandIdentity is what a probe looks for inside an answer
type BrandIdentity struct {
	Name   string `json:"name" validate:"required"`
	Domain string `json:"domain" validate:"required"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type MentionType string

const (
	MentionTypeRecommended MentionType = "recommended"
	MentionTypeListed      MentionType = "listed"
	MentionTypeCompared    MentionType = "compared"
	MentionTypeCited       MentionType = "cited"
)

// CompetitorMention is a competitor referenced inside a single answer
type CompetitorMention struct {
	Name        string      `json:"name"`
	URLs        []string    `json:"urls"`
	MentionType MentionType `json:"mention_type"`
}

// InvisibilityReason explains a probe in which the brand was not mentioned
type InvisibilityReason struct {
	Reason          string `json:"reason"`
	Severity        string `json:"severity"`
	Explanation     string `json:"explanation"`
	Action          string `json:"action"`
	EstimatedImpact string `json:"estimated_impact"`
}

// PlatformResult is created once per (platform, query) probe and never mutated afterwards
type PlatformResult struct {
	Platform             string               `json:"platform"`
	Query                Query                `json:"query"`
	Mentioned            bool                 `json:"mentioned"`
	Position             *int                 `json:"position,omitempty"`
	Sentiment            Sentiment            `json:"sentiment"`
	ContextSnippet       string               `json:"context_snippet,omitempty"`
	CompetitorsMentioned []CompetitorMention  `json:"competitors_mentioned"`
	FullResponse         string               `json:"full_response"`
	ShareOfVoice         float64              `json:"share_of_voice"`
	Error                *ErrorKind           `json:"error,omitempty"`
	ErrorDetail          string               `json:"error_detail,omitempty"`
	InvisibilityReasons  []InvisibilityReason `json:"invisibility_reasons,omitempty"`
	Cost                 float64              `json:"cost"`
	Attempts             int                  `json:"attempts"`
	DurationMS           int64                `json:"duration_ms"`
}

// Failed reports whether the probe produced no usable answer. A degraded
// result (answer retrieved, extraction fell back) is not a failure.
func (r *PlatformResult) Failed() bool {
	return r.Error != nil && !r.Error.Degraded()
}

// QueryResults groups the results of every platform for one query
type QueryResults struct {
	Query           Query             `json:"query"`
	PlatformResults []*PlatformResult `json:"platform_results"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// VisibilitySummary is a pure function of the completed PlatformResults
type VisibilitySummary struct {
	OverallVisibility   float64            `json:"overall_visibility"`
	ByPlatform          map[string]float64 `json:"by_platform"`
	SentimentBreakdown  SentimentBreakdown `json:"sentiment_breakdown"`
	AvgShareOfVoice     float64            `json:"avg_share_of_voice"`
	AttemptedByPlatform map[string]int     `json:"attempted_by_platform"`
	FailedByPlatform    map[string]int     `json:"failed_by_platform"`
	ErrorsByKind        map[ErrorKind]int  `json:"errors_by_kind"`
	TotalCost           float64            `json:"total_cost"`
}

// VisibilityReport is owned by a single batch run
type VisibilityReport struct {
	RunID       uuid.UUID         `json:"run_id"`
	Brand       BrandIdentity     `json:"brand"`
	Platforms   []string          `json:"platforms"`
	Queries     []QueryResults    `json:"queries"`
	Summary     VisibilitySummary `json:"summary"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Partial reports whether any probe of the run failed outright
func (r *VisibilityReport) Partial() bool {
	for _, n := range r.Summary.FailedByPlatform {
		if n > 0 {
			return true
		}
	}
	return false
}
