// services/interfaces.go
package services

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

// ProbeRequest asks every selected platform every query about one brand
type ProbeRequest struct {
	Brand     models.BrandIdentity `json:"brand"`
	Queries   []models.Query       `json:"queries" validate:"required,min=1,dive"`
	Platforms []string             `json:"platforms,omitempty"`
}

// AnalysisRequest drives a full run: probing, competitor discovery and the
// competitive score.
type AnalysisRequest struct {
	Brand     models.BrandIdentity   `json:"brand"`
	Queries   []models.Query         `json:"queries" validate:"required,min=1,dive"`
	Platforms []string               `json:"platforms,omitempty"`
	Profile   models.SemanticProfile `json:"profile"`
	// Signals of the subject's own site. When empty they are derived from Pages.
	Signals    *models.ContentSignals `json:"content_signals,omitempty"`
	Pages      []string               `json:"pages_html,omitempty"`
	Thresholds *models.Thresholds     `json:"thresholds,omitempty"`
}

func (r AnalysisRequest) Validate() error {
	return validateRequest("analysis", r)
}

func (r AnalysisRequest) Probe() ProbeRequest {
	return ProbeRequest{Brand: r.Brand, Queries: r.Queries, Platforms: r.Platforms}
}

// CostService prices AI-answer and scraping calls
type CostService interface {
	common.CostCalculator
}

// CompetitorExtractionService pulls competitor names and URLs out of an
// answer with a structured-output model call.
type CompetitorExtractionService interface {
	ExtractCompetitors(ctx context.Context, answer string, brand models.BrandIdentity) ([]models.CompetitorMention, float64, error)
}

// VisibilityService runs the probing engine for one request
type VisibilityService interface {
	Probe(ctx context.Context, req ProbeRequest) (*models.VisibilityReport, error)
}

// DiscoveryService runs the three-stage competitor discovery pipeline
type DiscoveryService interface {
	Discover(ctx context.Context, req discovery.Request) (*models.DiscoveryResult, error)
}

// AnalysisService composes visibility, discovery and scoring
type AnalysisService interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error)
	DiscoveryRequest(req AnalysisRequest, report *models.VisibilityReport) discovery.Request
	Compete(req AnalysisRequest, report *models.VisibilityReport, found *models.DiscoveryResult) *models.AnalysisResult
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	// Convert to the format expected by OpenAI
	result := map[string]interface{}{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}

	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}

	return result
}
