// services/competitor_extraction_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/chatgpt"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const extractionPlatform = "openai"

type competitorExtractionService struct {
	client openai.Client
	model  string
	costs  CostService
	logger zerolog.Logger
}

func NewCompetitorExtractionService(apiKey, model string, costs CostService, logger zerolog.Logger, opts ...option.RequestOption) CompetitorExtractionService {
	logger = logging.Component(logger, "CompetitorExtractionService")
	logger.Debug().Str("api_key", logging.MaskAPIKey(apiKey)).Str("model", model).Msg("Creating service")

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if costs == nil {
		costs = NewCostService()
	}
	return &competitorExtractionService{
		client: openai.NewClient(opts...),
		model:  model,
		costs:  costs,
		logger: logger,
	}
}

// CompetitorExtractResponse represents the structured output from OpenAI
type CompetitorExtractResponse struct {
	Competitors []CompetitorExtract `json:"competitors" jsonschema_description:"Companies other than the target brand that the answer mentions"`
}

type CompetitorExtract struct {
	Name        string   `json:"name" jsonschema_description:"Company name as written in the answer"`
	URLs        []string `json:"urls" jsonschema_description:"Websites the answer gives for this company, empty if none"`
	MentionType string   `json:"mention_type" jsonschema:"enum=recommended,enum=listed,enum=compared,enum=cited"`
}

var CompetitorExtractResponseSchema = GenerateSchema[CompetitorExtractResponse]()

func (s *competitorExtractionService) ExtractCompetitors(ctx context.Context, answer string, brand models.BrandIdentity) ([]models.CompetitorMention, float64, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "competitor_extraction",
		Description: openai.String("Extract the competitors mentioned in an AI answer"),
		Schema:      CompetitorExtractResponseSchema,
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a market analyst. Extract every company mentioned in the answer accurately, excluding the target brand."),
			openai.UserMessage(buildExtractionPrompt(answer, brand)),
		},
		Model: openai.ChatModel(s.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.1),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, 0, common.NewUpstreamError(extractionPlatform, models.ErrStructuredExtractionFailure, chatgpt.WrapError(extractionPlatform, err))
	}

	cost := s.costs.CalculateCost("openai", s.model, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens), false)
	s.logger.Debug().
		Int64("input_tokens", resp.Usage.PromptTokens).
		Int64("output_tokens", resp.Usage.CompletionTokens).
		Float64("cost", cost).
		Msg("Extraction complete")

	if len(resp.Choices) == 0 {
		return nil, cost, common.NewUpstreamError(extractionPlatform, models.ErrStructuredExtractionFailure, errors.New("no response choices returned"))
	}

	var extracted CompetitorExtractResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &extracted); err != nil {
		return nil, cost, common.NewUpstreamError(extractionPlatform, models.ErrStructuredExtractionFailure, fmt.Errorf("parsing extraction response: %w", err))
	}

	return toMentions(extracted.Competitors, brand), cost, nil
}

// toMentions drops the brand itself and nameless entries, and normalizes
// unknown mention types to listed.
func toMentions(extracted []CompetitorExtract, brand models.BrandIdentity) []models.CompetitorMention {
	out := make([]models.CompetitorMention, 0, len(extracted))
	seen := make(map[string]bool, len(extracted))
	for _, c := range extracted {
		name := strings.TrimSpace(c.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] || isBrand(key, brand) {
			continue
		}
		seen[key] = true

		kind := models.MentionType(c.MentionType)
		switch kind {
		case models.MentionTypeRecommended, models.MentionTypeListed, models.MentionTypeCompared, models.MentionTypeCited:
		default:
			kind = models.MentionTypeListed
		}
		urls := c.URLs
		if urls == nil {
			urls = []string{}
		}
		out = append(out, models.CompetitorMention{Name: name, URLs: urls, MentionType: kind})
	}
	return out
}

func isBrand(name string, brand models.BrandIdentity) bool {
	if strings.EqualFold(name, brand.Name) {
		return true
	}
	return brand.Domain != "" && strings.EqualFold(name, brand.Domain)
}

func buildExtractionPrompt(answer string, brand models.BrandIdentity) string {
	return fmt.Sprintf(`Extract the companies mentioned in the following AI answer.

TARGET BRAND: %s (%s). Do not include it.

For each other company give:
- name: the company name as written
- urls: any website the answer gives for it
- mention_type: "recommended" if the answer recommends it, "compared" if it is compared with another company, "cited" if it only appears as a source, otherwise "listed"

ANSWER:
%s`, brand.Name, brand.Domain, answer)
}
