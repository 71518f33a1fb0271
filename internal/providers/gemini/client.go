// Package gemini probes Google Gemini through the generative-ai-go SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const defaultMaxTokens = 800

// generator is the part of *genai.GenerativeModel a probe needs
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	client *genai.Client
	model  generator
	name   string
	costs  common.CostCalculator
}

// New opens the SDK client. Close must be called to release it.
func New(ctx context.Context, apiKey string, pc config.PlatformConfig, costs common.CostCalculator, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	model := client.GenerativeModel(pc.Model)
	model.SetTemperature(0)
	model.SetCandidateCount(1)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Client{client: client, model: model, name: pc.Model, costs: costs}, nil
}

func (c *Client) Name() string {
	return config.PlatformGemini
}

func (c *Client) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, common.StatusError(config.PlatformGemini, gerr.Code, err)
		}
		return nil, err
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, common.NewUpstreamError(config.PlatformGemini, models.ErrUpstreamError, err)
	}

	var in, out int
	if resp.UsageMetadata != nil {
		in = int(resp.UsageMetadata.PromptTokenCount)
		out = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	cost := 0.0
	if c.costs != nil {
		cost = c.costs.CalculateCost("google", c.name, in, out, false)
	}
	return &common.AIResponse{
		Response:     text,
		Model:        c.name,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         cost,
	}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
