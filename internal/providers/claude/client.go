// Package claude probes Claude through the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const defaultMaxTokens = 800

type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int
	costs     common.CostCalculator
}

func New(apiKey string, pc config.PlatformConfig, costs common.CostCalculator, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     pc.Model,
		maxTokens: maxTokens,
		costs:     costs,
	}
}

func (c *Client) Name() string {
	return config.PlatformClaude
}

func (c *Client) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, common.StatusError(config.PlatformClaude, apiErr.StatusCode, err)
		}
		return nil, err
	}

	text := extractResponseText(response)
	if text == "" {
		return nil, common.NewUpstreamError(config.PlatformClaude, models.ErrUpstreamError, errors.New("no text blocks in response"))
	}

	in, out := int(response.Usage.InputTokens), int(response.Usage.OutputTokens)
	cost := 0.0
	if c.costs != nil {
		cost = c.costs.CalculateCost("anthropic", c.model, in, out, false)
	}
	return &common.AIResponse{
		Response:     text,
		Model:        c.model,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         cost,
	}, nil
}

func (c *Client) Close() error {
	return nil
}

func extractResponseText(response *anthropic.Message) string {
	var textParts []string
	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}
	return strings.Join(textParts, "")
}
