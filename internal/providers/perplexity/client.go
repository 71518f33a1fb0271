// Package perplexity probes Perplexity either through its OpenAI-compatible
// API or through the BrightData Perplexity dataset.
package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/chatgpt"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const (
	DefaultBaseURL   = "https://api.perplexity.ai/"
	defaultModel     = "sonar"
	defaultMaxTokens = 800
)

// APIClient talks to Perplexity's chat completions endpoint
type APIClient struct {
	client    openai.Client
	model     string
	maxTokens int
	costs     common.CostCalculator
}

func NewAPIClient(apiKey string, pc config.PlatformConfig, costs common.CostCalculator, opts ...option.RequestOption) *APIClient {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(DefaultBaseURL),
		option.WithMaxRetries(0),
	}, opts...)

	model := pc.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &APIClient{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		costs:     costs,
	}
}

func (c *APIClient) Name() string {
	return config.PlatformPerplexity
}

func (c *APIClient) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return nil, chatgpt.WrapError(config.PlatformPerplexity, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, common.NewUpstreamError(config.PlatformPerplexity, models.ErrUpstreamError, errors.New("empty completion"))
	}

	// citations is a Perplexity extension to the completion object
	var extra struct {
		Citations []string `json:"citations"`
	}
	_ = json.Unmarshal([]byte(resp.RawJSON()), &extra)

	in, out := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	cost := 0.0
	if c.costs != nil {
		cost = c.costs.CalculateCost("perplexity", c.model, in, out, true)
	}
	return &common.AIResponse{
		Response:     resp.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         cost,
		Citations:    extra.Citations,
	}, nil
}

func (c *APIClient) Close() error {
	return nil
}

// Input is one prompt of a BrightData Perplexity job. The dataset takes a
// bare array rather than an {"input": [...]} wrapper.
type Input struct {
	URL                string `json:"url"`
	Prompt             string `json:"prompt"`
	Country            string `json:"country"`
	Index              int    `json:"index"`
	ExportMarkdownFile string `json:"export_markdown_file"`
}

// Result is one record of a BrightData Perplexity snapshot
type Result struct {
	URL                string `json:"url"`
	Prompt             string `json:"prompt"`
	AnswerHTML         string `json:"answer_html"`
	AnswerTextMarkdown string `json:"answer_text_markdown"`
	Index              int    `json:"index"`
	Error              string `json:"error,omitempty"`
}

// DatasetClient runs one prompt as a BrightData submit, poll and fetch cycle
type DatasetClient struct {
	client    *common.BrightDataClient
	datasetID string
	country   string
	costs     common.CostCalculator
}

func NewDatasetClient(client *common.BrightDataClient, datasetID string, location *models.Location, costs common.CostCalculator) *DatasetClient {
	if costs == nil {
		costs = common.FlatCost(0.0015)
	}
	return &DatasetClient{
		client:    client,
		datasetID: datasetID,
		country:   common.MapLocationToCountry(location),
		costs:     costs,
	}
}

func (c *DatasetClient) Name() string {
	return config.PlatformPerplexity
}

func (c *DatasetClient) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	payload := []Input{{
		URL:     "https://www.perplexity.ai",
		Prompt:  prompt,
		Country: c.country,
		Index:   1,
	}}

	snapshotID, err := c.client.SubmitBatchJob(ctx, payload, c.datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to submit Perplexity job: %w", err)
	}
	if err := c.client.PollUntilComplete(ctx, snapshotID); err != nil {
		return nil, fmt.Errorf("failed to poll Perplexity job: %w", err)
	}
	body, err := c.client.GetBatchResults(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get Perplexity results: %w", err)
	}

	var results []Result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, common.NewUpstreamError(config.PlatformPerplexity, models.ErrUpstreamError, fmt.Errorf("failed to decode results: %w", err))
	}
	if len(results) == 0 {
		return nil, common.NewUpstreamError(config.PlatformPerplexity, models.ErrUpstreamError, errors.New("no results returned"))
	}
	result := results[0]
	if result.Error != "" {
		return nil, common.NewUpstreamError(config.PlatformPerplexity, models.ErrUpstreamError, fmt.Errorf("dataset error: %s", result.Error))
	}
	if result.AnswerTextMarkdown == "" {
		return nil, common.NewUpstreamError(config.PlatformPerplexity, models.ErrUpstreamError, errors.New("empty answer_text_markdown"))
	}

	return &common.AIResponse{
		Response:  result.AnswerTextMarkdown,
		Model:     "perplexity-web",
		Cost:      c.costs.CalculateCost("perplexity", "perplexity-web", 0, 0, true),
		Citations: common.ExtractCitations(result.AnswerHTML),
	}, nil
}

func (c *DatasetClient) Close() error {
	return nil
}
