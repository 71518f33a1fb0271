// Package chatgpt probes ChatGPT through the OpenAI Chat Completions API.
package chatgpt

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const (
	systemPrompt     = "You are an assistant that answers questions with sources. Name specific companies and their websites when relevant."
	defaultMaxTokens = 800
	seed             = 42
)

// Client implements common.AnswerClient for ChatGPT
type Client struct {
	client    openai.Client
	model     string
	maxTokens int
	costs     common.CostCalculator
}

// New builds a client. SDK retries are disabled; the adapter's retry policy
// owns retries.
func New(apiKey string, pc config.PlatformConfig, costs common.CostCalculator, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	maxTokens := pc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	model := pc.Model
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &Client{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		costs:     costs,
	}
}

func (c *Client) Name() string {
	return config.PlatformChatGPT
}

// Ask sends the prompt with temperature 0 and a fixed seed
func (c *Client) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
		Seed:        openai.Int(seed),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return nil, WrapError(config.PlatformChatGPT, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, common.NewUpstreamError(config.PlatformChatGPT, models.ErrUpstreamError, errors.New("empty completion"))
	}

	in, out := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	cost := 0.0
	if c.costs != nil {
		cost = c.costs.CalculateCost("openai", c.model, in, out, false)
	}
	return &common.AIResponse{
		Response:     resp.Choices[0].Message.Content,
		Model:        c.model,
		InputTokens:  in,
		OutputTokens: out,
		Cost:         cost,
	}, nil
}

func (c *Client) Close() error {
	return nil
}

// WrapError classifies an error returned by the OpenAI SDK. It is shared by
// every platform that speaks the OpenAI wire format.
func WrapError(platform string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return common.StatusError(platform, apiErr.StatusCode, err)
	}
	return err
}
