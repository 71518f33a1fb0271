package chatgpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const completion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Adviso is a leading agency."}}],
	"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
}`

type recordingCosts struct {
	provider, model string
	in, out         int
}

func (r *recordingCosts) CalculateCost(provider, model string, in, out int, _ bool) float64 {
	r.provider, r.model, r.in, r.out = provider, model, in, out
	return 0.25
}

func TestAsk(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completion))
	}))
	defer server.Close()

	costs := &recordingCosts{}
	c := New("sk-test", config.PlatformConfig{Name: "chatgpt", Model: "gpt-4o"}, costs, option.WithBaseURL(server.URL+"/"))

	resp, err := c.Ask(context.Background(), "best seo agency in montreal")
	require.NoError(t, err)

	assert.Equal(t, "Adviso is a leading agency.", resp.Response)
	assert.Equal(t, 20, resp.InputTokens)
	assert.Equal(t, 10, resp.OutputTokens)
	assert.Equal(t, 0.25, resp.Cost)
	assert.Equal(t, "openai", costs.provider)
	assert.Equal(t, "gpt-4o", costs.model)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	assert.EqualValues(t, 42, body["seed"])
	assert.EqualValues(t, 800, body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "best seo agency in montreal", messages[1].(map[string]any)["content"])
}

func TestAskClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   models.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, models.ErrUpstreamRateLimited},
		{"bad key", http.StatusUnauthorized, models.ErrUpstreamError},
		{"server error", http.StatusInternalServerError, models.ErrUpstreamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			}))
			defer server.Close()

			c := New("sk-test", config.PlatformConfig{Model: "gpt-4o"}, nil, option.WithBaseURL(server.URL+"/"))
			_, err := c.Ask(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tt.want, common.Classify(err))
		})
	}
}

func TestAskEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "model": "gpt-4o", "choices": []}`))
	}))
	defer server.Close()

	c := New("sk-test", config.PlatformConfig{}, nil, option.WithBaseURL(server.URL+"/"))
	_, err := c.Ask(context.Background(), "q")
	assert.Equal(t, models.ErrUpstreamError, common.Classify(err))
	assert.Equal(t, "chatgpt", c.Name())
	assert.NoError(t, c.Close())
}
