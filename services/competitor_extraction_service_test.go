package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
	fixtures "github.com/AI-Template-SDK/senso-geo/internal/providers/testutil"
)

func completionWith(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4.1-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
	})
	require.NoError(t, err)
	return body
}

func newExtractionServer(t *testing.T, status int, body []byte, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtractCompetitors(t *testing.T) {
	content := `{"competitors":[
		{"name":"Lakavitale","urls":["https://lakavitale.com"],"mention_type":"recommended"},
		{"name":"Adviso","urls":["https://adviso.ca"],"mention_type":"listed"},
		{"name":"Acme Agency","urls":[],"mention_type":"ranked"},
		{"name":"lakavitale","urls":[],"mention_type":"cited"},
		{"name":"  ","urls":[],"mention_type":"listed"}
	]}`
	var body map[string]any
	server := newExtractionServer(t, http.StatusOK, completionWith(t, content), &body)

	s := NewCompetitorExtractionService("sk-test", "", nil, zerolog.Nop(), option.WithBaseURL(server.URL+"/"))
	got, cost, err := s.ExtractCompetitors(context.Background(), "Try Lakavitale or Acme Agency.", fixtures.SampleBrand())
	require.NoError(t, err)
	assert.InDelta(t, 0.000224, cost, 1e-9)

	assert.Equal(t, []models.CompetitorMention{
		{Name: "Lakavitale", URLs: []string{"https://lakavitale.com"}, MentionType: models.MentionTypeRecommended},
		{Name: "Acme Agency", URLs: []string{}, MentionType: models.MentionTypeListed},
	}, got)

	assert.Equal(t, "gpt-4.1-mini", body["model"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)
	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "competitor_extraction", schema["name"])
	assert.Equal(t, true, schema["strict"])
}

func TestExtractCompetitorsFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"upstream error", http.StatusInternalServerError, []byte(`{"error":{"message":"boom","type":"server_error"}}`)},
		{"unparseable content", http.StatusOK, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = completionWith(t, "not json")
			}
			server := newExtractionServer(t, tt.status, body, nil)

			s := NewCompetitorExtractionService("sk-test", "gpt-4.1-mini", NewCostService(), zerolog.Nop(), option.WithBaseURL(server.URL+"/"))
			got, _, err := s.ExtractCompetitors(context.Background(), "answer", fixtures.SampleBrand())

			require.Error(t, err)
			assert.Nil(t, got)
			var upstream *common.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, models.ErrStructuredExtractionFailure, upstream.Kind)
		})
	}
}

func TestCompetitorExtractSchema(t *testing.T) {
	schema, ok := CompetitorExtractResponseSchema.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"competitors"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
}
