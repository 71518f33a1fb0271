package common_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

func TestIsStatusResponse(t *testing.T) {
	tests := []struct {
		name           string
		jsonBody       string
		expectIsStatus bool
		expectStatus   string
		expectMessage  string
	}{
		{"building", `{"status": "building", "message": "Snapshot is being built"}`, true, "building", "Snapshot is being built"},
		{"failed", `{"status": "failed", "message": "Job failed"}`, true, "failed", "Job failed"},
		{"result array is not status", `[{"url": "test", "prompt": "test"}]`, false, "", ""},
		{"object without status", `{"message": "hello"}`, false, "", ""},
		{"invalid json", `{invalid`, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isStatus, status, message := common.IsStatusResponse([]byte(tt.jsonBody))
			assert.Equal(t, tt.expectIsStatus, isStatus)
			assert.Equal(t, tt.expectStatus, status)
			assert.Equal(t, tt.expectMessage, message)
		})
	}
}

func TestExtractCitations(t *testing.T) {
	html := `<p>See <a href="https://adviso.ca/">Adviso</a> and <a href="/relative">here</a>,
		<a href="https://adviso.ca/">again</a> or <a href="http://acme.com/seo">Acme</a>.</p>`

	assert.Equal(t, []string{"https://adviso.ca/", "http://acme.com/seo"}, common.ExtractCitations(html))
	assert.Nil(t, common.ExtractCitations("  "))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorKind
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("ask: %w", context.DeadlineExceeded), models.ErrUpstreamTimeout},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), models.ErrUpstreamTimeout},
		{"429", common.StatusError("chatgpt", http.StatusTooManyRequests, nil), models.ErrUpstreamRateLimited},
		{"wrapped 504", fmt.Errorf("x: %w", common.StatusError("claude", http.StatusGatewayTimeout, nil)), models.ErrUpstreamTimeout},
		{"401", common.StatusError("claude", http.StatusUnauthorized, nil), models.ErrUpstreamError},
		{"plain", errors.New("boom"), models.ErrUpstreamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, common.Classify(tt.err))
		})
	}

	assert.True(t, common.IsRetryable(context.DeadlineExceeded))
	assert.False(t, common.IsRetryable(common.StatusError("x", http.StatusBadRequest, nil)))
}
