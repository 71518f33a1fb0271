package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// UpstreamError is a classified failure from an AI-answer or search provider
type UpstreamError struct {
	Platform   string
	Kind       models.ErrorKind
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Platform, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(platform string, kind models.ErrorKind, err error) *UpstreamError {
	return &UpstreamError{Platform: platform, Kind: kind, Err: err}
}

// StatusError classifies a non-2xx HTTP response
func StatusError(platform string, status int, err error) *UpstreamError {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	return &UpstreamError{Platform: platform, Kind: KindForStatus(status), StatusCode: status, Err: err}
}

func KindForStatus(status int) models.ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return models.ErrUpstreamRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return models.ErrUpstreamTimeout
	default:
		return models.ErrUpstreamError
	}
}

// Classify maps any error returned by a client call to an ErrorKind.
// Deadlines and network timeouts are timeouts, classified upstream errors
// keep their kind, and everything else is a generic upstream error.
func Classify(err error) models.ErrorKind {
	if err == nil {
		return ""
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrUpstreamTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.ErrUpstreamTimeout
	}
	return models.ErrUpstreamError
}

// IsRetryable is the retry classifier shared by every platform adapter
func IsRetryable(err error) bool {
	return Classify(err).Retryable()
}
