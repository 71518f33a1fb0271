package models

// ErrorKind classifies a recovered failure of one probe, candidate or search query
type ErrorKind string

const (
	ErrUpstreamTimeout             ErrorKind = "UpstreamTimeout"
	ErrUpstreamRateLimited         ErrorKind = "UpstreamRateLimited"
	ErrUpstreamError               ErrorKind = "UpstreamError"
	ErrDNSResolutionFailure        ErrorKind = "DNSResolutionFailure"
	ErrUnreachableHost             ErrorKind = "UnreachableHost"
	ErrMalformedURL                ErrorKind = "MalformedURL"
	ErrStructuredExtractionFailure ErrorKind = "StructuredExtractionFailure"
)

// Retryable reports whether a retry can reasonably change the outcome
func (k ErrorKind) Retryable() bool {
	return k == ErrUpstreamTimeout || k == ErrUpstreamRateLimited
}

// Degraded kinds still carry a usable answer
func (k ErrorKind) Degraded() bool {
	return k == ErrStructuredExtractionFailure
}

// Ptr returns a pointer to a copy of k
func (k ErrorKind) Ptr() *ErrorKind {
	return &k
}
