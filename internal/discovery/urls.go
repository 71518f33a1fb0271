// Package discovery turns AI answers and web search results into a ranked
// list of validated competitors.
package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// CandidateError records why one candidate was dropped
type CandidateError struct {
	URL  string
	Kind models.ErrorKind
	Err  error
}

func (e *CandidateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("candidate %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("candidate %s: %s", e.URL, e.Kind)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// KindOf returns the candidate error kind of err, or "" when err is not one
func KindOf(err error) models.ErrorKind {
	var ce *CandidateError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func malformed(raw string, reason string) error {
	return &CandidateError{URL: raw, Kind: models.ErrMalformedURL, Err: errors.New(reason)}
}

// NormalizeURL forces https, lower-cases the host, strips a leading www.,
// drops port, query and fragment, trims a trailing slash and defaults an
// empty path to "/".
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'<>()[]{},;:!?.`)
	if s == "" {
		return "", malformed(raw, "empty")
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "//"):
		s = "https:" + s
	case !strings.Contains(lower, "://"):
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", &CandidateError{URL: raw, Kind: models.ErrMalformedURL, Err: err}
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", malformed(raw, "unsupported scheme "+u.Scheme)
	}
	if u.User != nil {
		return "", malformed(raw, "credentials in URL")
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if !validHost(host) {
		return "", malformed(raw, "invalid host")
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}
	return "https://" + host + path, nil
}

func validHost(host string) bool {
	if host == "" || !strings.Contains(host, ".") || strings.Contains(host, "..") {
		return false
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return false
	}
	for _, r := range host {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

// Domain returns the normalized domain of a URL or bare domain, or "" when
// it cannot be normalized.
func Domain(raw string) string {
	n, err := NormalizeURL(raw)
	if err != nil {
		return ""
	}
	return hostOf(n)
}

// hostOf extracts the host from an already normalized URL
func hostOf(normalized string) string {
	rest := strings.TrimPrefix(normalized, "https://")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// registrable returns the eTLD+1 of domain, or domain itself when the
// public suffix list has no answer.
func registrable(domain string) string {
	if r, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		return r
	}
	return domain
}

// label is the leftmost label of the registrable domain: "google" for
// maps.google.ca.
func label(domain string) string {
	r := registrable(domain)
	if i := strings.IndexByte(r, '.'); i > 0 {
		return r[:i]
	}
	return r
}

// SameSite reports whether two domains are equal or share a registrable domain
func SameSite(a, b string) bool {
	a, b = Domain(a), Domain(b)
	if a == "" || b == "" {
		return false
	}
	return a == b || registrable(a) == registrable(b)
}
