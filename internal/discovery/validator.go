package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/geoscore"
	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
	"github.com/AI-Template-SDK/senso-geo/internal/retry"
)

const (
	maxRedirects = 10
	maxPageBody  = 2 << 20
	maxHeadings  = 5

	defaultValidationTimeout = 5 * time.Second
)

var (
	errTooManyRedirects = errors.New("stopped after 10 redirects")
	errHomepage         = errors.New("homepage fetch failed")
	errLowScore         = errors.New("score below thresholds")
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Page is what Stage 3 reads from a candidate's homepage
type Page struct {
	URL         string
	Title       string
	Description string
	H1          string
	H2          []string
	Signals     models.ContentSignals
}

func (p *Page) headings() string {
	return strings.TrimSpace(p.H1 + " " + strings.Join(p.H2, " "))
}

// Validator is discovery Stage 3: it checks that each candidate exists,
// reads its homepage, scores it against the subject's profile and ranks
// the survivors.
type Validator struct {
	client         *http.Client
	resolver       Resolver
	keywords       heuristics.KeywordExtractor
	policy         retry.Policy
	timeout        time.Duration
	concurrency    int
	maxCompetitors int
	userAgent      string
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

type ValidatorOption func(*Validator)

func WithResolver(r Resolver) ValidatorOption {
	return func(v *Validator) {
		v.resolver = r
	}
}

// WithHTTPClient replaces the fetch client. The redirect cap is applied to it.
func WithHTTPClient(hc *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.client = hc
	}
}

func WithKeywords(k heuristics.KeywordExtractor) ValidatorOption {
	return func(v *Validator) {
		v.keywords = k
	}
}

func WithLogger(l zerolog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = l.With().Str("component", "CandidateValidator").Logger()
	}
}

func WithMetrics(m *metrics.Metrics) ValidatorOption {
	return func(v *Validator) {
		v.metrics = m
	}
}

func NewValidator(cfg config.DiscoveryConfig, opts ...ValidatorOption) *Validator {
	v := &Validator{
		client:         &http.Client{},
		resolver:       net.DefaultResolver,
		keywords:       heuristics.NewRegexKeywords(),
		timeout:        cfg.ValidationTimeout,
		concurrency:    cfg.FetchConcurrency,
		maxCompetitors: cfg.MaxCompetitors,
		userAgent:      cfg.UserAgent,
		metrics:        metrics.Nop(),
		logger:         zerolog.Nop(),
	}
	if v.timeout <= 0 {
		v.timeout = defaultValidationTimeout
	}
	if v.concurrency <= 0 {
		v.concurrency = 1
	}
	v.policy = retry.FromConfig(config.RetryConfig{
		MaxRetries: cfg.ValidationRetries,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Jitter:     0.2,
	}, common.IsRetryable)

	for _, opt := range opts {
		opt(v)
	}
	if v.metrics == nil {
		v.metrics = metrics.Nop()
	}
	v.client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	return v
}

// ValidateAndScore checks, scores and ranks candidates. Each candidate is
// handled on its own: a failure drops that candidate only. The result is
// unique by domain, sorted by score and never nil. The count is the number of
// candidates dropped on a timeout or rate limit.
func (v *Validator) ValidateAndScore(ctx context.Context, candidates []models.CompetitorCandidate, profile models.SemanticProfile, thresholds models.Thresholds) ([]models.ValidatedCompetitor, int) {
	slots := make([]*models.ValidatedCompetitor, len(candidates))
	var transientDrops atomic.Int32

	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			vc, err := v.validate(ctx, c, profile, thresholds)
			if err != nil {
				v.metrics.DiscoveryDropped.WithLabelValues(dropReason(err)).Inc()
				if transient(err) {
					transientDrops.Add(1)
				}
				v.logger.Debug().Err(err).Str("url", c.URL).Msg("Candidate dropped")
				return nil
			}
			slots[i] = vc
			return nil
		})
	}
	_ = g.Wait()

	var scored []models.ValidatedCompetitor
	for _, s := range slots {
		if s != nil {
			scored = append(scored, *s)
		}
	}
	ranked, dupes := Rank(scored, v.maxCompetitors)
	if dupes > 0 {
		v.metrics.DiscoveryDropped.WithLabelValues("duplicate").Add(float64(dupes))
	}

	v.logger.Info().
		Int("candidates", len(candidates)).
		Int("validated", len(ranked)).
		Int32("transient_drops", transientDrops.Load()).
		Msg("Candidate validation complete")
	return ranked, int(transientDrops.Load())
}

func (v *Validator) validate(ctx context.Context, c models.CompetitorCandidate, profile models.SemanticProfile, thresholds models.Thresholds) (*models.ValidatedCompetitor, error) {
	target, err := NormalizeURL(c.URL)
	if err != nil {
		return nil, err
	}
	domain := hostOf(target)

	if err := v.resolve(ctx, domain); err != nil {
		return nil, &CandidateError{URL: target, Kind: models.ErrDNSResolutionFailure, Err: err}
	}
	if err := v.reachable(ctx, target); err != nil {
		return nil, &CandidateError{URL: target, Kind: models.ErrUnreachableHost, Err: err}
	}

	home := "https://" + domain + "/"
	page, err := v.fetchPage(ctx, home)
	if err != nil {
		return nil, &CandidateError{URL: home, Kind: models.ErrUnreachableHost, Err: fmt.Errorf("%w: %w", errHomepage, err)}
	}

	rel := Relevance(v.keywords, profile, domain, page, c.Source)
	kind, ok := Classify(rel.Score, thresholds)
	if !ok {
		return nil, fmt.Errorf("%s: %w (%.2f)", target, errLowScore, rel.Score)
	}

	signals := page.Signals
	return &models.ValidatedCompetitor{
		Domain:      domain,
		HomepageURL: home,
		Score:       rel.Score,
		Type:        kind,
		Reason:      Reason(rel, kind, profile, c.Source),
		Source:      c.Source,
		Title:       page.Title,
		Signals:     &signals,
	}, nil
}

func (v *Validator) resolve(ctx context.Context, host string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	addrs, err := v.resolver.LookupHost(ctx, host)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return fmt.Errorf("no addresses for %s", host)
	}
	return nil
}

// reachable sends HEAD, falling back to GET for servers that refuse HEAD.
// Timeouts and 429s are retried under the validation retry policy.
func (v *Validator) reachable(ctx context.Context, target string) error {
	_, err := retry.Run(ctx, v.policy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, v.timeout)
		defer cancel()

		status, err := v.status(ctx, http.MethodHead, target)
		if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
			status, err = v.status(ctx, http.MethodGet, target)
		}
		if err != nil {
			return common.NewUpstreamError("validator", common.Classify(err), err)
		}
		if status >= http.StatusBadRequest {
			return common.StatusError("validator", status, nil)
		}
		return nil
	})
	return err
}

func (v *Validator) status(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBody))
	return resp.StatusCode, nil
}

func (v *Validator) fetchPage(ctx context.Context, target string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, common.StatusError("validator", resp.StatusCode, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, err
	}
	return ParsePage(target, body)
}

// ParsePage extracts the title, meta description and headings of a page
// together with its content signals.
func ParsePage(target string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &Page{
		URL:     target,
		Title:   clean(doc.Find("title").First().Text()),
		H1:      clean(doc.Find("h1").First().Text()),
		Signals: geoscore.SignalsFromHTML(string(body)),
	}
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		p.Description = clean(d)
	} else if d, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		p.Description = clean(d)
	}
	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if h := clean(s.Text()); h != "" {
			p.H2 = append(p.H2, h)
		}
		return len(p.H2) < maxHeadings
	})
	return p, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// transient reports whether a dropped candidate could validate on a later run
func transient(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	if KindOf(err) != models.ErrUnreachableHost {
		return false
	}
	return common.Classify(err).Retryable()
}

func dropReason(err error) string {
	switch KindOf(err) {
	case models.ErrMalformedURL:
		return "malformed"
	case models.ErrDNSResolutionFailure:
		return "dns"
	case models.ErrUnreachableHost:
		if errors.Is(err, errHomepage) {
			return "fetch"
		}
		return "unreachable"
	}
	if errors.Is(err, errLowScore) {
		return "low_score"
	}
	return "other"
}
