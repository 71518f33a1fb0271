package discovery

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	fixtures "github.com/AI-Template-SDK/senso-geo/internal/providers/testutil"
)

const advisoHome = `<html><head>
<title>Adviso | Digital marketing agency in Montreal</title>
<meta name="description" content="SEO, analytics and paid search experts">
<script type="application/ld+json">{"@type":"Organization","name":"Adviso"}</script>
</head><body>
<h1>Digital marketing agency</h1>
<p>Adviso is a digital marketing agency that helps brands grow with search.</p>
<p>TL;DR: 250 clients, 95% retention.</p>
</body></html>`

const bakeryHome = `<html><head><title>Fresh bread and pastries</title></head>
<body><h1>Our bakery</h1><p>Croissants every morning.</p></body></html>`

type fakeResolver struct {
	fail    map[string]bool
	timeout map[string]bool
}

func (r fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if r.timeout[host] {
		return nil, &net.DNSError{Err: "i/o timeout", Name: host, IsTimeout: true}
	}
	if r.fail[host] {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return []string{"192.0.2.10"}, nil
}

type sites struct {
	heads atomic.Int32
}

// serve answers for every candidate host through one test server
func (s *sites) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		s.heads.Add(1)
	}
	switch r.Host {
	case "adviso.ca":
		_, _ = w.Write([]byte(advisoHome))
	case "nohead-marketing.ca":
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(strings.Replace(advisoHome, "Adviso |", "Nohead |", 1)))
	case "bakery.ca":
		_, _ = w.Write([]byte(bakeryHome))
	case "moved.ca":
		http.Redirect(w, r, "https://adviso.ca/", http.StatusMovedPermanently)
	default:
		http.NotFound(w, r)
	}
}

func newValidator(t *testing.T, m *metrics.Metrics, resolver Resolver) (*Validator, *sites) {
	t.Helper()
	s := &sites{}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)

	cfg := fixtures.SampleConfig().Discovery
	v := NewValidator(cfg,
		WithResolver(resolver),
		WithHTTPClient(&http.Client{Transport: fixtures.NewRewriteTransport(srv.URL)}),
		WithMetrics(m),
		WithLogger(zerolog.Nop()),
	)
	return v, s
}

func thresholds() models.Thresholds {
	return fixtures.SampleConfig().Discovery.Thresholds
}

func TestPipelineDropsUnresolvableCandidate(t *testing.T) {
	m := metrics.New(nil)
	v, _ := newValidator(t, m, fakeResolver{fail: map[string]bool{"lakavitale.com": true}})
	p := NewPipeline(fixtures.SampleConfig().Discovery, NewCandidateExtractor(nil), nil, v, m, zerolog.Nop())

	res, err := p.Run(context.Background(), Request{
		Texts:     []string{"Check https://lakavitale.com and https://adviso.ca"},
		Profile:   fixtures.SampleProfile(),
		OwnDomain: "subject-example.ca",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://adviso.ca/", "https://lakavitale.com/"}, res.LLMCandidates)
	assert.Empty(t, res.WebSearchCandidates)
	require.Len(t, res.Competitors, 1)

	c := res.Competitors[0]
	assert.Equal(t, "adviso.ca", c.Domain)
	assert.Equal(t, "https://adviso.ca/", c.HomepageURL)
	assert.Equal(t, models.CompetitorDirect, c.Type)
	assert.Equal(t, models.SourceLLM, c.Source)
	assert.InDelta(t, 0.8, c.Score, 1e-9)
	assert.Equal(t, "Same sector (marketing) | Direct competitor | Strong thematic similarity", c.Reason)
	assert.Equal(t, "Adviso | Digital marketing agency in Montreal", c.Title)
	require.NotNil(t, c.Signals)
	assert.Equal(t, 1.0, c.Signals.SchemaRate)
	assert.Equal(t, 1.0, c.Signals.TLDRRate)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("dns")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DiscoveryCandidates.WithLabelValues("llm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryCandidates.WithLabelValues("validated")))
}

func TestPipelineCountsTransientDrops(t *testing.T) {
	m := metrics.New(nil)
	v, _ := newValidator(t, m, fakeResolver{
		fail:    map[string]bool{"lakavitale.com": true},
		timeout: map[string]bool{"slow-dns-agency.ca": true},
	})
	p := NewPipeline(fixtures.SampleConfig().Discovery, NewCandidateExtractor(nil), nil, v, m, zerolog.Nop())

	res, err := p.Run(context.Background(), Request{
		Texts:     []string{"See https://lakavitale.com, https://slow-dns-agency.ca and https://adviso.ca"},
		Profile:   fixtures.SampleProfile(),
		OwnDomain: "subject-example.ca",
	})

	require.NoError(t, err)
	require.Len(t, res.Competitors, 1)
	assert.Equal(t, 1, res.TransientDrops)
	assert.Zero(t, res.FailedSearches)
	assert.True(t, res.Partial())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("dns")))
}

func TestPipelineWithoutOutageIsComplete(t *testing.T) {
	v, _ := newValidator(t, nil, fakeResolver{fail: map[string]bool{"lakavitale.com": true}})
	p := NewPipeline(fixtures.SampleConfig().Discovery, NewCandidateExtractor(nil), nil, v, nil, zerolog.Nop())

	res, err := p.Run(context.Background(), Request{
		Texts:     []string{"Check https://lakavitale.com and https://adviso.ca"},
		Profile:   fixtures.SampleProfile(),
		OwnDomain: "subject-example.ca",
	})

	require.NoError(t, err)
	assert.Zero(t, res.TransientDrops)
	assert.False(t, res.Partial())
}

func TestValidatorDropsClientErrorBeforeScoring(t *testing.T) {
	m := metrics.New(nil)
	v, _ := newValidator(t, m, fakeResolver{})

	got, transientDrops := v.ValidateAndScore(context.Background(), []models.CompetitorCandidate{
		{URL: "https://gone-agency.ca/", Source: models.SourceBoth},
		{URL: "https://adviso.ca/", Source: models.SourceLLM},
	}, fixtures.SampleProfile(), thresholds())

	assert.Zero(t, transientDrops)
	require.Len(t, got, 1)
	assert.Equal(t, "adviso.ca", got[0].Domain)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("unreachable")))
	assert.Zero(t, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("low_score")))
}

func TestValidatorKeepsBestScorePerDomain(t *testing.T) {
	m := metrics.New(nil)
	v, _ := newValidator(t, m, fakeResolver{})

	got, transientDrops := v.ValidateAndScore(context.Background(), []models.CompetitorCandidate{
		{URL: "https://adviso.ca/", Source: models.SourceWebSearch},
		{URL: "https://www.adviso.ca/services", Source: models.SourceBoth},
	}, fixtures.SampleProfile(), thresholds())

	assert.Zero(t, transientDrops)
	require.Len(t, got, 1)
	assert.Equal(t, models.SourceBoth, got[0].Source)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.True(t, strings.HasSuffix(got[0].Reason, "Found by AI and web search"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("duplicate")))
}

func TestValidatorFallsBackToGetWhenHeadRefused(t *testing.T) {
	v, s := newValidator(t, nil, fakeResolver{})

	got, transientDrops := v.ValidateAndScore(context.Background(), []models.CompetitorCandidate{
		{URL: "https://nohead-marketing.ca", Source: models.SourceWebSearch},
	}, fixtures.SampleProfile(), thresholds())

	assert.Zero(t, transientDrops)
	require.Len(t, got, 1)
	assert.Equal(t, "nohead-marketing.ca", got[0].Domain)
	assert.Equal(t, int32(1), s.heads.Load())
}

func TestValidatorFollowsRedirects(t *testing.T) {
	v, _ := newValidator(t, nil, fakeResolver{})

	// the homepage read after the redirect is adviso.ca's
	got, transientDrops := v.ValidateAndScore(context.Background(), []models.CompetitorCandidate{
		{URL: "https://moved.ca/", Source: models.SourceLLM},
	}, fixtures.SampleProfile(), thresholds())

	assert.Zero(t, transientDrops)
	require.Len(t, got, 1)
	assert.Equal(t, "moved.ca", got[0].Domain)
}

func TestValidatorDropsIrrelevantSites(t *testing.T) {
	m := metrics.New(nil)
	v, _ := newValidator(t, m, fakeResolver{})

	got, transientDrops := v.ValidateAndScore(context.Background(), []models.CompetitorCandidate{
		{URL: "https://bakery.ca/", Source: models.SourceWebSearch},
		{URL: "not a url", Source: models.SourceLLM},
	}, fixtures.SampleProfile(), thresholds())

	assert.Zero(t, transientDrops)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("low_score")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryDropped.WithLabelValues("malformed")))
}

func TestRank(t *testing.T) {
	in := []models.ValidatedCompetitor{
		{Domain: "b.ca", Score: 0.5},
		{Domain: "dup.ca", Score: 0.4, Source: models.SourceLLM},
		{Domain: "a.ca", Score: 0.5},
		{Domain: "dup.ca", Score: 0.7, Source: models.SourceWebSearch},
		{Domain: "c.ca", Score: 0.35},
	}

	got, dupes := Rank(in, 0)

	assert.Equal(t, 1, dupes)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"dup.ca", "a.ca", "b.ca", "c.ca"}, []string{got[0].Domain, got[1].Domain, got[2].Domain, got[3].Domain})
	assert.Equal(t, 0.7, got[0].Score)
	assert.Equal(t, models.SourceWebSearch, got[0].Source)

	capped, _ := Rank(in, 2)
	assert.Len(t, capped, 2)
}

func TestRelevanceStaysInUnitRange(t *testing.T) {
	kw := heuristics.NewRegexKeywords()
	profile := fixtures.SampleProfile()
	page, err := ParsePage("https://x/", []byte(advisoHome))
	require.NoError(t, err)
	bakery, err := ParsePage("https://y/", []byte(bakeryHome))
	require.NoError(t, err)

	for _, domain := range []string{"marketing-seo-analytics.ca", "marketing-directory-info.ca", "bakery.ca"} {
		for _, src := range []models.CandidateSource{models.SourceLLM, models.SourceWebSearch, models.SourceBoth} {
			for _, p := range []*Page{page, bakery} {
				r := Relevance(kw, profile, domain, p, src)
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
			}
		}
	}
}

func TestRelevancePenalizesGenericDomains(t *testing.T) {
	kw := heuristics.NewRegexKeywords()
	page, err := ParsePage("https://x/", []byte(advisoHome))
	require.NoError(t, err)

	plain := Relevance(kw, fixtures.SampleProfile(), "acme-agency.ca", page, models.SourceWebSearch)
	generic := Relevance(kw, fixtures.SampleProfile(), "agency-directory.ca", page, models.SourceWebSearch)

	assert.True(t, generic.Generic)
	assert.InDelta(t, plain.Score-0.2, generic.Score, 1e-9)
}

func TestClassify(t *testing.T) {
	th := models.Thresholds{Direct: 0.6, Indirect: 0.3}
	tests := []struct {
		score  float64
		want   models.CompetitorType
		wantOK bool
	}{
		{0.6, models.CompetitorDirect, true},
		{0.59, models.CompetitorIndirect, true},
		{0.3, models.CompetitorIndirect, true},
		{0.29, "", false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.score, th)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wantOK, ok)
	}
}

func TestMergeTagsSources(t *testing.T) {
	got := Merge(
		[]string{"https://a.ca/", "https://b.ca/"},
		[]string{"https://b.ca/pricing", "https://c.ca/"},
	)

	assert.Equal(t, []models.CompetitorCandidate{
		{URL: "https://a.ca/", Source: models.SourceLLM, Stage: "stage1"},
		{URL: "https://b.ca/", Source: models.SourceBoth, Stage: "stage1"},
		{URL: "https://c.ca/", Source: models.SourceWebSearch, Stage: "stage2"},
	}, got)
}

func TestPipelineMergesWebCandidates(t *testing.T) {
	profile := fixtures.SampleProfile()
	queries := BuildQueries(profile, 1)
	provider := &fakeSearch{results: map[string][]string{queries[0]: {"https://adviso.ca/", "https://bakery.ca/"}}}
	v, _ := newValidator(t, nil, fakeResolver{})
	cfg := fixtures.SampleConfig().Discovery
	cfg.MaxQueries = 1
	web := NewWebDiscovery(provider, nil, 0, nil, zerolog.Nop())
	p := NewPipeline(cfg, NewCandidateExtractor(nil), web, v, nil, zerolog.Nop())

	res, err := p.Run(context.Background(), Request{
		Texts:     []string{"Try https://adviso.ca"},
		Profile:   profile,
		OwnDomain: "subject-example.ca",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://adviso.ca/", "https://bakery.ca/"}, res.WebSearchCandidates)
	require.Len(t, res.Competitors, 1)
	assert.Equal(t, models.SourceBoth, res.Competitors[0].Source)
	assert.InDelta(t, 0.9, res.Competitors[0].Score, 1e-9)
}

func TestPipelineHonoursCancelledContext(t *testing.T) {
	v, _ := newValidator(t, nil, fakeResolver{})
	p := NewPipeline(fixtures.SampleConfig().Discovery, NewCandidateExtractor(nil), nil, v, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Request{Profile: fixtures.SampleProfile(), OwnDomain: "subject-example.ca"})

	assert.ErrorIs(t, err, context.Canceled)
}
