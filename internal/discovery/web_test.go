package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	fixtures "github.com/AI-Template-SDK/senso-geo/internal/providers/testutil"
)

type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]string
	fail    map[string]bool
	queries []string
}

func (f *fakeSearch) Name() string {
	return "fake"
}

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.fail[query] {
		return nil, errors.New("search backend unavailable")
	}
	return f.results[query], nil
}

func TestBuildQueries(t *testing.T) {
	got := BuildQueries(fixtures.SampleProfile(), 0)

	assert.Equal(t, []string{
		"top digital marketing agency companies Montreal",
		"best seo providers Montreal",
		"best paid search providers Montreal",
		"best analytics providers Montreal",
		"marketing leaders Montreal",
		"agency marketing Montreal",
	}, got)
}

func TestBuildQueriesCapsAndDedupes(t *testing.T) {
	p := models.SemanticProfile{
		PrimaryIndustry: "Insurance",
		TopOfferings:    []string{"home insurance", "Home Insurance ", "auto insurance"},
	}

	got := BuildQueries(p, 3)

	assert.Equal(t, []string{
		"top insurance companies",
		"best home insurance providers",
		"best auto insurance providers",
	}, got)
	assert.Empty(t, BuildQueries(models.SemanticProfile{}, 4))
}

func TestDiscoverSkipsFailedQueries(t *testing.T) {
	profile := fixtures.SampleProfile()
	queries := BuildQueries(profile, 3)
	provider := &fakeSearch{
		fail: map[string]bool{queries[0]: true},
		results: map[string][]string{
			queries[1]: {"https://www.zeta-seo.ca/services", "https://www.facebook.com/zeta", "https://adviso.ca/"},
			queries[2]: {"https://alpha-ads.ca/", "https://zeta-seo.ca/other"},
		},
	}
	m := metrics.New(nil)
	w := NewWebDiscovery(provider, nil, 0, m, zerolog.Nop())

	got, failed := w.Discover(context.Background(), profile, "adviso.ca", 3, 10)

	assert.Equal(t, []string{"https://zeta-seo.ca/services", "https://alpha-ads.ca/"}, got)
	assert.Equal(t, 1, failed)
	assert.Equal(t, queries, provider.queries)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueries.WithLabelValues("fake", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueries.WithLabelValues("fake", "ok")))
}

func TestDiscoverTotalOutageIsEmpty(t *testing.T) {
	profile := fixtures.SampleProfile()
	fail := make(map[string]bool)
	for _, q := range BuildQueries(profile, 4) {
		fail[q] = true
	}
	w := NewWebDiscovery(&fakeSearch{fail: fail}, nil, 0, nil, zerolog.Nop())

	got, failed := w.Discover(context.Background(), profile, "adviso.ca", 4, 10)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, len(fail), failed)
}

func TestDiscoverCapsCandidates(t *testing.T) {
	profile := fixtures.SampleProfile()
	q := BuildQueries(profile, 1)[0]
	provider := &fakeSearch{results: map[string][]string{
		q: {"https://a-seo.ca", "https://b-seo.ca", "https://c-seo.ca"},
	}}
	w := NewWebDiscovery(provider, nil, 0, nil, zerolog.Nop())

	got, failed := w.Discover(context.Background(), profile, "adviso.ca", 1, 2)

	assert.Equal(t, []string{"https://a-seo.ca/", "https://b-seo.ca/"}, got)
	assert.Zero(t, failed)
}

func TestDiscoverStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &fakeSearch{}
	w := NewWebDiscovery(provider, nil, 0, nil, zerolog.Nop())

	got, failed := w.Discover(ctx, fixtures.SampleProfile(), "adviso.ca", 4, 10)

	assert.Empty(t, got)
	assert.Empty(t, provider.queries)
	assert.Equal(t, len(BuildQueries(fixtures.SampleProfile(), 4)), failed)
}
