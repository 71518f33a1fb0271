package visibility_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/testutil"
	"github.com/AI-Template-SDK/senso-geo/internal/visibility"
)

func registry(adapters ...providers.PlatformAdapter) *providers.Registry {
	reg := &providers.Registry{}
	for _, a := range adapters {
		reg.Register(a)
	}
	return reg
}

func queries(texts ...string) []models.Query {
	out := make([]models.Query, len(texts))
	for i, t := range texts {
		out[i] = models.Query{Text: t, Priority: models.PriorityHigh}
	}
	return out
}

func TestRunTimedOutProbeCountsAsAttempted(t *testing.T) {
	qs := queries("q1", "q2")
	all := map[string]bool{"q1": true, "q2": true}
	p1 := &testutil.FakeAdapter{Name: "p1", Mention: all}
	p2 := &testutil.FakeAdapter{Name: "p2", Mention: all}
	p3 := &testutil.FakeAdapter{Name: "p3", Mention: all, Block: map[string]bool{"q2": true}}

	o := visibility.New(registry(p1, p2, p3), zerolog.Nop())
	report, err := o.Run(context.Background(), qs, nil, testutil.SampleBrand(), 50*time.Millisecond)
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, map[string]int{"p1": 2, "p2": 2, "p3": 2}, s.AttemptedByPlatform)
	assert.Equal(t, 1.0, s.ByPlatform["p1"])
	assert.Equal(t, 1.0, s.ByPlatform["p2"])
	assert.Equal(t, 0.5, s.ByPlatform["p3"])
	assert.InDelta(t, 5.0/6.0, s.OverallVisibility, 1e-9)
	assert.Equal(t, 1, s.FailedByPlatform["p3"])
	assert.Equal(t, 1, s.ErrorsByKind[models.ErrUpstreamTimeout])

	timedOut := report.Queries[1].PlatformResults[2]
	assert.Equal(t, "p3", timedOut.Platform)
	require.NotNil(t, timedOut.Error)
	assert.Equal(t, models.ErrUpstreamTimeout, *timedOut.Error)
}

func TestRunFailureDoesNotAffectOtherPlatforms(t *testing.T) {
	qs := queries("q1")
	ok := &testutil.FakeAdapter{Name: "ok", Mention: map[string]bool{"q1": true}}
	broken := &testutil.FakeAdapter{Name: "broken", Fail: map[string]models.ErrorKind{"q1": models.ErrUpstreamRateLimited}}
	absent := &testutil.FakeAdapter{Name: "absent"}

	report, err := visibility.New(registry(ok, broken, absent), zerolog.Nop()).
		Run(context.Background(), qs, nil, testutil.SampleBrand(), time.Second)
	require.NoError(t, err)

	results := report.Queries[0].PlatformResults
	require.Len(t, results, 3)

	assert.True(t, results[0].Mentioned)
	assert.Nil(t, results[0].Error)

	// a failed probe and a genuine miss both score 0 but stay distinguishable
	assert.False(t, results[1].Mentioned)
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Mentioned)
	assert.False(t, results[2].Failed())

	assert.Equal(t, 1.0, report.Summary.ByPlatform["ok"])
	assert.Equal(t, 0.0, report.Summary.ByPlatform["broken"])
	assert.Equal(t, 1, report.Summary.FailedByPlatform["broken"])
	assert.Equal(t, 0, report.Summary.FailedByPlatform["absent"])
}

func TestRunSelectsPlatforms(t *testing.T) {
	a := &testutil.FakeAdapter{Name: "a"}
	b := &testutil.FakeAdapter{Name: "b"}

	report, err := visibility.New(registry(a, b), zerolog.Nop()).
		Run(context.Background(), queries("q1", "q2"), []string{"b"}, testutil.SampleBrand(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, report.Platforms)
	assert.Equal(t, 0, a.Probes())
	assert.Equal(t, 2, b.Probes())
	assert.NotEqual(t, report.RunID.String(), "00000000-0000-0000-0000-000000000000")
	assert.False(t, report.CompletedAt.Before(report.StartedAt))
}

func TestRunConfigurationErrors(t *testing.T) {
	reg := registry(&testutil.FakeAdapter{Name: "a"})
	o := visibility.New(reg, zerolog.Nop())

	tests := []struct {
		name      string
		source    visibility.AdapterSource
		queries   []models.Query
		platforms []string
	}{
		{"no queries", reg, nil, nil},
		{"unknown platform", reg, queries("q"), []string{"nope"}},
		{"no platforms", &providers.Registry{}, queries("q"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.source != reg {
				o = visibility.New(tt.source, zerolog.Nop())
			}
			_, err := o.Run(context.Background(), tt.queries, tt.platforms, testutil.SampleBrand(), time.Second)
			assert.Error(t, err)
		})
	}
}

// countingAdapter records the highest number of probes in flight at once
type countingAdapter struct {
	name  string
	limit int
	delay time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *countingAdapter) Platform() string { return c.name }
func (c *countingAdapter) Concurrency() int { return c.limit }
func (c *countingAdapter) Close() error     { return nil }

func (c *countingAdapter) Probe(ctx context.Context, q models.Query, brand models.BrandIdentity, timeout time.Duration) *models.PlatformResult {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
	c.mu.Unlock()

	time.Sleep(c.delay)

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return &models.PlatformResult{Platform: c.name, Query: q, Sentiment: models.SentimentNeutral}
}

func TestRunBoundsConcurrencyPerPlatform(t *testing.T) {
	narrow := &countingAdapter{name: "narrow", limit: 1, delay: 5 * time.Millisecond}
	wide := &countingAdapter{name: "wide", limit: 3, delay: 5 * time.Millisecond}

	qs := queries("q1", "q2", "q3", "q4", "q5", "q6")
	report, err := visibility.New(registry(narrow, wide), zerolog.Nop()).
		Run(context.Background(), qs, nil, testutil.SampleBrand(), 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, narrow.peak)
	assert.LessOrEqual(t, wide.peak, 3)
	assert.Equal(t, 6, report.Summary.AttemptedByPlatform["narrow"])
	assert.Equal(t, 6, report.Summary.AttemptedByPlatform["wide"])
	for _, q := range report.Queries {
		for _, r := range q.PlatformResults {
			assert.NotNil(t, r)
		}
	}
}
