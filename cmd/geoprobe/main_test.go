package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "disabled")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	report := models.VisibilityReport{
		Brand:     models.BrandIdentity{Name: "Adviso", Domain: "adviso.ca"},
		Platforms: []string{"chatgpt"},
		Queries: []models.QueryResults{{PlatformResults: []*models.PlatformResult{
			{Platform: "chatgpt", Mentioned: true, FullResponse: "Adviso and acme-agency.ca lead the market."},
		}}},
		Summary: models.VisibilitySummary{OverallVisibility: 1},
	}
	competitors := models.DiscoveryResult{Competitors: []models.ValidatedCompetitor{{
		Domain:  "acme-agency.ca",
		Score:   0.7,
		Type:    models.CompetitorDirect,
		Signals: &models.ContentSignals{Pages: 1, SchemaRate: 1},
	}}}

	out, err := execute(t, "score",
		"--report", writeFile(t, dir, "report.json", report),
		"--signals", writeFile(t, dir, "signals.json", models.ContentSignals{Pages: 2, TLDRRate: 1}),
		"--competitors", writeFile(t, dir, "competitors.json", competitors),
	)
	require.NoError(t, err)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.InDelta(t, 5.5, result.Score.Value, 1e-9)
	assert.InDelta(t, 5.5, result.CompetitorScores["acme-agency.ca"], 1e-9)
	require.Len(t, result.Score.GapTable, 5)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, models.ComponentSchema, result.Insights[0].Component)
}

func TestScoreCommandRequiresReport(t *testing.T) {
	_, err := execute(t, "score")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "report" not set`)
}

func TestProbeCommandRequiresFlags(t *testing.T) {
	_, err := execute(t, "probe", "--queries", "queries.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand-domain")
	assert.Contains(t, err.Error(), "brand-name")
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewStore(dir, time.Hour, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Set("a", map[string]int{"x": 1}))
	require.NoError(t, store.Set("b", map[string]int{"y": 2}))

	out, err := execute(t, "cache", "stats", "--dir", dir)
	require.NoError(t, err)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Entries)

	out, err = execute(t, "cache", "cleanup", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Removed 0 expired entries\n", out)

	out, err = execute(t, "cache", "clear", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Removed 2 entries\n", out)
}
