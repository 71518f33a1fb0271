package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const ownDomain = "subject-example.ca"

func TestExtractFindsSchemeURLs(t *testing.T) {
	x := NewCandidateExtractor(nil)
	got := x.Extract([]string{"Check https://lakavitale.com and https://adviso.ca"}, nil, ownDomain, 20)

	assert.Equal(t, []string{"https://adviso.ca/", "https://lakavitale.com/"}, got)
}

func TestExtractIsIdempotent(t *testing.T) {
	x := NewCandidateExtractor(nil)
	texts := []string{
		"Top picks: https://zeta-agency.ca/services, www.alpha-media.ca and https://www.mid-digital.com.",
		"Also consider https://alpha-media.ca/about or (https://beta-seo.ca).",
	}
	mentions := []models.CompetitorMention{{Name: "Gamma", URLs: []string{"gamma-web.ca"}}}

	first := x.Extract(texts, mentions, ownDomain, 20)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, x.Extract(texts, mentions, ownDomain, 20))
	}
	assert.Len(t, first, 5)
}

func TestExtractFiltersSelfExcludedAndDuplicates(t *testing.T) {
	x := NewCandidateExtractor(NewExclusions())
	texts := []string{
		"See www.acme-agency.ca, https://www.facebook.com/acme and https://blog.subject-example.ca/post",
		"https://acme-agency.ca/first https://acme-agency.ca/second",
	}
	mentions := []models.CompetitorMention{{Name: "Beta", URLs: []string{"beta-digital.com", "not a url"}}}

	got := x.Extract(texts, mentions, ownDomain, 20)

	assert.Equal(t, []string{"https://acme-agency.ca/", "https://beta-digital.com/"}, got)
}

func TestExtractCapsCandidates(t *testing.T) {
	x := NewCandidateExtractor(nil)
	got := x.Extract([]string{"https://c-agency.ca https://a-agency.ca https://b-agency.ca"}, nil, ownDomain, 2)

	assert.Equal(t, []string{"https://a-agency.ca/", "https://b-agency.ca/"}, got)
}

func TestExtractEmptyInput(t *testing.T) {
	x := NewCandidateExtractor(nil)
	assert.Empty(t, x.Extract(nil, nil, ownDomain, 10))
	assert.Empty(t, x.Extract([]string{"no links here"}, nil, ownDomain, 10))
}
