// Package mention extracts brand mention signals from a free-form answer.
package mention

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/AI-Template-SDK/senso-geo/internal/heuristics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const DefaultContextChars = 100

var sentenceSplit = regexp.MustCompile(`[.!?]\s+`)

// Analysis is the mention-related part of a PlatformResult
type Analysis struct {
	Mentioned    bool
	Position     *int
	Snippet      string
	Sentiment    models.Sentiment
	ShareOfVoice float64
}

type Analyzer struct {
	sentiment    heuristics.Sentiment
	contextChars int
}

func NewAnalyzer(sentiment heuristics.Sentiment, contextChars int) *Analyzer {
	if sentiment == nil {
		sentiment = heuristics.DefaultLexicon()
	}
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}
	return &Analyzer{sentiment: sentiment, contextChars: contextChars}
}

// Analyze looks for the brand name or domain in text. Competitors are only
// used for share of voice.
func (a *Analyzer) Analyze(text string, brand models.BrandIdentity, competitors []models.CompetitorMention) Analysis {
	res := Analysis{Sentiment: models.SentimentNeutral}
	terms := brandTerms(brand)
	if len(terms) == 0 || text == "" {
		return res
	}

	spans := findAll(text, terms)
	if len(spans) == 0 {
		return res
	}

	res.Mentioned = true
	res.Position = sentencePosition(text, terms)
	first := spans[0]
	res.Snippet = window(text, first[0], first[1], a.contextChars)
	res.Sentiment = a.sentiment.Classify(strings.Trim(res.Snippet, "."))
	res.ShareOfVoice = shareOfVoice(text, len(spans), competitors)
	return res
}

// brandTerms returns the lower-cased name and bare domain of the brand
func brandTerms(brand models.BrandIdentity) []string {
	var terms []string
	if name := strings.ToLower(strings.TrimSpace(brand.Name)); name != "" {
		terms = append(terms, name)
	}
	if d := BareDomain(brand.Domain); d != "" && (len(terms) == 0 || d != terms[0]) {
		terms = append(terms, d)
	}
	return terms
}

// BareDomain strips scheme, www. and any path from a domain or URL
func BareDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

// findAll returns the merged, non-overlapping byte spans of every term
// occurrence, case-insensitively, in text order.
func findAll(text string, terms []string) [][2]int {
	var spans [][2]int
	for _, term := range terms {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, [2]int{loc[0], loc[1]})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	merged := [][2]int{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] < last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func sentencePosition(text string, terms []string) *int {
	for i, sentence := range sentenceSplit.Split(text, -1) {
		lower := strings.ToLower(sentence)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				pos := i + 1
				return &pos
			}
		}
	}
	return nil
}

// window cuts up to n runes on each side of [start,end) and marks truncated
// sides with "...".
func window(text string, start, end, n int) string {
	from := start
	for i := 0; i < n && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < n && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	snippet := text[from:to]
	if from > 0 {
		snippet = "..." + snippet
	}
	if to < len(text) {
		snippet += "..."
	}
	return snippet
}

func shareOfVoice(text string, subject int, competitors []models.CompetitorMention) float64 {
	if subject == 0 {
		return 0
	}
	others := 0
	lower := strings.ToLower(text)
	for _, c := range competitors {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		n := 0
		if name != "" {
			n = strings.Count(lower, name)
		}
		if n == 0 {
			n = 1
		}
		others += n
	}
	return float64(subject) / float64(subject+others)
}
