// Package geoscore computes the GEO power score, the gap against the
// average competitor and the insights derived from it.
package geoscore

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

var (
	tldrPattern       = regexp.MustCompile(`(?i)\b(tl;?dr|en bref|in short|key takeaways|à retenir)\b`)
	faqPattern        = regexp.MustCompile(`(?i)\b(faq|questions fréquentes|frequently asked questions)\b`)
	statPattern       = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s?(?:%|\$|€)|[$€]\s?\d+(?:[.,]\d+)?|\d+(?:[.,]\d+)?\s(?:millions?|milliards?|billions?)\b`)
	definitionPattern = regexp.MustCompile(`(?i)^[\p{L}\d'’ -]{2,80}\s(?:is|are|est|sont|refers to|désigne)\s`)
)

// SignalsFromHTML measures one page. Rates are 0 or 1 for a single page.
func SignalsFromHTML(html string) models.ContentSignals {
	s := models.ContentSignals{Pages: 1}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s
	}

	schemas := 0
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		if json.Valid([]byte(strings.TrimSpace(sel.Text()))) {
			schemas++
		}
		if strings.Contains(sel.Text(), "FAQPage") {
			s.HasFAQ = true
		}
	})
	if schemas > 0 {
		s.SchemaRate = 1
	}

	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")

	s.WordCount = len(strings.Fields(text))
	s.H2Count = doc.Find("h2").Length()
	s.ListCount = doc.Find("ul, ol").Length()
	s.TableCount = doc.Find("table").Length()

	if tldrPattern.MatchString(text) {
		s.TLDRRate = 1
	}
	doc.Find("h1, h2, h3, summary, dt").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if faqPattern.MatchString(sel.Text()) {
			s.HasFAQ = true
			return false
		}
		return true
	})

	s.StatsPerPage = float64(len(statPattern.FindAllString(text, -1)))

	first := strings.Join(strings.Fields(doc.Find("p").First().Text()), " ")
	if isDirectAnswer(first) {
		s.DirectAnswerRate = 1
	}
	return s
}

// isDirectAnswer accepts an opening paragraph of 40 to 60 words, or one that
// leads with a definition ("X is ...").
func isDirectAnswer(paragraph string) bool {
	if paragraph == "" {
		return false
	}
	if n := len(strings.Fields(paragraph)); n >= 40 && n <= 60 {
		return true
	}
	return definitionPattern.MatchString(paragraph)
}

// AggregateSignals combines per-page signals into site-level rates. Counts
// are averaged per page except Pages, which is summed.
func AggregateSignals(pages []models.ContentSignals) models.ContentSignals {
	var out models.ContentSignals
	total := 0
	for _, p := range pages {
		n := p.Pages
		if n <= 0 {
			n = 1
		}
		w := float64(n)
		total += n
		out.DirectAnswerRate += p.DirectAnswerRate * w
		out.TLDRRate += p.TLDRRate * w
		out.SchemaRate += p.SchemaRate * w
		out.StatsPerPage += p.StatsPerPage * w
		out.WordCount += p.WordCount * n
		out.H2Count += p.H2Count * n
		out.ListCount += p.ListCount * n
		out.TableCount += p.TableCount * n
		out.HasFAQ = out.HasFAQ || p.HasFAQ
	}
	if total == 0 {
		return out
	}

	t := float64(total)
	out.Pages = total
	out.DirectAnswerRate /= t
	out.TLDRRate /= t
	out.SchemaRate /= t
	out.StatsPerPage /= t
	out.WordCount /= total
	out.H2Count /= total
	out.ListCount /= total
	out.TableCount /= total
	return out
}
