package common

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IsStatusResponse checks if the response body is a status object rather than results
func IsStatusResponse(bodyBytes []byte) (bool, string, string) {
	var statusResp StatusResponse

	if err := json.Unmarshal(bodyBytes, &statusResp); err != nil {
		return false, "", ""
	}

	if statusResp.Status != "" {
		return true, statusResp.Status, statusResp.Message
	}

	return false, "", ""
}

// ExtractCitations returns the distinct absolute links of an HTML answer in
// document order.
func ExtractCitations(html string) []string {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var citations []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http") || seen[href] {
			return
		}
		seen[href] = true
		citations = append(citations, href)
	})
	return citations
}
