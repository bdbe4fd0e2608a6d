package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Consent-wall vocabulary, English and Finnish. A page is a consent gate when
// two distinct entries hit, or "cookie" and "consent" co-occur.
var consentKeywords = []string{
	"cookie",
	"cookies",
	"consent",
	"preferences",
	"accept",
	"manage cookies",
	"eväste",
	"evaste",
	"evästeet",
	"hyväksy",
	"suostumus",
	"valitse",
}

// IsCookieConsentPage classifies an interstitial that blocks real content.
// Such a page is never mined for a job title.
func IsCookieConsentPage(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	text := strings.ToLower(doc.Find("title").Text() + " " + doc.Text())

	hits := 0
	for _, kw := range consentKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	if hits >= 2 {
		return true
	}
	return strings.Contains(text, "cookie") && strings.Contains(text, "consent")
}
