package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"apprscan-engine/internal/crawl/discovery"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
	"apprscan-engine/internal/tagging"
)

const genericSnippetLimit = 300

// Skip reasons recorded while filtering detail-page candidates.
const (
	ReasonListingSkipped = "listing_url_skipped"
	ReasonNonJobSkipped  = "non_job_url_skipped"
	ReasonCookieConsent  = "cookie_consent"
)

// Generic is the link-based fallback extractor used when a page carries no
// structured data. It fetches candidate detail pages through the shared
// rate-limited client.
type Generic struct {
	Client         *fetch.Client
	Tagger         *tagging.Tagger
	MaxDetailPages int
	Logger         zerolog.Logger
}

// Extract mines listingHTML for job-detail links, filters known false
// positives before fetching, rejects consent walls, and builds one posting
// per surviving detail page. Skips and failures are appended to errs.
func (g *Generic) Extract(ctx context.Context, listingHTML, baseURL string, co domain.Company, crawledAt time.Time, errs *[]string) []domain.JobPosting {
	max := g.MaxDetailPages
	if max <= 0 {
		max = 20
	}
	candidates := discovery.DiscoverJobLinks(listingHTML, baseURL)
	if len(candidates) > max {
		candidates = candidates[:max]
	}

	record := func(reason string) {
		if errs != nil && reason != "" {
			*errs = append(*errs, reason)
		}
	}

	var jobs []domain.JobPosting
	seenDetail := map[string]bool{}
	for _, candidate := range candidates {
		if discovery.IsListingURL(candidate) {
			record(ReasonListingSkipped)
			continue
		}
		if discovery.IsNonJobURL(candidate) {
			record(ReasonNonJobSkipped)
			continue
		}
		normalized := strings.TrimRight(candidate, "/")
		if seenDetail[normalized] {
			continue
		}

		res, err := g.Client.Fetch(ctx, candidate)
		if err != nil {
			record(fetch.Reason(err))
			continue
		}
		if IsCookieConsentPage(res.HTML()) {
			g.Logger.Debug().Str("url", candidate).Msg("consent wall, skipping")
			record(ReasonCookieConsent)
			continue
		}
		seenDetail[normalized] = true

		title, snippet := detailFields(res.HTML())
		if title == "" {
			title = res.FinalURL
		}
		jobs = append(jobs, domain.JobPosting{
			CompanyID:     co.ID,
			CompanyName:   co.Name,
			CompanyDomain: co.Domain,
			Title:         title,
			URL:           res.FinalURL,
			Snippet:       snippet,
			Source:        domain.SourceGeneric,
			Tags:          g.Tagger.Detect(title + " " + snippet),
			CrawledAt:     crawledAt,
		})
	}
	return jobs
}

func detailFields(html string) (title, snippet string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	title = util.CleanText(doc.Find("h1").First().Text())
	snippet = util.Snippet(doc.Text(), genericSnippetLimit)
	return title, snippet
}
