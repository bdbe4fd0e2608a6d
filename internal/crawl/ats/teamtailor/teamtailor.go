// Package teamtailor scrapes a Teamtailor careers site's jobs page. Teamtailor
// has no public unauthenticated feed, so this adapter mines the board HTML.
package teamtailor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
)

type Adapter struct {
	Client *fetch.Client
	// BaseURL overrides https://<slug>.teamtailor.com in tests. When set, the
	// slug is ignored for endpoint construction.
	BaseURL string
}

func (a *Adapter) Kind() string { return ats.KindTeamtailor }

func (a *Adapter) Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error) {
	base := a.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.teamtailor.com", slug)
	}
	boardURL := base + "/jobs"

	res, err := a.Client.Fetch(ctx, boardURL)
	if err != nil {
		return nil, fmt.Errorf("teamtailor board %s: %w", slug, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML()))
	if err != nil {
		return nil, fmt.Errorf("teamtailor parse board html: %w", err)
	}
	baseParsed, err := url.Parse(res.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("teamtailor base url: %w", err)
	}

	var out []domain.JobPosting
	seen := map[string]bool{}
	doc.Find(`a[href*="/jobs/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := baseParsed.ResolveReference(ref)
		// detail pages look like /jobs/123456-title
		if strings.TrimRight(abs.Path, "/") == "/jobs" {
			return
		}
		key := strings.TrimRight(abs.String(), "/")
		if seen[key] {
			return
		}
		seen[key] = true

		title := util.CleanText(sel.Text())
		if title == "" || looksLikeJunkTitle(title) {
			return
		}
		out = append(out, domain.JobPosting{
			CompanyID:     co.ID,
			CompanyName:   co.Name,
			CompanyDomain: co.Domain,
			Title:         title,
			URL:           abs.String(),
			Source:        domain.ATSSource(ats.KindTeamtailor),
			CrawledAt:     crawledAt,
		})
	})
	return out, nil
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return strings.Contains(l, "view all") || strings.Contains(l, "apply") || strings.Contains(l, "connect")
}
