// Package lever fetches a Lever board through its public postings API.
package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
)

type Adapter struct {
	Client *fetch.Client
	// BaseURL overrides https://api.lever.co in tests.
	BaseURL string
}

func (a *Adapter) Kind() string { return ats.KindLever }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	DescriptionPlain string `json:"descriptionPlain"`
	Description      string `json:"description"` // html
}

func (a *Adapter) Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error) {
	base := a.BaseURL
	if base == "" {
		base = "https://api.lever.co"
	}
	feedURL := fmt.Sprintf("%s/v0/postings/%s?mode=json", base, url.PathEscape(slug))

	res, err := a.Client.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("lever postings %s: %w", slug, err)
	}

	var postings []leverPosting
	if err := json.Unmarshal(res.Body, &postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	out := make([]domain.JobPosting, 0, len(postings))
	for _, p := range postings {
		title := strings.TrimSpace(p.Text)
		if p.ID == "" || p.HostedURL == "" || title == "" {
			continue
		}
		var posted string
		if p.CreatedAt > 0 {
			posted = time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02")
		}
		desc := p.DescriptionPlain
		if desc == "" {
			desc = p.Description
		}
		out = append(out, domain.JobPosting{
			CompanyID:      co.ID,
			CompanyName:    co.Name,
			CompanyDomain:  co.Domain,
			Title:          title,
			URL:            p.HostedURL,
			LocationText:   util.NormalizeLocation(p.Categories.Location),
			EmploymentType: util.CleanText(p.Categories.Commitment),
			PostedDate:     posted,
			Snippet:        util.Snippet(desc, 280),
			Source:         domain.ATSSource(ats.KindLever),
			CrawledAt:      crawledAt,
		})
	}
	return out, nil
}
