// Package recruitee fetches a Recruitee careers site's public offers feed.
package recruitee

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
)

type Adapter struct {
	Client *fetch.Client
	// BaseURL overrides https://<slug>.recruitee.com in tests. When set, the
	// slug is ignored for endpoint construction.
	BaseURL string
}

func (a *Adapter) Kind() string { return ats.KindRecruitee }

type offersResponse struct {
	Offers []struct {
		Title              string `json:"title"`
		CareersURL         string `json:"careers_url"`
		Location           string `json:"location"`
		EmploymentTypeCode string `json:"employment_type_code"`
		PublishedAt        string `json:"published_at"`
		Description        string `json:"description"`
	} `json:"offers"`
}

func (a *Adapter) Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error) {
	base := a.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.recruitee.com", slug)
	}
	feedURL := base + "/api/offers/"

	res, err := a.Client.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("recruitee offers %s: %w", slug, err)
	}

	var or offersResponse
	if err := json.Unmarshal(res.Body, &or); err != nil {
		return nil, fmt.Errorf("recruitee decode: %w", err)
	}

	out := make([]domain.JobPosting, 0, len(or.Offers))
	for _, o := range or.Offers {
		title := util.CleanText(o.Title)
		if title == "" || o.CareersURL == "" {
			continue
		}
		out = append(out, domain.JobPosting{
			CompanyID:      co.ID,
			CompanyName:    co.Name,
			CompanyDomain:  co.Domain,
			Title:          title,
			URL:            o.CareersURL,
			LocationText:   util.NormalizeLocation(o.Location),
			EmploymentType: util.CleanText(o.EmploymentTypeCode),
			PostedDate:     o.PublishedAt,
			Snippet:        util.Snippet(o.Description, 280),
			Source:         domain.ATSSource(ats.KindRecruitee),
			CrawledAt:      crawledAt,
		})
	}
	return out, nil
}
