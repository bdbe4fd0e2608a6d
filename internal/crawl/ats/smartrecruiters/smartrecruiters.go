// Package smartrecruiters fetches a company's postings through the public
// SmartRecruiters API, paging until the feed is exhausted.
package smartrecruiters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
)

const pageLimit = 100

type Adapter struct {
	Client *fetch.Client
	// APIBase overrides https://api.smartrecruiters.com in tests.
	APIBase string
	// JobsBase overrides https://jobs.smartrecruiters.com in tests.
	JobsBase string
}

func (a *Adapter) Kind() string { return ats.KindSmartRecruiters }

type postingsResponse struct {
	TotalFound int `json:"totalFound"`
	Content    []struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		ReleasedDate time.Time `json:"releasedDate"`
		Location     struct {
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"location"`
		TypeOfEmployment struct {
			Label string `json:"label"`
		} `json:"typeOfEmployment"`
	} `json:"content"`
}

func (a *Adapter) Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error) {
	apiBase := a.APIBase
	if apiBase == "" {
		apiBase = "https://api.smartrecruiters.com"
	}
	jobsBase := a.JobsBase
	if jobsBase == "" {
		jobsBase = "https://jobs.smartrecruiters.com"
	}
	endpoint := fmt.Sprintf("%s/v1/companies/%s/postings", apiBase, url.PathEscape(slug))

	var out []domain.JobPosting
	for offset := 0; ; offset += pageLimit {
		pageURL := fmt.Sprintf("%s?limit=%d&offset=%d", endpoint, pageLimit, offset)
		res, err := a.Client.Fetch(ctx, pageURL)
		if err != nil {
			return out, fmt.Errorf("smartrecruiters postings %s: %w", slug, err)
		}

		var pr postingsResponse
		if err := json.Unmarshal(res.Body, &pr); err != nil {
			return out, fmt.Errorf("smartrecruiters decode: %w", err)
		}
		if len(pr.Content) == 0 {
			break
		}

		for _, p := range pr.Content {
			title := util.CleanText(p.Name)
			if title == "" || p.ID == "" {
				continue
			}
			loc := p.Location.City
			if loc != "" && p.Location.Country != "" {
				loc += ", " + p.Location.Country
			}
			var posted string
			if !p.ReleasedDate.IsZero() {
				posted = p.ReleasedDate.UTC().Format("2006-01-02")
			}
			out = append(out, domain.JobPosting{
				CompanyID:      co.ID,
				CompanyName:    co.Name,
				CompanyDomain:  co.Domain,
				Title:          title,
				URL:            fmt.Sprintf("%s/%s/%s", jobsBase, slug, p.ID),
				LocationText:   util.NormalizeLocation(loc),
				EmploymentType: util.CleanText(p.TypeOfEmployment.Label),
				PostedDate:     posted,
				Source:         domain.ATSSource(ats.KindSmartRecruiters),
				CrawledAt:      crawledAt,
			})
		}

		if len(pr.Content) < pageLimit {
			break
		}
	}
	return out, nil
}
