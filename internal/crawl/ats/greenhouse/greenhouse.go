// Package greenhouse fetches a Greenhouse board's public job feed.
package greenhouse

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

type Adapter struct {
	Client *fetch.Client
	// BaseURL overrides https://boards-api.greenhouse.io in tests.
	BaseURL string
}

func (a *Adapter) Kind() string { return ats.KindGreenhouse }

type boardResponse struct {
	Jobs []struct {
		ID             int64  `json:"id"`
		Title          string `json:"title"`
		AbsoluteURL    string `json:"absolute_url"`
		UpdatedAt      string `json:"updated_at"`
		FirstPublished string `json:"first_published"`
		Location       struct {
			Name string `json:"name"`
		} `json:"location"`
		Content string `json:"content"`
	} `json:"jobs"`
}

func (a *Adapter) Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error) {
	base := a.BaseURL
	if base == "" {
		base = "https://boards-api.greenhouse.io"
	}
	feedURL := fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", base, url.PathEscape(slug))

	res, err := a.Client.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("greenhouse board %s: %w", slug, err)
	}

	var br boardResponse
	if err := json.Unmarshal(res.Body, &br); err != nil {
		return nil, fmt.Errorf("greenhouse decode: %w", err)
	}

	out := make([]domain.JobPosting, 0, len(br.Jobs))
	for _, j := range br.Jobs {
		title := util.CleanText(j.Title)
		if title == "" || j.AbsoluteURL == "" {
			continue
		}
		posted := j.FirstPublished
		if posted == "" {
			posted = j.UpdatedAt
		}
		out = append(out, domain.JobPosting{
			CompanyID:     co.ID,
			CompanyName:   co.Name,
			CompanyDomain: co.Domain,
			Title:         title,
			URL:           j.AbsoluteURL,
			LocationText:  util.NormalizeLocation(j.Location.Name),
			PostedDate:    posted,
			Snippet:       util.Snippet(j.Content, 280),
			Source:        domain.ATSSource(ats.KindGreenhouse),
			CrawledAt:     crawledAt,
		})
	}
	return out, nil
}
