// Package ats recognizes third-party applicant-tracking platforms from page
// HTML or URL and names the adapter that can fetch their listings directly.
package ats

import (
	"context"
	"regexp"
	"time"

	"apprscan-engine/internal/domain"
)

// Known platform kinds.
const (
	KindGreenhouse      = "greenhouse"
	KindLever           = "lever"
	KindRecruitee       = "recruitee"
	KindSmartRecruiters = "smartrecruiters"
	KindTeamtailor      = "teamtailor"
)

// Match identifies a detected platform and the company slug on it.
type Match struct {
	Kind string
	Slug string
}

// Adapter fetches a platform's listing feed directly, bypassing page-by-page
// crawling. Implementations live in the per-platform subpackages.
type Adapter interface {
	Kind() string
	Fetch(ctx context.Context, slug string, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, error)
}

var patterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{KindGreenhouse, regexp.MustCompile(`boards\.greenhouse\.io/([A-Za-z0-9_-]+)`)},
	{KindLever, regexp.MustCompile(`jobs\.lever\.co/([A-Za-z0-9_-]+)`)},
	{KindRecruitee, regexp.MustCompile(`([A-Za-z0-9-]+)\.recruitee\.com`)},
	{KindSmartRecruiters, regexp.MustCompile(`(?:jobs|careers)\.smartrecruiters\.com/([A-Za-z0-9_-]+)`)},
	{KindTeamtailor, regexp.MustCompile(`([A-Za-z0-9-]+)\.teamtailor\.com`)},
}

// greenhouse embeds carry the real slug in a for= parameter
var greenhouseEmbed = regexp.MustCompile(`boards\.greenhouse\.io/embed/job_board\?[^"']*for=([A-Za-z0-9_-]+)`)

// Detect scans the page URL first, then the HTML, for a known platform
// fingerprint. First match wins.
func Detect(pageURL, html string) *Match {
	for _, text := range []string{pageURL, html} {
		if m := greenhouseEmbed.FindStringSubmatch(text); m != nil {
			return &Match{Kind: KindGreenhouse, Slug: m[1]}
		}
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			slug := m[1]
			if p.kind == KindGreenhouse && slug == "embed" {
				continue
			}
			return &Match{Kind: p.kind, Slug: slug}
		}
	}
	return nil
}
