package crawl

import (
	"sort"
	"time"

	"apprscan-engine/internal/domain"
)

var postedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parsePostedDate(s string) (time.Time, bool) {
	for _, layout := range postedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SummarizeActivity aggregates crawled postings into per-company recruiting
// signals. Postings with unparseable dates still count toward the total but
// never toward the 30-day window.
func SummarizeActivity(postings []domain.JobPosting, now time.Time) []domain.CompanyActivity {
	byCompany := make(map[string]*domain.CompanyActivity)
	for _, p := range postings {
		act, ok := byCompany[p.CompanyID]
		if !ok {
			act = &domain.CompanyActivity{
				CompanyID:   p.CompanyID,
				CompanyName: p.CompanyName,
				TagCounts:   make(map[string]int),
			}
			byCompany[p.CompanyID] = act
		}
		act.JobCountTotal++
		if p.IsNew {
			act.JobCountNew++
		}
		if t, ok := parsePostedDate(p.PostedDate); ok && now.Sub(t) <= 30*24*time.Hour {
			act.JobCountLast30d++
		}
		for _, tag := range p.Tags {
			act.TagCounts[tag]++
		}
	}

	out := make([]domain.CompanyActivity, 0, len(byCompany))
	for _, act := range byCompany {
		act.RecruitingActive = act.JobCountTotal > 0
		out = append(out, *act)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}
