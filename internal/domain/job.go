package domain

import "time"

// Extraction sources recorded on a JobPosting.
const (
	SourceJSONLD  = "jsonld"
	SourceGeneric = "generic_html"
)

// ATSSource names the extraction source for a posting fetched through an ATS
// adapter, e.g. "ats:lever".
func ATSSource(kind string) string { return "ats:" + kind }

// JobPosting is one discovered job ad. Created once by an extractor and never
// mutated afterwards; the diff engine returns annotated copies.
type JobPosting struct {
	CompanyID      string    `json:"company_business_id"`
	CompanyName    string    `json:"company_name"`
	CompanyDomain  string    `json:"company_domain"`
	Title          string    `json:"job_title"`
	URL            string    `json:"job_url"`
	LocationText   string    `json:"location_text,omitempty"`
	EmploymentType string    `json:"employment_type,omitempty"`
	PostedDate     string    `json:"posted_date,omitempty"`
	Snippet        string    `json:"description_snippet,omitempty"`
	Source         string    `json:"source"`
	Tags           []string  `json:"tags"`
	CrawledAt      time.Time `json:"crawl_ts"`
	Fingerprint    string    `json:"job_fingerprint,omitempty"`
	IsNew          bool      `json:"is_new"`
}

// CrawlStats is one record per domain per run. Owned exclusively by the
// domain's crawl task until the crawl returns.
type CrawlStats struct {
	Domain          string   `json:"domain"`
	PagesFetched    int      `json:"pages_fetched"`
	JobsFound       int      `json:"jobs_found"`
	ExtractorsUsed  []string `json:"extractors_used,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	SkippedReason   string   `json:"skipped_reason,omitempty"`
	ATSDetected     string   `json:"ats_detected,omitempty"`
	ATSFetchOK      bool     `json:"ats_fetch_ok"`
	ATSFetchReason  string   `json:"ats_fetch_reason,omitempty"`
	RobotsRuleHit   string   `json:"robots_rule_hit,omitempty"`
	FirstBlockedURL string   `json:"first_blocked_url,omitempty"`
}

// AddExtractor appends a strategy name, keeping first-seen order and no
// duplicates.
func (s *CrawlStats) AddExtractor(name string) {
	for _, e := range s.ExtractorsUsed {
		if e == name {
			return
		}
	}
	s.ExtractorsUsed = append(s.ExtractorsUsed, name)
}

// CompanyActivity is the per-company rollup computed after a run.
type CompanyActivity struct {
	CompanyID        string         `json:"business_id"`
	CompanyName      string         `json:"company_name"`
	JobCountTotal    int            `json:"job_count_total"`
	JobCountLast30d  int            `json:"job_count_last_30d"`
	JobCountNew      int            `json:"job_count_new_since_last"`
	RecruitingActive bool           `json:"recruiting_active"`
	TagCounts        map[string]int `json:"tag_counts,omitempty"`
}
