// Package extract turns fetched HTML into JobPosting records: embedded
// structured data first, a link-mining generic fallback otherwise.
package extract

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
	"apprscan-engine/internal/tagging"
)

const snippetLimit = 280

// FromJSONLD scans application/ld+json blocks for JobPosting objects.
// Structured data is authoritative: callers skip the generic extractor for a
// page once this yields anything.
func FromJSONLD(html, baseURL string, co domain.Company, tagger *tagging.Tagger, crawledAt time.Time) []domain.JobPosting {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var jobs []domain.JobPosting
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		for _, item := range candidates(data) {
			if !isJobPosting(item) {
				continue
			}
			jobs = append(jobs, postingFromItem(item, baseURL, co, tagger, crawledAt))
		}
	})
	return jobs
}

func candidates(data any) []map[string]any {
	var out []map[string]any
	switch v := data.(type) {
	case map[string]any:
		out = append(out, v)
		// some sites nest postings under @graph
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				if m, ok := g.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	case []any:
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func isJobPosting(item map[string]any) bool {
	switch t := item["@type"].(type) {
	case string:
		return t == "JobPosting"
	case []any:
		return len(t) == 1 && t[0] == "JobPosting"
	}
	return false
}

func postingFromItem(item map[string]any, baseURL string, co domain.Company, tagger *tagging.Tagger, crawledAt time.Time) domain.JobPosting {
	title := stringField(item, "title")
	jobURL := stringField(item, "url")
	if jobURL == "" {
		jobURL = baseURL
	}
	desc := stringField(item, "description")

	var loc string
	if jl, ok := item["jobLocation"].(map[string]any); ok {
		if addr, ok := jl["address"].(map[string]any); ok {
			loc = stringField(addr, "addressLocality")
			if loc == "" {
				loc = stringField(addr, "streetAddress")
			}
		}
	}

	var empType string
	switch et := item["employmentType"].(type) {
	case string:
		empType = et
	case []any:
		if len(et) > 0 {
			if s, ok := et[0].(string); ok {
				empType = s
			}
		}
	}

	snippet := util.Snippet(desc, snippetLimit)
	return domain.JobPosting{
		CompanyID:      co.ID,
		CompanyName:    co.Name,
		CompanyDomain:  co.Domain,
		Title:          util.CleanText(title),
		URL:            resolveURL(baseURL, jobURL),
		LocationText:   util.CleanText(loc),
		EmploymentType: util.CleanText(empType),
		PostedDate:     stringField(item, "datePosted"),
		Snippet:        snippet,
		Source:         domain.SourceJSONLD,
		Tags:           tagger.Detect(title + " " + snippet),
		CrawledAt:      crawledAt,
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
