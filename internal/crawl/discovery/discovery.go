// Package discovery produces candidate URLs for a domain: conventional
// career-page paths, sitemap entries, and links mined from fetched pages.
package discovery

import (
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SeedPaths are the conventional career-page locations tried on every domain,
// including the Finnish locale variants the registry data needs.
var SeedPaths = []string{
	"/careers",
	"/jobs",
	"/rekry",
	"/tyopaikat",
	"/ura",
	"/open-positions",
}

var careerHints = []string{
	"career", "careers", "job", "jobs",
	"open-position", "open-positions",
	"rekry", "rekrytointi", "ura", "tyopaikat", "työpaikat",
	"join",
}

var jobURLHints = []string{
	"/jobs", "/careers", "/positions", "/rekry", "/tyopaikat", "?job", "open-position",
}

var jobTextHints = []string{
	"apply", "hae", "avoin", "position", "job", "role", "tehtävä",
}

var listingPaths = map[string]bool{
	"/jobs":           true,
	"/careers":        true,
	"/positions":      true,
	"/open-positions": true,
	"/rekry":          true,
	"/tyopaikat":      true,
	"/ura":            true,
}

var nonJobPathHints = []string{
	"/people", "/team", "/privacy", "/terms", "/about", "/contact",
}

var nonJobQueryHints = []string{
	"department_id=", "team_id=", "category=",
}

// SeedURLs returns the conventional career paths resolved against base.
func SeedURLs(base string) []string {
	out := make([]string, 0, len(SeedPaths))
	for _, p := range SeedPaths {
		out = append(out, strings.TrimRight(base, "/")+p)
	}
	return out
}

// DiscoverJobLinks collects anchors whose URL or visible text matches the
// job-hint vocabulary. Detail-page candidates for the generic extractor.
func DiscoverJobLinks(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var urls []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref).String()
		if seen[target] {
			return
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		lhref := strings.ToLower(href)
		if containsAny(lhref, jobURLHints) || containsAny(text, jobTextHints) {
			seen[target] = true
			urls = append(urls, target)
		}
	})
	return urls
}

// CandidateLinks mines same-host links worth adding to the seed queue:
// anything whose path or text smells like a careers section.
func CandidateLinks(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var urls []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return
		}
		target := resolved.String()
		if seen[target] {
			return
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		if containsAny(strings.ToLower(resolved.Path), careerHints) || containsAny(text, careerHints) {
			seen[target] = true
			urls = append(urls, target)
		}
	})
	return urls
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ParseSitemap pulls career-relevant <loc> entries out of a sitemap, bounded
// to maxURLs. Entries with no career hint in their path are dropped so a big
// sitemap cannot burn the page budget on noise.
func ParseSitemap(data []byte, maxURLs int) []string {
	var set sitemapURLSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil
	}
	var out []string
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		if !containsAny(strings.ToLower(loc), careerHints) {
			continue
		}
		out = append(out, loc)
		if len(out) >= maxURLs {
			break
		}
	}
	return out
}

// DedupeURLs suppresses duplicates after trailing-slash trimming, preserving
// first-seen order.
func DedupeURLs(urls []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		key := strings.TrimRight(u, "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

// IsListingURL reports whether rawurl has a known index-page shape. Listing
// pages are crawled for links, never mistaken for postings.
func IsListingURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = "/"
	}
	return listingPaths[path]
}

// IsNonJobURL reports whether rawurl is a known false positive: a non-job
// section of the site or a faceted listing view.
func IsNonJobURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	query := strings.ToLower(u.RawQuery)
	if containsAny(path, nonJobPathHints) {
		return true
	}
	return containsAny(query, nonJobQueryHints)
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
