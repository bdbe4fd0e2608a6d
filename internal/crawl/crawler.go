// Package crawl sequences one domain's crawl (robots gate, base fetch, ATS
// short-circuit, discovery, seed loop) and runs many domains under a bounded
// worker pool.
package crawl

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/ats/greenhouse"
	"apprscan-engine/internal/crawl/ats/lever"
	"apprscan-engine/internal/crawl/ats/recruitee"
	"apprscan-engine/internal/crawl/ats/smartrecruiters"
	"apprscan-engine/internal/crawl/ats/teamtailor"
	"apprscan-engine/internal/crawl/discovery"
	"apprscan-engine/internal/crawl/extract"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/robots"
	"apprscan-engine/internal/domain"
	"apprscan-engine/internal/tagging"
)

// reason recorded when a specific URL (not the whole domain) is robots-denied
const reasonRobotsDisallow = "robots_disallow"

type Options struct {
	MaxPagesPerDomain int
	MaxDetailPages    int
	SitemapMaxURLs    int
}

// Crawler runs single-domain crawls. Safe for concurrent use: all mutable
// per-crawl state lives in the stats record each call owns.
type Crawler struct {
	client   *fetch.Client // robots-gated, for the domain's own pages
	feed     *fetch.Client // ungated, for ATS feed endpoints
	checker  *robots.Checker
	tagger   *tagging.Tagger
	adapters map[string]ats.Adapter
	opts     Options
	logger   zerolog.Logger
}

func NewCrawler(client *fetch.Client, checker *robots.Checker, tagger *tagging.Tagger, opts Options, logger zerolog.Logger) *Crawler {
	if opts.MaxPagesPerDomain <= 0 {
		opts.MaxPagesPerDomain = 30
	}
	if opts.MaxDetailPages <= 0 {
		opts.MaxDetailPages = 20
	}
	if opts.SitemapMaxURLs <= 0 {
		opts.SitemapMaxURLs = 200
	}
	feed := client.WithoutGate()
	c := &Crawler{
		client:   client,
		feed:     feed,
		checker:  checker,
		tagger:   tagger,
		adapters: make(map[string]ats.Adapter),
		opts:     opts,
		logger:   logger,
	}
	c.RegisterAdapter(&greenhouse.Adapter{Client: feed})
	c.RegisterAdapter(&lever.Adapter{Client: feed})
	c.RegisterAdapter(&recruitee.Adapter{Client: feed})
	c.RegisterAdapter(&smartrecruiters.Adapter{Client: feed})
	c.RegisterAdapter(&teamtailor.Adapter{Client: feed})
	return c
}

// RegisterAdapter installs (or replaces) the adapter for its platform kind.
func (c *Crawler) RegisterAdapter(a ats.Adapter) {
	c.adapters[a.Kind()] = a
}

// CrawlDomain crawls one domain to completion and returns its postings, its
// finished stats record, and the strategy outcome. baseURL is the domain root
// (scheme included). Blocked or broken URLs never abort the crawl; they are
// recorded and the loop moves on.
func (c *Crawler) CrawlDomain(ctx context.Context, co domain.Company, baseURL string, crawledAt time.Time) ([]domain.JobPosting, domain.CrawlStats, Outcome) {
	stats := domain.CrawlStats{Domain: co.Domain}
	log := c.logger.With().Str("domain", co.Domain).Logger()

	// base-fetch: robots then root page. Failure here is terminal for the
	// domain.
	allowed, rule := c.checker.Allowed(baseURL)
	if !allowed {
		stats.SkippedReason = skipReasonFor(rule)
		stats.RobotsRuleHit = rule
		stats.FirstBlockedURL = baseURL
		log.Info().Str("rule", rule).Msg("domain blocked by robots")
		return nil, stats, failed(stats.SkippedReason)
	}
	res, err := c.client.Fetch(ctx, baseURL)
	if err != nil {
		stats.SkippedReason = fetch.Reason(err)
		log.Info().Str("reason", stats.SkippedReason).Msg("base fetch failed")
		return nil, stats, failed(stats.SkippedReason)
	}
	stats.PagesFetched++

	// ats-branch: trust a detected platform over generic discovery; its
	// listings are structurally reliable and cheap in bulk.
	if m := ats.Detect(res.FinalURL, res.HTML()); m != nil {
		stats.ATSDetected = m.Kind
		jobs, reason := c.fetchATS(ctx, m, co, crawledAt)
		if len(jobs) > 0 {
			stats.ATSFetchOK = true
			stats.JobsFound = len(jobs)
			stats.AddExtractor("ats:" + m.Kind)
			log.Info().Str("ats", m.Kind).Int("jobs", len(jobs)).Msg("ats adapter served listings")
			return jobs, stats, viaATS(m.Kind)
		}
		stats.ATSFetchReason = reason
		log.Info().Str("ats", m.Kind).Str("reason", reason).Msg("ats fetch failed, falling through to discovery")
	}

	// discovery-branch
	seeds := discovery.SeedURLs(baseURL)
	seeds = append(seeds, c.sitemapSeeds(ctx, baseURL, &stats)...)
	seeds = discovery.DedupeURLs(seeds)

	all, outcome := c.seedLoop(ctx, co, seeds, crawledAt, &stats, log)

	stats.JobsFound = len(all)
	if len(all) == 0 {
		if stats.SkippedReason == "" {
			if stats.FirstBlockedURL != "" {
				stats.SkippedReason = reasonRobotsDisallow
			} else {
				stats.SkippedReason = "no_jobs_found"
			}
		}
		outcome = failed(stats.SkippedReason)
	}
	log.Info().Int("pages", stats.PagesFetched).Int("jobs", stats.JobsFound).Str("outcome", outcome.String()).Msg("domain crawl done")
	return all, stats, outcome
}

// seedLoop works through the seed queue under the page budget. Every fetched
// page is tried against the structured extractor first; pages without
// structured data are mined for more seeds and handed to the generic
// extractor. Per-URL robots denials and fetch failures are recorded but never
// abort the loop.
func (c *Crawler) seedLoop(ctx context.Context, co domain.Company, seeds []string, crawledAt time.Time, stats *domain.CrawlStats, log zerolog.Logger) ([]domain.JobPosting, Outcome) {
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seen[strings.TrimRight(s, "/")] = true
	}

	generic := &extract.Generic{
		Client:         c.client,
		Tagger:         c.tagger,
		MaxDetailPages: c.opts.MaxDetailPages,
		Logger:         log,
	}

	var all []domain.JobPosting
	outcome := Outcome{Kind: OutcomeFailed}
	for i := 0; i < len(seeds); i++ {
		if stats.PagesFetched >= c.opts.MaxPagesPerDomain {
			break
		}
		seed := seeds[i]

		allowed, rule := c.checker.Allowed(seed)
		if !allowed {
			stats.Errors = append(stats.Errors, reasonRobotsDisallow+":"+seed)
			// remember the first blocked URL and its rule for diagnostics
			if stats.FirstBlockedURL == "" {
				stats.FirstBlockedURL = seed
				stats.RobotsRuleHit = rule
			}
			continue
		}

		res, err := c.client.Fetch(ctx, seed)
		if err != nil {
			stats.Errors = append(stats.Errors, fetch.Reason(err)+":"+seed)
			continue
		}
		stats.PagesFetched++

		if jobs := extract.FromJSONLD(res.HTML(), res.FinalURL, co, c.tagger, crawledAt); len(jobs) > 0 {
			all = append(all, jobs...)
			stats.AddExtractor("jsonld")
			if outcome.Kind == OutcomeFailed {
				outcome = Outcome{Kind: OutcomeStructured}
			}
			// structured data is authoritative for this page
			continue
		}

		for _, link := range discovery.CandidateLinks(res.HTML(), res.FinalURL) {
			key := strings.TrimRight(link, "/")
			if seen[key] {
				continue
			}
			seen[key] = true
			seeds = append(seeds, link)
		}

		if jobs := generic.Extract(ctx, res.HTML(), res.FinalURL, co, crawledAt, &stats.Errors); len(jobs) > 0 {
			all = append(all, jobs...)
			stats.AddExtractor("generic")
			if outcome.Kind == OutcomeFailed {
				outcome = Outcome{Kind: OutcomeGeneric}
			}
		}
	}
	return all, outcome
}

// fetchATS runs the adapter for a detected platform. Postings come back
// tagged; an empty result or an error is reported as a reason string so the
// caller can fall through to generic discovery.
func (c *Crawler) fetchATS(ctx context.Context, m *ats.Match, co domain.Company, crawledAt time.Time) ([]domain.JobPosting, string) {
	adapter, ok := c.adapters[m.Kind]
	if !ok {
		return nil, "ats_no_adapter"
	}
	jobs, err := adapter.Fetch(ctx, m.Slug, co, crawledAt)
	if err != nil {
		return nil, fetch.Reason(err)
	}
	if len(jobs) == 0 {
		return nil, "ats_empty"
	}
	for i := range jobs {
		if len(jobs[i].Tags) == 0 {
			jobs[i].Tags = c.tagger.Detect(jobs[i].Title + " " + jobs[i].Snippet)
		}
	}
	return jobs, ""
}

// sitemapSeeds fetches the sitemap under its own robots check and returns any
// career-relevant URLs it lists.
func (c *Crawler) sitemapSeeds(ctx context.Context, baseURL string, stats *domain.CrawlStats) []string {
	sitemapURL := strings.TrimRight(baseURL, "/") + "/sitemap.xml"
	if allowed, _ := c.checker.Allowed(sitemapURL); !allowed {
		stats.Errors = append(stats.Errors, "robots_disallow_sitemap")
		return nil
	}
	res, err := c.client.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil
	}
	stats.PagesFetched++
	return discovery.ParseSitemap(res.Body, c.opts.SitemapMaxURLs)
}

func skipReasonFor(rule string) string {
	if rule == robots.ReasonDisallowAll || rule == robots.ReasonUnavailable {
		return rule
	}
	return reasonRobotsDisallow
}
