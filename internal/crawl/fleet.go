package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"apprscan-engine/internal/domain"
)

type FleetOptions struct {
	MaxDomains int
	MaxWorkers int
}

// Fleet runs many domain crawls under a bounded worker pool. One domain runs
// to completion inside one worker; results are merged in completion order,
// so downstream consumers must not assume stable ordering.
type Fleet struct {
	crawler *Crawler
	opts    FleetOptions
	logger  zerolog.Logger
}

func NewFleet(crawler *Crawler, opts FleetOptions, logger zerolog.Logger) *Fleet {
	if opts.MaxDomains <= 0 {
		opts.MaxDomains = 300
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	return &Fleet{crawler: crawler, opts: opts, logger: logger}
}

type domainTask struct {
	co      domain.Company
	baseURL string
}

type domainResult struct {
	jobs  []domain.JobPosting
	stats domain.CrawlStats
}

// Run resolves each company to a domain (explicit field, else the map, else
// skipped), caps the fleet at MaxDomains, and crawls them in parallel.
func (f *Fleet) Run(ctx context.Context, companies []domain.Company, domainMap map[string]string) ([]domain.JobPosting, []domain.CrawlStats) {
	crawledAt := time.Now().UTC()

	var tasks []domainTask
	for _, co := range companies {
		if len(tasks) >= f.opts.MaxDomains {
			break
		}
		raw := strings.TrimSpace(co.Domain)
		if raw == "" {
			raw = strings.TrimSpace(domainMap[co.ID])
		}
		baseURL, host := resolveBaseURL(raw)
		if baseURL == "" {
			f.logger.Debug().Str("company", co.Name).Msg("no resolvable domain, skipping")
			continue
		}
		co.Domain = host
		tasks = append(tasks, domainTask{co: co, baseURL: baseURL})
	}

	results := make(chan domainResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(f.opts.MaxWorkers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			jobs, stats, _ := f.crawler.CrawlDomain(ctx, t.co, t.baseURL, crawledAt)
			results <- domainResult{jobs: jobs, stats: stats}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	// single-writer merge after all tasks complete
	var postings []domain.JobPosting
	var stats []domain.CrawlStats
	for r := range results {
		postings = append(postings, r.jobs...)
		stats = append(stats, r.stats)
	}
	f.logger.Info().Int("domains", len(stats)).Int("jobs", len(postings)).Msg("fleet crawl done")
	return postings, stats
}

// resolveBaseURL turns a registry domain value into a crawlable root URL and
// the bare host used for posting identity. Values already carrying a scheme
// are used verbatim.
func resolveBaseURL(raw string) (baseURL, host string) {
	if raw == "" {
		return "", ""
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return "", ""
		}
		return strings.TrimRight(raw, "/"), strings.ToLower(u.Host)
	}
	host = strings.TrimRight(strings.ToLower(raw), "/")
	return "https://" + host, host
}
