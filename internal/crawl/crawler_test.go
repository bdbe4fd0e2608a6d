package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apprscan-engine/internal/crawl/ats"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/robots"
	"apprscan-engine/internal/domain"
	"apprscan-engine/internal/tagging"
)

var acme = domain.Company{ID: "1234567-8", Name: "Acme Oy", Domain: "acme.fi"}

func newTestCrawler(opts Options) *Crawler {
	logger := zerolog.Nop()
	checker := robots.NewChecker("apprscan-jobs/0.1", logger)
	client := fetch.NewClient(fetch.Config{
		UserAgent:   "apprscan-jobs/0.1",
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
		Gate:        checker,
		Logger:      logger,
	})
	return NewCrawler(client, checker, tagging.New(nil), opts, logger)
}

const jobsPageJSONLD = `<html><head><script type="application/ld+json">
{"@type": "JobPosting", "title": "Junior Data Engineer", "url": "/jobs/42",
 "description": "Entry level data role.", "datePosted": "2026-08-01",
 "jobLocation": {"address": {"addressLocality": "Helsinki"}}}
</script></head><body></body></html>`

func TestCrawlDomainPartialRobotsDenial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /careers\n")
		case "/":
			fmt.Fprint(w, "<html><body>home</body></html>")
		case "/jobs":
			fmt.Fprint(w, jobsPageJSONLD)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	jobs, stats, outcome := c.CrawlDomain(context.Background(), acme, srv.URL, time.Now().UTC())

	require.Len(t, jobs, 1)
	assert.Equal(t, "Junior Data Engineer", jobs[0].Title)
	assert.Equal(t, OutcomeStructured, outcome.Kind)

	assert.Equal(t, 1, stats.JobsFound)
	assert.Equal(t, 2, stats.PagesFetched) // root page + /jobs
	assert.Contains(t, stats.ExtractorsUsed, "jsonld")
	assert.Contains(t, stats.Errors, "robots_disallow:"+srv.URL+"/careers")
	assert.Equal(t, srv.URL+"/careers", stats.FirstBlockedURL)
	assert.Equal(t, robots.ReasonBlocked, stats.RobotsRuleHit)
	assert.Empty(t, stats.SkippedReason)
}

func TestCrawlDomainBlanketDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	jobs, stats, outcome := c.CrawlDomain(context.Background(), acme, srv.URL, time.Now().UTC())

	assert.Empty(t, jobs)
	assert.Equal(t, 0, stats.PagesFetched)
	assert.Equal(t, robots.ReasonDisallowAll, stats.SkippedReason)
	assert.Equal(t, robots.ReasonDisallowAll, stats.RobotsRuleHit)
	assert.Equal(t, srv.URL, stats.FirstBlockedURL)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, robots.ReasonDisallowAll, outcome.Reason)
}

func TestCrawlDomainRobotsUnavailableFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	jobs, stats, outcome := c.CrawlDomain(context.Background(), acme, srv.URL, time.Now().UTC())

	assert.Empty(t, jobs)
	assert.Equal(t, robots.ReasonUnavailable, stats.SkippedReason)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
}

type stubAdapter struct {
	kind string
	jobs []domain.JobPosting
	err  error
	slug string
}

func (s *stubAdapter) Kind() string { return s.kind }

func (s *stubAdapter) Fetch(_ context.Context, slug string, _ domain.Company, _ time.Time) ([]domain.JobPosting, error) {
	s.slug = slug
	return s.jobs, s.err
}

func TestCrawlDomainATSShortCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
		case "/":
			fmt.Fprint(w, `<html><body><a href="https://jobs.lever.co/acme">Open positions</a></body></html>`)
		default:
			t.Errorf("discovery should not run, got %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	stub := &stubAdapter{kind: ats.KindLever, jobs: []domain.JobPosting{
		{Title: "Junior Developer", URL: "https://jobs.lever.co/acme/1"},
		{Title: "Data Scientist", URL: "https://jobs.lever.co/acme/2"},
	}}

	c := newTestCrawler(Options{})
	c.RegisterAdapter(stub)
	jobs, stats, outcome := c.CrawlDomain(context.Background(), acme, srv.URL, time.Now().UTC())

	require.Len(t, jobs, 2)
	assert.Equal(t, "acme", stub.slug)
	assert.Equal(t, ats.KindLever, stats.ATSDetected)
	assert.True(t, stats.ATSFetchOK)
	assert.Equal(t, 2, stats.JobsFound)
	assert.Equal(t, []string{"ats:lever"}, stats.ExtractorsUsed)
	assert.Equal(t, OutcomeATS, outcome.Kind)
	assert.Equal(t, ats.KindLever, outcome.ATS)

	// untagged adapter postings get the tagger applied
	assert.Contains(t, jobs[0].Tags, "junior")
	assert.Contains(t, jobs[1].Tags, "data")
}

func TestCrawlDomainATSEmptyFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
		case "/":
			fmt.Fprint(w, `<html><body><a href="https://jobs.lever.co/acme">Open positions</a></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	c.RegisterAdapter(&stubAdapter{kind: ats.KindLever})
	jobs, stats, outcome := c.CrawlDomain(context.Background(), acme, srv.URL, time.Now().UTC())

	assert.Empty(t, jobs)
	assert.Equal(t, ats.KindLever, stats.ATSDetected)
	assert.False(t, stats.ATSFetchOK)
	assert.Equal(t, "ats_empty", stats.ATSFetchReason)
	assert.Equal(t, "no_jobs_found", stats.SkippedReason)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
}

func TestSeedLoopStructuredSuppressesGeneric(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type": "JobPosting", "title": "Junior Data Engineer", "url": "/jobs/42",
	 "description": "Entry level data role."}
	</script></head><body>
	<a href="/jobs/other-role">Apply now</a>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
		case "/careers":
			fmt.Fprint(w, page)
		default:
			t.Errorf("structured data is authoritative, detail fetch to %s must not happen", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	stats := domain.CrawlStats{Domain: "acme.fi"}

	jobs, outcome := c.seedLoop(context.Background(), acme, []string{srv.URL + "/careers"}, time.Now().UTC(), &stats, zerolog.Nop())

	require.Len(t, jobs, 1)
	assert.Equal(t, "Junior Data Engineer", jobs[0].Title)
	assert.Equal(t, domain.SourceJSONLD, jobs[0].Source)
	assert.Equal(t, OutcomeStructured, outcome.Kind)
	assert.Equal(t, []string{"jsonld"}, stats.ExtractorsUsed)
	assert.Equal(t, 1, stats.PagesFetched)
}

func TestSeedLoopHonorsPageBudget(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
			return
		}
		hits++
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{MaxPagesPerDomain: 2})
	stats := domain.CrawlStats{Domain: "acme.fi"}
	seeds := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c", srv.URL + "/d"}

	jobs, outcome := c.seedLoop(context.Background(), acme, seeds, time.Now().UTC(), &stats, zerolog.Nop())

	assert.Empty(t, jobs)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, 2, stats.PagesFetched)
	assert.Equal(t, 2, hits)
}

func TestSeedLoopFollowsMinedCareerLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
		case "/start":
			fmt.Fprint(w, `<html><body><a href="/ura/listaus">Ura meillä</a></body></html>`)
		case "/ura/listaus":
			fmt.Fprint(w, jobsPageJSONLD)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestCrawler(Options{})
	stats := domain.CrawlStats{Domain: "acme.fi"}

	jobs, outcome := c.seedLoop(context.Background(), acme, []string{srv.URL + "/start"}, time.Now().UTC(), &stats, zerolog.Nop())

	require.Len(t, jobs, 1)
	assert.Equal(t, OutcomeStructured, outcome.Kind)
	assert.Equal(t, 2, stats.PagesFetched)
}
