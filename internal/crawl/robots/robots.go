// Package robots resolves and caches per-domain crawling permissions.
//
// A robots.txt that cannot be fetched at all marks the domain unavailable and
// every URL under it is denied. Fail-closed: a transport failure never turns
// into "allow everything".
package robots

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// Denial reasons surfaced into crawl stats.
const (
	ReasonUnavailable = "robots_unavailable"
	ReasonDisallowAll = "Disallow: /"
	ReasonBlocked     = "blocked_by_robots"
)

type ruling struct {
	group       *robotstxt.Group
	disallowAll bool
	unavailable bool
}

// Checker caches one ruling per scheme+host for the life of one crawl batch.
// Rules can change between runs, so a Checker is never persisted.
type Checker struct {
	mu        sync.Mutex
	cache     map[string]*ruling
	hc        *http.Client
	userAgent string
	logger    zerolog.Logger
}

func NewChecker(userAgent string, logger zerolog.Logger) *Checker {
	return &Checker{
		cache:     make(map[string]*ruling),
		hc:        &http.Client{Timeout: 10 * time.Second},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed reports whether rawurl may be fetched, with a machine reason on
// denial.
func (c *Checker) Allowed(rawurl string) (bool, string) {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return false, ReasonUnavailable
	}

	r := c.rulingFor(u.Scheme, u.Host)
	if r.unavailable {
		return false, ReasonUnavailable
	}
	if r.disallowAll {
		return false, ReasonDisallowAll
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !r.group.Test(path) {
		return false, ReasonBlocked
	}
	return true, ""
}

func (c *Checker) rulingFor(scheme, host string) *ruling {
	key := scheme + "://" + host

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.cache[key]; ok {
		return r
	}
	r := c.fetch(scheme, host)
	c.cache[key] = r
	return r
}

func (c *Checker) fetch(scheme, host string) *ruling {
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return &ruling{unavailable: true}
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.hc.Do(req)
	if err != nil {
		c.logger.Debug().Str("host", host).Err(err).Msg("robots.txt unreachable, denying domain")
		return &ruling{unavailable: true}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 500:
		return &ruling{unavailable: true}
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &ruling{disallowAll: true}
	case res.StatusCode >= 400:
		// missing robots.txt means no restrictions
		data, _ := robotstxt.FromBytes(nil)
		return &ruling{group: data.FindGroup(c.userAgent)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 512*1024))
	if err != nil {
		return &ruling{unavailable: true}
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug().Str("host", host).Err(err).Msg("robots.txt unparseable, denying domain")
		return &ruling{unavailable: true}
	}

	group := data.FindGroup(c.userAgent)
	return &ruling{
		group:       group,
		disallowAll: !group.Test("/"),
	}
}
