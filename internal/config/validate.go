package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy with crawl limits clamped to
// sane values, plus any validation findings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	if out.App.DataDir == "" {
		out.App.DataDir = "."
	}
	if out.App.LogLevel == "" {
		out.App.LogLevel = "info"
	}

	c := &out.Crawl
	if c.MaxDomains <= 0 {
		c.MaxDomains = 300
	}
	if c.MaxPagesPerDomain <= 0 {
		c.MaxPagesPerDomain = 30
	}
	if c.MaxDetailPages <= 0 {
		c.MaxDetailPages = 20
	}
	if c.SitemapMaxURLs <= 0 {
		c.SitemapMaxURLs = 200
	}
	if c.ReqPerSecond <= 0 {
		c.ReqPerSecond = 1.0
	}
	if c.ReqPerSecond > 10 {
		res.addWarn("req_per_second %.1f is aggressive; clamped to 10", c.ReqPerSecond)
		c.ReqPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 2_000_000
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "apprscan-jobs/0.1"
	}

	// tag rules: drop empties, dedupe tags
	seen := map[string]bool{}
	var rules []TagRule
	for _, r := range out.Tags {
		tag := strings.TrimSpace(r.Tag)
		if tag == "" || len(r.Any) == 0 {
			res.addWarn("dropping tag rule with empty tag or phrase list")
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			res.addErr("duplicate tag rule %q", tag)
			continue
		}
		seen[key] = true
		rules = append(rules, TagRule{Tag: tag, Any: r.Any})
	}
	out.Tags = rules

	return out, res
}
