// Package tagging classifies posting text against a keyword rule table.
package tagging

import (
	"sort"
	"strings"
)

type Rule struct {
	Tag string
	Any []string
}

// DefaultRules is the built-in multilingual vocabulary used when the config
// supplies no tag rules.
var DefaultRules = []Rule{
	{Tag: "oppisopimus", Any: []string{"oppisopimus", "oppisopimuskoulutus", "apprentice", "apprenticeship"}},
	{Tag: "internship", Any: []string{"internship", "trainee", "harjoittelu"}},
	{Tag: "junior", Any: []string{"junior", "entry-level", "entry level"}},
	{Tag: "data", Any: []string{"data", "analytiikka", "analytics", "data engineer", "data scientist"}},
	{Tag: "it_support", Any: []string{"it support", "helpdesk", "service desk"}},
	{Tag: "marketing", Any: []string{"marketing", "markkinointi"}},
	{Tag: "salesforce", Any: []string{"salesforce"}},
}

// Tagger is pure and deterministic; rules are fixed at construction.
type Tagger struct {
	rules []Rule
}

func New(rules []Rule) *Tagger {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Tagger{rules: rules}
}

// Detect returns the sorted set of tags whose trigger phrases appear in text,
// case-insensitive.
func (t *Tagger) Detect(text string) []string {
	lower := strings.ToLower(text)

	var tags []string
	seen := map[string]bool{}
	for _, r := range t.rules {
		if seen[r.Tag] {
			continue
		}
		for _, phrase := range r.Any {
			p := strings.ToLower(strings.TrimSpace(phrase))
			if p == "" {
				continue
			}
			if strings.Contains(lower, p) {
				seen[r.Tag] = true
				tags = append(tags, r.Tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}
