package config

import (
	"errors"
	"os"
	"path/filepath"
)

const defaultYAML = `app:
  data_dir: .
  log_level: info

crawl:
  max_domains: 300
  max_pages_per_domain: 30
  max_detail_pages: 20
  sitemap_max_urls: 200
  req_per_second: 1.0
  burst: 1
  max_workers: 5
  max_retries: 3
  max_bytes: 2000000
  timeout_seconds: 20
  user_agent: "apprscan-jobs/0.1"
  debug_html_dir: ""

# Empty list keeps the built-in tag vocabulary.
tags: []
`

// EnsureUserConfig creates <dataDir>/config.yml with defaults if the user has
// no config yet, and returns its path.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, []byte(defaultYAML), 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
