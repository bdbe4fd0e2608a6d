package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type TagRule struct {
	Tag string   `yaml:"tag"`
	Any []string `yaml:"any"`
}

type Config struct {
	App struct {
		DataDir  string `yaml:"data_dir"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Crawl struct {
		MaxDomains        int     `yaml:"max_domains"`
		MaxPagesPerDomain int     `yaml:"max_pages_per_domain"`
		MaxDetailPages    int     `yaml:"max_detail_pages"`
		SitemapMaxURLs    int     `yaml:"sitemap_max_urls"`
		ReqPerSecond      float64 `yaml:"req_per_second"`
		Burst             int     `yaml:"burst"`
		MaxWorkers        int     `yaml:"max_workers"`
		MaxRetries        int     `yaml:"max_retries"`
		MaxBytes          int64   `yaml:"max_bytes"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		UserAgent         string  `yaml:"user_agent"`
		DebugHTMLDir      string  `yaml:"debug_html_dir"`
	} `yaml:"crawl"`

	Tags []TagRule `yaml:"tags"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
