package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
crawl:
  max_domains: 50
  req_per_second: 0.5
tags:
  - tag: go
    any: [golang, gopher]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 50, cfg.Crawl.MaxDomains)
	assert.Equal(t, 0.5, cfg.Crawl.ReqPerSecond)
	require.Len(t, cfg.Tags, 1)
	assert.Equal(t, "go", cfg.Tags[0].Tag)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestNormalizeAndValidateDefaults(t *testing.T) {
	cfg, val := NormalizeAndValidate(Config{})
	require.True(t, val.OK())

	assert.Equal(t, ".", cfg.App.DataDir)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 300, cfg.Crawl.MaxDomains)
	assert.Equal(t, 30, cfg.Crawl.MaxPagesPerDomain)
	assert.Equal(t, 20, cfg.Crawl.MaxDetailPages)
	assert.Equal(t, 200, cfg.Crawl.SitemapMaxURLs)
	assert.Equal(t, 1.0, cfg.Crawl.ReqPerSecond)
	assert.Equal(t, 1, cfg.Crawl.Burst)
	assert.Equal(t, 5, cfg.Crawl.MaxWorkers)
	assert.Equal(t, 3, cfg.Crawl.MaxRetries)
	assert.EqualValues(t, 2_000_000, cfg.Crawl.MaxBytes)
	assert.Equal(t, 20, cfg.Crawl.TimeoutSeconds)
	assert.Equal(t, "apprscan-jobs/0.1", cfg.Crawl.UserAgent)
}

func TestNormalizeClampsRequestRate(t *testing.T) {
	var in Config
	in.Crawl.ReqPerSecond = 50

	cfg, val := NormalizeAndValidate(in)
	assert.Equal(t, 10.0, cfg.Crawl.ReqPerSecond)
	assert.True(t, val.OK())
	assert.NotEmpty(t, val.Warnings)
}

func TestNormalizeRejectsDuplicateTagRules(t *testing.T) {
	in := Config{Tags: []TagRule{
		{Tag: "go", Any: []string{"golang"}},
		{Tag: "GO", Any: []string{"gopher"}},
	}}

	cfg, val := NormalizeAndValidate(in)
	assert.False(t, val.OK())
	assert.Len(t, cfg.Tags, 1)
}

func TestNormalizeDropsEmptyTagRules(t *testing.T) {
	in := Config{Tags: []TagRule{
		{Tag: "", Any: []string{"x"}},
		{Tag: "go", Any: nil},
		{Tag: "data", Any: []string{"analytics"}},
	}}

	cfg, val := NormalizeAndValidate(in)
	assert.True(t, val.OK())
	assert.Len(t, val.Warnings, 2)
	require.Len(t, cfg.Tags, 1)
	assert.Equal(t, "data", cfg.Tags[0].Tag)
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	norm, val := NormalizeAndValidate(cfg)
	assert.True(t, val.OK())
	assert.Equal(t, 300, norm.Crawl.MaxDomains)

	// second call leaves an existing file alone
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: warn\n"), 0o644))
	again, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.App.LogLevel)
}
