package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"apprscan-engine/internal/config"
	"apprscan-engine/internal/crawl"
	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/crawl/robots"
	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/diff"
	"apprscan-engine/internal/store"
	"apprscan-engine/internal/tagging"
)

func main() {
	var (
		companiesPath = flag.String("companies", "", "registry CSV of companies to crawl (required)")
		domainsPath   = flag.String("domains", "", "optional business-id to domain CSV")
		dataDir       = flag.String("data-dir", "", "engine data directory (default $APPRSCAN_DATA_DIR or .)")
		outDir        = flag.String("out", "", "run artifact directory (default <data-dir>/out)")
		cfgPath       = flag.String("config", "", "config file (default <data-dir>/config.yml, created if missing)")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if *companiesPath == "" {
		logger.Fatal().Msg("-companies is required")
	}

	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("APPRSCAN_DATA_DIR")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("data dir")
	}

	path := *cfgPath
	if path == "" {
		var err error
		path, err = config.EnsureUserConfig(dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("config bootstrap failed")
		}
	}
	raw, err := config.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("config load failed")
	}
	cfg, val := config.NormalizeAndValidate(raw)
	for _, w := range val.Warnings {
		logger.Warn().Msg(w)
	}
	if !val.OK() {
		for _, e := range val.Errors {
			logger.Error().Msg(e)
		}
		logger.Fatal().Str("path", path).Msg("config invalid")
	}
	if lvl, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil && cfg.App.LogLevel != "" {
		logger = logger.Level(lvl)
	}

	companies, err := LoadCompanies(*companiesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load companies")
	}
	domainMap := map[string]string{}
	if *domainsPath != "" {
		domainMap, err = LoadDomainMap(*domainsPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load domain map")
		}
	}
	logger.Info().Int("companies", len(companies)).Int("mapped_domains", len(domainMap)).Msg("registry loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := util.NewHostLimiter(cfg.Crawl.ReqPerSecond, cfg.Crawl.Burst)
	checker := robots.NewChecker(cfg.Crawl.UserAgent, logger)
	client := fetch.NewClient(fetch.Config{
		UserAgent:    cfg.Crawl.UserAgent,
		MaxRetries:   cfg.Crawl.MaxRetries,
		MaxBytes:     cfg.Crawl.MaxBytes,
		Timeout:      time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second,
		DebugHTMLDir: cfg.Crawl.DebugHTMLDir,
		Limiter:      limiter,
		Gate:         checker,
		Logger:       logger,
	})

	rules := make([]tagging.Rule, 0, len(cfg.Tags))
	for _, t := range cfg.Tags {
		rules = append(rules, tagging.Rule{Tag: t.Tag, Any: t.Any})
	}
	tagger := tagging.New(rules)

	crawler := crawl.NewCrawler(client, checker, tagger, crawl.Options{
		MaxPagesPerDomain: cfg.Crawl.MaxPagesPerDomain,
		MaxDetailPages:    cfg.Crawl.MaxDetailPages,
		SitemapMaxURLs:    cfg.Crawl.SitemapMaxURLs,
	}, logger)
	fleet := crawl.NewFleet(crawler, crawl.FleetOptions{
		MaxDomains: cfg.Crawl.MaxDomains,
		MaxWorkers: cfg.Crawl.MaxWorkers,
	}, logger)

	runTS := time.Now().UTC()
	postings, stats := fleet.Run(ctx, companies, domainMap)

	dbPath := filepath.Join(dir, "apprscan.db")
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", dbPath).Msg("open db")
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate db")
	}

	engine := diff.New(db, dbPath+".lock", logger)
	postings, fresh, err := engine.Apply(ctx, postings)
	if err != nil {
		logger.Fatal().Err(err).Msg("diff apply")
	}

	if err := db.InsertPostings(ctx, postings); err != nil {
		logger.Fatal().Err(err).Msg("persist postings")
	}
	if err := db.InsertStats(ctx, stats, runTS); err != nil {
		logger.Fatal().Err(err).Msg("persist crawl stats")
	}

	out := *outDir
	if out == "" {
		out = filepath.Join(dir, "out")
	}
	if err := store.WriteRunFiles(out, postings, stats); err != nil {
		logger.Fatal().Err(err).Msg("write run files")
	}
	activity := crawl.SummarizeActivity(postings, runTS)
	if err := store.WriteActivity(out, activity); err != nil {
		logger.Fatal().Err(err).Msg("write activity")
	}

	logger.Info().
		Int("jobs", len(postings)).
		Int("new", fresh).
		Int("domains", len(stats)).
		Str("out", out).
		Msg("run complete")
}
