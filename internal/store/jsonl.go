package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"apprscan-engine/internal/domain"
)

// WriteRunFiles emits the line-delimited JSON artifacts for one run into dir:
// jobs.jsonl (everything found), jobs_new.jsonl (first-seen postings only)
// and crawl_stats.jsonl (one record per domain).
func WriteRunFiles(dir string, postings []domain.JobPosting, stats []domain.CrawlStats) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := writeJSONL(filepath.Join(dir, "jobs.jsonl"), postings); err != nil {
		return err
	}

	var fresh []domain.JobPosting
	for _, p := range postings {
		if p.IsNew {
			fresh = append(fresh, p)
		}
	}
	if err := writeJSONL(filepath.Join(dir, "jobs_new.jsonl"), fresh); err != nil {
		return err
	}

	return writeJSONL(filepath.Join(dir, "crawl_stats.jsonl"), stats)
}

// WriteActivity emits the per-company rollup for one run.
func WriteActivity(dir string, activity []domain.CompanyActivity) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(dir, "company_activity.jsonl"), activity)
}

func writeJSONL[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
