package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apprscan-engine/internal/domain"
)

// InsertPostings appends one run's postings. The table is append-only; runs
// are distinguished by crawl_ts.
func (d *DB) InsertPostings(ctx context.Context, postings []domain.JobPosting) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO postings(
  company_business_id, company_name, company_domain,
  job_title, job_url, location_text, employment_type, posted_date,
  description_snippet, source, tags, crawl_ts, job_fingerprint, is_new
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range postings {
		tagsB, _ := json.Marshal(p.Tags)
		isNew := 0
		if p.IsNew {
			isNew = 1
		}
		if _, err := stmt.ExecContext(ctx,
			p.CompanyID, p.CompanyName, p.CompanyDomain,
			p.Title, p.URL, p.LocationText, p.EmploymentType, p.PostedDate,
			p.Snippet, p.Source, string(tagsB), p.CrawledAt.Format(time.RFC3339), p.Fingerprint, isNew,
		); err != nil {
			return fmt.Errorf("insert posting %s: %w", p.URL, err)
		}
	}
	return tx.Commit()
}

// InsertStats appends one run's per-domain crawl records.
func (d *DB) InsertStats(ctx context.Context, stats []domain.CrawlStats, runTS time.Time) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO crawl_stats(
  domain, pages_fetched, jobs_found, extractors_used, errors,
  skipped_reason, ats_detected, ats_fetch_ok, ats_fetch_reason,
  robots_rule_hit, first_blocked_url, run_ts
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		extB, _ := json.Marshal(s.ExtractorsUsed)
		errB, _ := json.Marshal(s.Errors)
		atsOK := 0
		if s.ATSFetchOK {
			atsOK = 1
		}
		if _, err := stmt.ExecContext(ctx,
			s.Domain, s.PagesFetched, s.JobsFound, string(extB), string(errB),
			s.SkippedReason, s.ATSDetected, atsOK, s.ATSFetchReason,
			s.RobotsRuleHit, s.FirstBlockedURL, runTS.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert stats for %s: %w", s.Domain, err)
		}
	}
	return tx.Commit()
}

// KnownEntry is one row of the seen-before index the diff engine compares
// against.
type KnownEntry struct {
	URL         string
	Fingerprint string
}

func (d *DB) LoadKnown(ctx context.Context) ([]KnownEntry, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT job_url, job_fingerprint FROM known_jobs;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KnownEntry
	for rows.Next() {
		var e KnownEntry
		if err := rows.Scan(&e.URL, &e.Fingerprint); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceKnown swaps the whole index for the given entries in one
// transaction. Readers never observe a half-written index.
func (d *DB) ReplaceKnown(ctx context.Context, entries []KnownEntry) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM known_jobs;`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO known_jobs(job_url, job_fingerprint) VALUES(?,?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.URL, e.Fingerprint); err != nil {
			return err
		}
	}
	return tx.Commit()
}
