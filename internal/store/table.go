package store

import (
	"database/sql"
)

// Migrate brings the database to the current schema. Versioned through
// PRAGMA user_version so re-running against an up-to-date file is a no-op.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS postings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_business_id TEXT NOT NULL,
  company_name TEXT NOT NULL,
  company_domain TEXT NOT NULL,
  job_title TEXT NOT NULL,
  job_url TEXT NOT NULL,
  location_text TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  posted_date TEXT NOT NULL DEFAULT '',
  description_snippet TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  tags TEXT NOT NULL DEFAULT '[]',
  crawl_ts TEXT NOT NULL,
  job_fingerprint TEXT NOT NULL DEFAULT '',
  is_new INTEGER NOT NULL DEFAULT 0
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS crawl_stats (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  domain TEXT NOT NULL,
  pages_fetched INTEGER NOT NULL DEFAULT 0,
  jobs_found INTEGER NOT NULL DEFAULT 0,
  extractors_used TEXT NOT NULL DEFAULT '[]',
  errors TEXT NOT NULL DEFAULT '[]',
  skipped_reason TEXT NOT NULL DEFAULT '',
  ats_detected TEXT NOT NULL DEFAULT '',
  ats_fetch_ok INTEGER NOT NULL DEFAULT 0,
  ats_fetch_reason TEXT NOT NULL DEFAULT '',
  robots_rule_hit TEXT NOT NULL DEFAULT '',
  first_blocked_url TEXT NOT NULL DEFAULT '',
  run_ts TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS known_jobs (
  job_url TEXT NOT NULL,
  job_fingerprint TEXT NOT NULL
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_postings_company
ON postings(company_business_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_postings_crawl_ts
ON postings(crawl_ts);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_known_jobs_url
ON known_jobs(job_url);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_known_jobs_fingerprint
ON known_jobs(job_fingerprint);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
