package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"apprscan-engine/internal/crawl/util"
	"apprscan-engine/internal/domain"
	"apprscan-engine/internal/store"
)

// localitySuffixes are stripped from locations before fingerprinting so a
// site rewording "Helsinki" as "Helsinki, Finland" does not resurface every
// posting as new.
var localitySuffixes = []string{", finland", ", suomi"}

// Fingerprint derives a stable identity for a posting from its content
// rather than its URL. Case and whitespace differences are normalized away.
func Fingerprint(p domain.JobPosting) string {
	parts := []string{
		normalizeComponent(p.Title),
		normalizeLocality(p.LocationText),
		normalizeComponent(p.PostedDate),
		normalizeComponent(p.CompanyDomain),
	}
	return util.HashString(strings.Join(parts, "|"))
}

func normalizeComponent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeLocality(s string) string {
	s = normalizeComponent(s)
	for _, suffix := range localitySuffixes {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}

// Engine annotates each run's postings against the seen-before index and
// then replaces the index with the current run. A file lock beside the
// database keeps concurrent runs from interleaving read and rewrite.
type Engine struct {
	db       *store.DB
	lockPath string
	logger   zerolog.Logger
}

func New(db *store.DB, lockPath string, logger zerolog.Logger) *Engine {
	return &Engine{db: db, lockPath: lockPath, logger: logger}
}

// Apply returns copies of postings with Fingerprint set and IsNew marked for
// every posting whose canonical URL and fingerprint are both unseen. Running
// it twice over the same postings marks nothing new the second time.
func (e *Engine) Apply(ctx context.Context, postings []domain.JobPosting) ([]domain.JobPosting, int, error) {
	lock := flock.New(e.lockPath)
	if err := lock.Lock(); err != nil {
		return nil, 0, fmt.Errorf("acquire diff lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	known, err := e.db.LoadKnown(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load known index: %w", err)
	}
	knownURLs := make(map[string]struct{}, len(known))
	knownFPs := make(map[string]struct{}, len(known))
	for _, k := range known {
		if k.URL != "" {
			knownURLs[k.URL] = struct{}{}
		}
		if k.Fingerprint != "" {
			knownFPs[k.Fingerprint] = struct{}{}
		}
	}

	out := make([]domain.JobPosting, len(postings))
	next := make([]store.KnownEntry, 0, len(postings))
	fresh := 0
	for i, p := range postings {
		p.Fingerprint = Fingerprint(p)
		canon := util.CanonicalizeURL(p.URL)

		_, seenURL := knownURLs[canon]
		_, seenFP := knownFPs[p.Fingerprint]
		p.IsNew = !seenURL && !seenFP
		if p.IsNew {
			fresh++
		}

		out[i] = p
		next = append(next, store.KnownEntry{URL: canon, Fingerprint: p.Fingerprint})
	}

	// An empty run says nothing about what disappeared, so the index is
	// kept rather than wiped.
	if len(next) > 0 {
		if err := e.db.ReplaceKnown(ctx, next); err != nil {
			return nil, 0, fmt.Errorf("replace known index: %w", err)
		}
	}

	e.logger.Info().Int("postings", len(out)).Int("new", fresh).Msg("diff applied")
	return out, fresh, nil
}
