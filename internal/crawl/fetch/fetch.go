// Package fetch is the guarded HTTP retrieval layer: robots pre-check,
// per-domain request spacing, bounded retries with exponential backoff, and
// an oversized-response guard.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"apprscan-engine/internal/crawl/util"
)

// Failure reasons recorded into crawl stats.
const (
	ReasonTooLarge   = "response_too_large"
	ReasonMaxRetries = "max_retries_exceeded"
	ReasonReadError  = "read_error"
	ReasonCanceled   = "canceled"
)

// Gate is the robots decision function consulted before any network call.
type Gate interface {
	Allowed(url string) (bool, string)
}

// Error tags a failed fetch with its machine reason.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Reason, e.Err)
	}
	return "fetch: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Reason extracts the machine reason from a fetch error, or "" for nil.
// Wrapped errors are searched, so adapter-level wrapping keeps the taxonomy
// intact.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return err.Error()
}

// Result is one successfully retrieved page. FinalURL is the URL actually
// reached after redirects; identity downstream depends on it.
type Result struct {
	Status   int
	FinalURL string
	Body     []byte
	Header   http.Header
}

func (r *Result) HTML() string { return string(r.Body) }

type Config struct {
	UserAgent    string
	MaxRetries   int
	MaxBytes     int64
	Timeout      time.Duration
	BackoffBase  time.Duration
	DebugHTMLDir string
	Limiter      *util.HostLimiter
	Gate         Gate
	Logger       zerolog.Logger
}

type Client struct {
	hc  *http.Client
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 2_000_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "apprscan-jobs/0.1"
	}
	return &Client{
		hc:  &http.Client{Timeout: cfg.Timeout},
		cfg: cfg,
	}
}

// WithoutGate returns a client sharing this client's limiter and settings but
// skipping the robots pre-check. Used for ATS feed endpoints on third-party
// hosts.
func (c *Client) WithoutGate() *Client {
	cfg := c.cfg
	cfg.Gate = nil
	return &Client{hc: c.hc, cfg: cfg}
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Fetch retrieves rawurl. On failure the returned error is a *Error carrying
// the taxonomy reason.
func (c *Client) Fetch(ctx context.Context, rawurl string) (*Result, error) {
	if c.cfg.Gate != nil {
		if ok, reason := c.cfg.Gate.Allowed(rawurl); !ok {
			return nil, &Error{Reason: reason}
		}
	}

	backoff := c.cfg.BackoffBase
	var lastStatus int
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if c.cfg.Limiter != nil {
			if err := c.cfg.Limiter.WaitURL(ctx, rawurl); err != nil {
				return nil, &Error{Reason: ReasonCanceled, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
		if err != nil {
			return nil, &Error{Reason: "bad_url", Err: err}
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		res, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{Reason: ReasonCanceled, Err: ctx.Err()}
			}
			c.cfg.Logger.Debug().Str("url", rawurl).Int("attempt", attempt+1).Err(err).Msg("fetch transport error")
			lastErr = err
			if attempt == c.cfg.MaxRetries-1 {
				break
			}
			if serr := sleepCtx(ctx, backoff); serr != nil {
				return nil, &Error{Reason: ReasonCanceled, Err: serr}
			}
			backoff *= 2
			continue
		}

		if shouldRetry(res.StatusCode) {
			lastStatus = res.StatusCode
			io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
			res.Body.Close()
			if attempt == c.cfg.MaxRetries-1 {
				break
			}
			if serr := sleepCtx(ctx, backoff); serr != nil {
				return nil, &Error{Reason: ReasonCanceled, Err: serr}
			}
			backoff *= 2
			continue
		}

		if res.StatusCode >= 400 {
			res.Body.Close()
			return nil, &Error{Reason: fmt.Sprintf("http_%d", res.StatusCode)}
		}

		body, err := io.ReadAll(io.LimitReader(res.Body, c.cfg.MaxBytes+1))
		res.Body.Close()
		if err != nil {
			return nil, &Error{Reason: ReasonReadError, Err: err}
		}
		if int64(len(body)) > c.cfg.MaxBytes {
			return nil, &Error{Reason: ReasonTooLarge}
		}

		final := rawurl
		if res.Request != nil && res.Request.URL != nil {
			final = res.Request.URL.String()
		}
		c.captureDebug(rawurl, body)

		return &Result{
			Status:   res.StatusCode,
			FinalURL: final,
			Body:     body,
			Header:   res.Header,
		}, nil
	}

	if lastStatus != 0 {
		return nil, &Error{Reason: ReasonMaxRetries, Err: fmt.Errorf("last status %d", lastStatus)}
	}
	return nil, &Error{Reason: ReasonMaxRetries, Err: lastErr}
}

// captureDebug writes the raw body for inspection. Never affects results.
func (c *Client) captureDebug(rawurl string, body []byte) {
	if c.cfg.DebugHTMLDir == "" {
		return
	}
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.DebugHTMLDir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("%s_%d.html", u.Host, time.Now().UnixNano())
	_ = os.WriteFile(filepath.Join(c.cfg.DebugHTMLDir, name), body, 0o644)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
