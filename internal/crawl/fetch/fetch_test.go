package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apprscan-engine/internal/crawl/util"
)

func testClient(cfg Config) *Client {
	cfg.Logger = zerolog.Nop()
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Millisecond
	}
	return NewClient(cfg)
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apprscan-jobs/0.1", r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html>ok</html>")
	}))
	t.Cleanup(srv.Close)

	res, err := testClient(Config{}).Fetch(context.Background(), srv.URL+"/careers")
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "<html>ok</html>", res.HTML())
	assert.Equal(t, srv.URL+"/careers", res.FinalURL)
}

func TestFetchRetriesOn429(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "eventually")
	}))
	t.Cleanup(srv.Close)

	res, err := testClient(Config{MaxRetries: 3}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "eventually", res.HTML())
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetchMaxRetriesExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(Config{MaxRetries: 2}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ReasonMaxRetries, Reason(err))
}

func TestFetchTerminalStatusDoesNotRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(Config{MaxRetries: 3}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, "http_404", Reason(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestFetchResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 2048))
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(Config{MaxBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ReasonTooLarge, Reason(err))
}

type denyGate struct{ reason string }

func (g denyGate) Allowed(string) (bool, string) { return false, g.reason }

func TestFetchGateDenialSkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	t.Cleanup(srv.Close)

	c := testClient(Config{Gate: denyGate{reason: "blocked_by_robots"}})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, "blocked_by_robots", Reason(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestWithoutGateBypassesDenial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "feed")
	}))
	t.Cleanup(srv.Close)

	c := testClient(Config{Gate: denyGate{reason: "blocked_by_robots"}})
	res, err := c.WithoutGate().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "feed", res.HTML())
}

func TestFetchHonorsHostRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	t.Cleanup(srv.Close)

	c := testClient(Config{Limiter: util.NewHostLimiter(20, 1)})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(ctx, srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestFetchBodyReadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// promise more bytes than we deliver, then cut the connection
		w.Header().Set("Content-Length", "1000")
		fmt.Fprint(w, "truncated")
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(Config{MaxRetries: 1}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ReasonReadError, Reason(err))
}

func TestFetchTransportErrorSkipsFinalBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	start := time.Now()
	_, err := testClient(Config{MaxRetries: 1, BackoffBase: 2 * time.Second}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, ReasonMaxRetries, Reason(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(Config{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, ReasonCanceled, Reason(err))
}
