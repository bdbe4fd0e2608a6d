package greenhouse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apprscan-engine/internal/crawl/fetch"
	"apprscan-engine/internal/domain"
)

var acme = domain.Company{ID: "1234567-8", Name: "Acme Oy", Domain: "acme.fi"}

func TestFetchBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/acme/jobs", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("content"))
		fmt.Fprint(w, `{"jobs": [
			{"id": 1, "title": " Junior  Developer ", "absolute_url": "https://boards.greenhouse.io/acme/jobs/1",
			 "first_published": "2026-08-01", "updated_at": "2026-08-15",
			 "location": {"name": "Helsinki, Finland"}, "content": "Entry level role."},
			{"id": 2, "title": "No URL role", "absolute_url": ""},
			{"id": 3, "title": "Fallback Date", "absolute_url": "https://boards.greenhouse.io/acme/jobs/3",
			 "updated_at": "2026-07-01"}
		]}`)
	}))
	t.Cleanup(srv.Close)

	a := &Adapter{Client: fetch.NewClient(fetch.Config{Logger: zerolog.Nop()}), BaseURL: srv.URL}
	jobs, err := a.Fetch(context.Background(), "acme", acme, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Junior Developer", jobs[0].Title)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", jobs[0].URL)
	assert.Equal(t, "Helsinki, Finland", jobs[0].LocationText)
	assert.Equal(t, "2026-08-01", jobs[0].PostedDate)
	assert.Equal(t, "ats:greenhouse", jobs[0].Source)
	assert.Equal(t, "1234567-8", jobs[0].CompanyID)

	// first_published missing falls back to updated_at
	assert.Equal(t, "2026-07-01", jobs[1].PostedDate)
}

func TestFetchBoardHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	a := &Adapter{Client: fetch.NewClient(fetch.Config{Logger: zerolog.Nop(), MaxRetries: 1}), BaseURL: srv.URL}
	_, err := a.Fetch(context.Background(), "acme", acme, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_404")
}
