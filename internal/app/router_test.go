package app_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlog/moodlog/internal/testsupport"
	_ "github.com/moodlog/moodlog/testing"
)

func TestHealthz(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/healthz")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body)
}

func TestUnknownRouteRendersNotFoundPage(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, resp.Body, "Not found")
}

func TestStaticAssetsAreCached(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/static/css/app.css")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))
}

func TestSecurityHeaders(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestMetricsEndpointCountsDomainEvents(t *testing.T) {
	h := testsupport.NewHarness(t)
	c := h.NewClient()
	require.Equal(t, http.StatusSeeOther, c.Register("Ann", "ann@x.com", "secret1").Status)

	resp := c.Get("/metrics")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, `moodlog_registrations_total{outcome="success"} 1`)
	assert.Contains(t, resp.Body, "moodlog_http_requests_total")
}

func TestAnonymousVisitLeavesNoSession(t *testing.T) {
	h := testsupport.NewHarness(t)
	resp := h.NewClient().Get("/api/feed")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
	assert.Empty(t, h.Redis.Keys())
}

func TestReadOnlyPagesLeaveNoSession(t *testing.T) {
	h := testsupport.NewHarness(t)
	pages := map[string]int{
		"/":      http.StatusOK,
		"/u/999": http.StatusNotFound,
		"/u/abc": http.StatusNotFound,
		"/nope":  http.StatusNotFound,
	}
	for path, status := range pages {
		for i := 0; i < 3; i++ {
			resp := h.NewClient().Get(path)
			require.Equal(t, status, resp.Status, path)
			assert.Empty(t, resp.Header.Values("Set-Cookie"), path)
		}
	}
	assert.Empty(t, h.Redis.Keys())

	login := h.NewClient().Get("/login")
	require.Equal(t, http.StatusOK, login.Status)
	assert.NotEmpty(t, testsupport.ExtractCSRFToken(login.Body))
	assert.NotEmpty(t, login.Header.Values("Set-Cookie"))
	assert.Len(t, h.Redis.Keys(), 1)
}
