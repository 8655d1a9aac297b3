package middleware_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalyz/backend/middleware"
	"github.com/metalyz/backend/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.NewRateLimiter(0.001, 2).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "10.0.0.1").Code)

	rec := serve(r, http.MethodGet, "/", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again later."}`, rec.Body.String())

	// Buckets are per client.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "10.0.0.2").Code)
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	r := gin.New()
	r.Use(middleware.ErrorHandler(log.New(&logs)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := serve(r, http.MethodGet, "/panic", "10.0.0.1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestCORS(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.CORS("https://app.example"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodOptions, "/", "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodGet, "/", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	r := gin.New()
	r.Use(middleware.RequestLogger(log.New(&logs)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, http.MethodGet, "/missing", "10.0.0.1")
	out := logs.String()
	assert.Contains(t, out, "path=/missing")
	assert.Contains(t, out, "status=404")
}

func TestStats(t *testing.T) {
	t.Parallel()

	requests, err := stats.NewRequests(t.TempDir())
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Stats(requests, log.New(io.Discard), "/api/analyze"))
	r.POST("/api/analyze", func(c *gin.Context) {
		c.Set(middleware.AnalyzedURLKey, "https://example.com")
		c.Status(http.StatusOK)
	})
	r.POST("/api/fail", func(c *gin.Context) {
		c.Set(middleware.AnalyzedURLKey, "https://example.com")
		c.Status(http.StatusBadRequest)
	})
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodPost, "/api/analyze", "10.0.0.1")
	serve(r, http.MethodPost, "/api/fail", "10.0.0.2")
	serve(r, http.MethodGet, "/api/health", "10.0.0.3")

	snapshot := requests.Snapshot(true)
	assert.Equal(t, 1, snapshot["totalRequests"])
	assert.Equal(t, 3, snapshot["uniqueVisitors24h"])
	assert.Equal(t, []stats.URLCount{{URL: "https://example.com", Count: 1}}, snapshot["popularUrls"])
}

func TestStats_CountsErrors(t *testing.T) {
	t.Parallel()

	requests, err := stats.NewRequests(t.TempDir())
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Stats(requests, log.New(io.Discard), "/api/analyze"))
	r.POST("/api/analyze", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 100.0, requests.Snapshot(false)["errorRate"])
}
