package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	const body = "<html><title>Fetched</title></html>"
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	page, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, <-agents)
	assert.Equal(t, srv.URL, page.URL)
	assert.Equal(t, body, page.HTML)
	assert.Equal(t, len(body), page.Size)
	assert.GreaterOrEqual(t, page.LoadTime, int64(0))
}

func TestHTTPFetcher_CustomUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(WithUserAgent("test-agent/1.0")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent/1.0", <-agents)
}

func TestHTTPFetcher_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, "HTTP 404: Not Found", err.Error())
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewHTTPFetcher(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPFetcher_TruncatesLargeBodies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1024)
		for i := 0; i < 64; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	page, err := NewHTTPFetcher(WithMaxBodySize(4096)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 4096, page.Size)
	assert.Len(t, page.HTML, 4096)
}

func TestHTTPFetcher_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), url)
	assert.Error(t, err)
}
