package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(ttl time.Duration) *HTTPFetcher {
	return New(Config{UserAgent: "petcatalog-test", CacheTTL: ttl}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<p>" + r.URL.Path + "</p>"))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestGet(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "petcatalog-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("<html><body><p>Protein: 24%</p></body></html>"))
		case "/captcha":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`<div class="g-recaptcha"></div>`))
		case "/slow-down":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := newTestFetcher(time.Minute)
	ctx := context.Background()

	p, err := f.Get(ctx, server.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Contains(t, string(p.Body), "Protein")
	assert.False(t, p.FetchedAt.IsZero())

	_, err = f.Get(ctx, server.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second get is served from cache")

	_, err = f.Get(ctx, server.URL+"/captcha")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = f.Get(ctx, server.URL+"/slow-down")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = f.Get(ctx, server.URL+"/missing")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, 1, f.cache.Len(), "failures are not cached")
}

func TestGetHonoursCancellation(t *testing.T) {
	f := New(Config{Jitter: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Get(ctx, "http://127.0.0.1:1/never")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("zero ttl disables", func(t *testing.T) {
		server, hits := countingServer(t)
		f := newTestFetcher(0)
		assert.Nil(t, f.cache)
		for range 2 {
			_, err := f.Get(ctx, server.URL+"/a")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("size bound evicts least recent", func(t *testing.T) {
		server, hits := countingServer(t)
		f := New(Config{CacheTTL: time.Minute, CacheSize: 1}, logger)
		for _, path := range []string{"/a", "/b", "/a"} {
			_, err := f.Get(ctx, server.URL+path)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(3), hits.Load())
		assert.Equal(t, 1, f.cache.Len())
	})

	t.Run("expired entries are fetched again", func(t *testing.T) {
		server, hits := countingServer(t)
		f := newTestFetcher(20 * time.Millisecond)
		_, err := f.Get(ctx, server.URL+"/a")
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
		_, err = f.Get(ctx, server.URL+"/a")
		require.NoError(t, err)
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestTextOf(t *testing.T) {
	p := &Page{Body: []byte(`<html><head><style>p{}</style></head><body>
		<script>var x = "Protein 99%";</script>
		<h2>Analytical constituents</h2>
		<ul><li>Protein: 24.5%</li><li>Fat:   14%</li></ul>
	</body></html>`)}

	got, err := TextOf(p)
	require.NoError(t, err)
	assert.Equal(t, "Analytical constituents\nProtein: 24.5%\nFat: 14%", got)
}
