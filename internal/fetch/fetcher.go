// Package fetch downloads pages politely: one shared rate limit, a random
// delay per request and a short-lived in-memory page cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

var (
	ErrBlocked = errors.New("blocked by bot protection")
	ErrStatus  = errors.New("unexpected status")
)

type Config struct {
	UserAgent     string        `mapstructure:"user_agent"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheSize     int           `mapstructure:"cache_size"`
	Jitter        time.Duration `mapstructure:"jitter"`
}

// DefaultCacheSize bounds the page cache when no size is configured.
const DefaultCacheSize = 2048

// Page is a fetched document.
type Page struct {
	URL       string
	Status    int
	Body      []byte
	FetchedAt time.Time
}

// Fetcher is what sources need to download a page.
type Fetcher interface {
	Get(ctx context.Context, url string) (*Page, error)
}

type HTTPFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	cache   *expirable.LRU[string, *Page] // nil when caching is off
	jitter  time.Duration
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *HTTPFetcher {
	client := resty.New()
	client.SetHeader("user-agent", cfg.UserAgent)
	client.SetHeader("accept-language", "en;q=0.9,de;q=0.8,sv;q=0.7,fr;q=0.6")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := max(cfg.Burst, 1)

	f := &HTTPFetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		jitter:  cfg.Jitter,
		logger:  logger,
	}
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		f.cache = expirable.NewLRU[string, *Page](size, nil, cfg.CacheTTL)
	}
	return f
}

// Get returns the page at url, from the cache when a fresh copy is held.
func (f *HTTPFetcher) Get(ctx context.Context, url string) (*Page, error) {
	if f.cache != nil {
		if p, ok := f.cache.Get(url); ok {
			f.logger.Debug("cache hit", "url", url)
			return p, nil
		}
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := f.sleepJitter(ctx); err != nil {
		return nil, err
	}

	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	p := &Page{URL: url, Status: res.StatusCode(), Body: res.Body(), FetchedAt: time.Now().UTC()}
	if isBlocked(p) {
		f.logger.Warn("Blocked", "url", url, "status", p.Status)
		return nil, fmt.Errorf("%w: %s", ErrBlocked, url)
	}
	if p.Status >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, p.Status, url)
	}
	if f.cache != nil {
		f.cache.Add(url, p)
	}
	return p, nil
}

func (f *HTTPFetcher) sleepJitter(ctx context.Context) error {
	if f.jitter <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(rand.Int63n(int64(f.jitter))))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var blockMarkers = []string{
	"cf-browser-verification",
	"challenge-platform",
	"attention required! | cloudflare",
	"g-recaptcha",
	"px-captcha",
	"are you a robot",
	"unusual traffic from your computer",
}

func isBlocked(p *Page) bool {
	if p.Status == http.StatusTooManyRequests {
		return true
	}
	if p.Status != http.StatusOK && p.Status != http.StatusForbidden && p.Status != http.StatusServiceUnavailable {
		return false
	}
	body := strings.ToLower(string(p.Body))
	for _, m := range blockMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
