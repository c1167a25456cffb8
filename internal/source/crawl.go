package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// crawlLimits are the courtesy settings shared by every colly-based source.
type crawlLimits struct {
	AllowedDomains []string
	MaxPages       int
	Delay          time.Duration
	UserAgent      string
}

// newCollector returns a collector bound to ctx that stops issuing requests
// after lim.MaxPages. The returned func reports how many were issued.
func newCollector(ctx context.Context, lim crawlLimits, logger *slog.Logger) (*colly.Collector, func() int) {
	var (
		mu    sync.Mutex
		pages int
	)
	ua := userAgent(lim.UserAgent)

	c := colly.NewCollector(
		colly.AllowedDomains(lim.AllowedDomains...),
		colly.StdlibContext(ctx),
	)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: lim.Delay, RandomDelay: lim.Delay / 2})

	c.OnRequest(func(r *colly.Request) {
		mu.Lock()
		defer mu.Unlock()
		if lim.MaxPages > 0 && pages >= lim.MaxPages {
			r.Abort()
			return
		}
		pages++
		r.Headers.Set("User-Agent", ua)
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn("Request failed", "url", r.Request.URL.String(), "status", r.StatusCode, "err", err)
	})

	return c, func() int {
		mu.Lock()
		defer mu.Unlock()
		return pages
	}
}

// visitAll visits each start URL and waits for the crawl to drain. A start
// URL that fails is skipped; the error is returned only when every one did.
func visitAll(c *colly.Collector, urls []string) error {
	var errs []error
	for _, u := range urls {
		if err := c.Visit(u); err != nil {
			errs = append(errs, fmt.Errorf("visit %s: %w", u, err))
		}
	}
	c.Wait()
	if len(errs) > 0 && len(errs) == len(urls) {
		return fmt.Errorf("all %d start urls failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
