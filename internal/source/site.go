package source

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/shanehull/petcatalog/internal/fetch"
	"github.com/shanehull/petcatalog/internal/model"
)

// SiteSelectors are CSS selectors for one retailer or manufacturer site.
// Product is a container that only exists on product detail pages; the
// field selectors are looked up inside it.
type SiteSelectors struct {
	ProductLinks string `mapstructure:"product_links"`
	NextPage     string `mapstructure:"next_page"`
	Product      string `mapstructure:"product"`
	Brand        string `mapstructure:"brand"`
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	Ingredients  string `mapstructure:"ingredients"`
	Analysis     string `mapstructure:"analysis"`
	Price        string `mapstructure:"price"`
	Package      string `mapstructure:"package"`
	Form         string `mapstructure:"form"`
}

type SiteConfig struct {
	Name           string   `mapstructure:"name"`
	StartURLs      []string `mapstructure:"start_urls"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
	// Brand is used when the page has no brand field, as on single-brand
	// manufacturer sites.
	Brand     string        `mapstructure:"brand"`
	Selectors SiteSelectors `mapstructure:"selectors"`
	MaxPages  int           `mapstructure:"max_pages"`
	Delay     time.Duration `mapstructure:"delay"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SiteScraper struct {
	cfg    SiteConfig
	logger *slog.Logger
}

func NewSiteScraper(cfg SiteConfig, logger *slog.Logger) *SiteScraper {
	return &SiteScraper{cfg: cfg, logger: logger}
}

func (s *SiteScraper) Name() string { return s.cfg.Name }

func (s *SiteScraper) Fetch(ctx context.Context) ([]model.RawProduct, error) {
	var (
		mu       sync.Mutex
		products []model.RawProduct
	)
	sel := s.cfg.Selectors
	c, pages := newCollector(ctx, crawlLimits{
		AllowedDomains: s.cfg.AllowedDomains,
		MaxPages:       s.cfg.MaxPages,
		Delay:          s.cfg.Delay,
		UserAgent:      s.cfg.UserAgent,
	}, s.logger)

	if sel.ProductLinks != "" {
		c.OnHTML(sel.ProductLinks, func(e *colly.HTMLElement) {
			_ = e.Request.Visit(e.Attr("href"))
		})
	}
	if sel.NextPage != "" {
		c.OnHTML(sel.NextPage, func(e *colly.HTMLElement) {
			_ = e.Request.Visit(e.Attr("href"))
		})
	}

	container := sel.Product
	if container == "" {
		container = "body"
	}
	c.OnHTML(container, func(e *colly.HTMLElement) {
		p := model.RawProduct{
			Source:          model.SourceSiteText,
			URL:             e.Request.URL.String(),
			FetchedAt:       time.Now().UTC(),
			Brand:           childText(e, sel.Brand),
			Name:            childText(e, sel.Name),
			Description:     childText(e, sel.Description),
			IngredientsText: childText(e, sel.Ingredients),
			AnalysisText:    childText(e, sel.Analysis),
			PriceText:       childText(e, sel.Price),
			PackageText:     childText(e, sel.Package),
			FormHint:        childText(e, sel.Form),
		}
		if p.Brand == "" {
			p.Brand = s.cfg.Brand
		}
		if p.Name == "" {
			return
		}
		mu.Lock()
		products = append(products, p)
		mu.Unlock()
	})

	s.logger.Info("Starting site scrape", "start_urls", len(s.cfg.StartURLs))
	err := visitAll(c, s.cfg.StartURLs)

	if len(products) == 0 {
		s.logger.Warn("Site scrape yielded 0 products. Check the selectors against the current markup.")
	}
	s.logger.Info("Site scrape complete", "pages", pages(), "products", len(products))
	return products, err
}

// childText is the block-aware text of the elements matching sel inside e.
func childText(e *colly.HTMLElement, sel string) string {
	if sel == "" {
		return ""
	}
	return strings.TrimSpace(fetch.SelectionText(e.DOM.Find(sel)))
}
