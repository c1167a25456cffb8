package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/shanehull/petcatalog/internal/model"
)

// OPFF reads products from the Open Pet Food Facts search API, one brand
// at a time. Its nutriments are already structured per 100 g.
type OPFF struct {
	client   *resty.Client
	limiter  *rate.Limiter
	brands   []string
	pageSize int
	maxPages int
	logger   *slog.Logger
}

type OPFFConfig struct {
	BaseURL   string   `mapstructure:"base_url"`
	Brands    []string `mapstructure:"brands"`
	PageSize  int      `mapstructure:"page_size"`
	MaxPages  int      `mapstructure:"max_pages"`
	UserAgent string   `mapstructure:"user_agent"`
	// RatePerSecond throttles API calls; OPFF asks for at most a few per
	// second from bulk clients.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

func NewOPFF(cfg OPFFConfig, logger *slog.Logger) *OPFF {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetHeader("user-agent", userAgent(cfg.UserAgent))
	client.SetHeader("accept", "application/json")
	client.SetTimeout(30 * time.Second)

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &OPFF{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		brands:   cfg.Brands,
		pageSize: pageSize,
		maxPages: cfg.MaxPages,
		logger:   logger,
	}
}

func (s *OPFF) Name() string { return model.SourceOPFF }

type opffSearchResponse struct {
	Count    int           `json:"count"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Products []opffProduct `json:"products"`
}

type opffProduct struct {
	Code            string         `json:"code"`
	ProductName     string         `json:"product_name"`
	Brands          string         `json:"brands"`
	IngredientsText string         `json:"ingredients_text"`
	Categories      string         `json:"categories"`
	Quantity        string         `json:"quantity"`
	URL             string         `json:"url"`
	Nutriments      map[string]any `json:"nutriments"`
}

// opffNutriments maps OPFF nutriment keys onto product fields.
var opffNutriments = map[string]string{
	"proteins_100g":    model.FieldProtein,
	"fat_100g":         model.FieldFat,
	"fiber_100g":       model.FieldFiber,
	"ash_100g":         model.FieldAsh,
	"moisture_100g":    model.FieldMoisture,
	"energy-kcal_100g": model.FieldKcal,
}

// Fetch reads every configured brand. A failing brand is logged and
// skipped; the error is returned only when every brand failed.
func (s *OPFF) Fetch(ctx context.Context) ([]model.RawProduct, error) {
	var (
		products []model.RawProduct
		errs     []error
	)
	for _, brand := range s.brands {
		if err := ctx.Err(); err != nil {
			return products, err
		}
		got, err := s.fetchBrand(ctx, brand)
		products = append(products, got...)
		if err != nil {
			s.logger.Warn("Skipping OPFF brand", "brand", brand, "kept", len(got), "err", err)
			errs = append(errs, fmt.Errorf("opff brand %q: %w", brand, err))
		}
	}
	if len(errs) > 0 && len(errs) == len(s.brands) {
		return products, fmt.Errorf("all %d opff brands failed: %w", len(errs), errors.Join(errs...))
	}
	return products, nil
}

func (s *OPFF) fetchBrand(ctx context.Context, brand string) ([]model.RawProduct, error) {
	var products []model.RawProduct
	for page := 1; s.maxPages <= 0 || page <= s.maxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return products, err
		}
		var body opffSearchResponse
		res, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"brands_tags": opffTag(brand),
				"fields":      "code,product_name,brands,ingredients_text,categories,quantity,url,nutriments",
				"page":        strconv.Itoa(page),
				"page_size":   strconv.Itoa(s.pageSize),
			}).
			SetResult(&body).
			Get("/api/v2/search")
		if err != nil {
			return products, err
		}
		if res.IsError() {
			return products, fmt.Errorf("OPFF API returned status %d", res.StatusCode())
		}

		fetchedAt := time.Now().UTC()
		for _, p := range body.Products {
			if p.ProductName == "" {
				continue
			}
			products = append(products, p.raw(fetchedAt))
		}
		s.logger.Debug("OPFF page", "brand", brand, "page", page, "products", len(body.Products), "total", body.Count)
		if len(body.Products) < s.pageSize || page*s.pageSize >= body.Count {
			break
		}
	}
	s.logger.Info("OPFF fetch complete", "brand", brand, "ingested", len(products))
	return products, nil
}

func (p opffProduct) raw(fetchedAt time.Time) model.RawProduct {
	brand, _, _ := strings.Cut(p.Brands, ",")
	url := p.URL
	if url == "" && p.Code != "" {
		url = "https://world.openpetfoodfacts.org/product/" + p.Code
	}
	nutriments := make(map[string]float64)
	for key, field := range opffNutriments {
		if v, ok := number(p.Nutriments[key]); ok {
			nutriments[field] = v
		}
	}
	return model.RawProduct{
		Source:          model.SourceOPFF,
		URL:             url,
		FetchedAt:       fetchedAt,
		Brand:           strings.TrimSpace(brand),
		Name:            strings.TrimSpace(p.ProductName),
		IngredientsText: p.IngredientsText,
		PackageText:     p.Quantity,
		FormHint:        p.Categories,
		Nutriments:      nutriments,
	}
}

// number reads an OPFF nutriment, which is sometimes a JSON number and
// sometimes a string.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// opffTag turns a brand into the tag form OPFF filters on: "Royal Canin"
// becomes "royal-canin".
func opffTag(brand string) string {
	return strings.Join(strings.Fields(strings.ToLower(brand)), "-")
}
