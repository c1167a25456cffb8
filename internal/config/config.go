// Package config loads petcatalog settings. PETCATALOG_ environment
// variables win over the YAML file, which wins over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/shanehull/petcatalog/internal/extract"
	"github.com/shanehull/petcatalog/internal/fetch"
	"github.com/shanehull/petcatalog/internal/source"
	"github.com/shanehull/petcatalog/internal/storage"
	"github.com/shanehull/petcatalog/internal/tables"
)

var ErrInvalid = errors.New("invalid configuration")

// Locales are the languages with keyword and pattern tables.
var Locales = []string{"en", "de", "sv", "fr"}

// Config holds all configuration for the application
type Config struct {
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Fetch      fetch.Config     `mapstructure:"fetch"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Tables     TablesConfig     `mapstructure:"tables"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Sources    SourcesConfig    `mapstructure:"sources"`
}

type CatalogConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

type Plausibility struct {
	HeightMaxCM      float64 `mapstructure:"height_max_cm"`
	WeightMaxKg      float64 `mapstructure:"weight_max_kg"`
	LifespanMaxYears float64 `mapstructure:"lifespan_max_years"`
}

type ExtractionConfig struct {
	Locales      []string                  `mapstructure:"locales"`
	KcalBounds   map[string]extract.Bounds `mapstructure:"kcal_bounds"`
	RangePolicy  string                    `mapstructure:"range_policy"`
	Plausibility Plausibility              `mapstructure:"plausibility"`
	// Priority reorders the keyword buckets of an enum field.
	Priority map[string][]string `mapstructure:"priority"`
}

// Ranges is the range extractor setup these settings describe.
func (e ExtractionConfig) Ranges() extract.RangeConfig {
	return extract.RangeConfig{
		Policy:           extract.RangePolicy(e.RangePolicy),
		MaxHeightCM:      e.Plausibility.HeightMaxCM,
		MaxWeightKg:      e.Plausibility.WeightMaxKg,
		MaxLifespanYears: e.Plausibility.LifespanMaxYears,
		Locales:          e.Locales,
	}
}

// TablesConfig names JSON5 files merged over the embedded tables.
type TablesConfig struct {
	Brands      string `mapstructure:"brands"`
	Ingredients string `mapstructure:"ingredients"`
	Keywords    string `mapstructure:"keywords"`
}

func (t TablesConfig) Overrides() tables.Overrides {
	return tables.Overrides{Brands: t.Brands, Ingredients: t.Ingredients, Keywords: t.Keywords}
}

type PricingConfig struct {
	Buckets []extract.PriceBucket `mapstructure:"buckets"`
}

type SourcesConfig struct {
	OPFF      source.OPFFConfig      `mapstructure:"opff"`
	AKC       source.AKCConfig       `mapstructure:"akc"`
	Wikipedia source.WikipediaConfig `mapstructure:"wikipedia"`
	Sites     []source.SiteConfig    `mapstructure:"sites"`
}

// Site returns the configured site scraper called name.
func (s SourcesConfig) Site(name string) (source.SiteConfig, bool) {
	for _, site := range s.Sites {
		if strings.EqualFold(site.Name, name) {
			return site, true
		}
	}
	return source.SiteConfig{}, false
}

// Load reads path when given, or else petcatalog.yaml from the working
// directory, ./config or $HOME/.config/petcatalog. A missing default file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("petcatalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.config/petcatalog")
	}

	v.SetEnvPrefix("PETCATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.driver", storage.DriverDuckDB)
	v.SetDefault("catalog.dsn", "out/catalog.duckdb")

	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	v.SetDefault("fetch.rate_per_second", 0.5)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.cache_ttl", "1h")
	v.SetDefault("fetch.cache_size", fetch.DefaultCacheSize)
	v.SetDefault("fetch.jitter", "2s")

	v.SetDefault("pipeline.workers", 10)

	v.SetDefault("extraction.locales", Locales)
	bounds := make(map[string]any)
	for form, b := range extract.DefaultKcalBounds() {
		bounds[form] = map[string]any{"min": b.Min, "max": b.Max}
	}
	v.SetDefault("extraction.kcal_bounds", bounds)
	ranges := extract.DefaultRangeConfig()
	v.SetDefault("extraction.range_policy", string(ranges.Policy))
	v.SetDefault("extraction.plausibility.height_max_cm", ranges.MaxHeightCM)
	v.SetDefault("extraction.plausibility.weight_max_kg", ranges.MaxWeightKg)
	v.SetDefault("extraction.plausibility.lifespan_max_years", ranges.MaxLifespanYears)

	var buckets []map[string]any
	for _, b := range extract.DefaultPriceBuckets() {
		buckets = append(buckets, map[string]any{"name": b.Name, "below": b.Below})
	}
	v.SetDefault("pricing.buckets", buckets)

	v.SetDefault("sources.opff.base_url", "https://world.openpetfoodfacts.org")
	v.SetDefault("sources.opff.rate_per_second", 1)
	v.SetDefault("sources.akc.base_url", "https://www.akc.org")
	v.SetDefault("sources.akc.delay", "2s")
	v.SetDefault("sources.wikipedia.base_url", "https://en.wikipedia.org")
}

func validate(config *Config) error {
	switch config.Catalog.Driver {
	case storage.DriverDuckDB, storage.DriverSQLite, storage.DriverLibSQL:
	default:
		return fmt.Errorf("catalog driver must be %q, %q or %q, got: %q",
			storage.DriverDuckDB, storage.DriverSQLite, storage.DriverLibSQL, config.Catalog.Driver)
	}
	if config.Catalog.DSN == "" {
		return errors.New("catalog dsn is required (set PETCATALOG_CATALOG_DSN)")
	}

	if config.Fetch.CacheSize < 0 {
		return fmt.Errorf("fetch cache size must not be negative, got: %d", config.Fetch.CacheSize)
	}

	if config.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be at least 1, got: %d", config.Pipeline.Workers)
	}

	ex := config.Extraction
	for _, l := range ex.Locales {
		if !slices.Contains(Locales, l) {
			return fmt.Errorf("unknown locale %q, known: %s", l, strings.Join(Locales, ", "))
		}
	}
	switch extract.RangePolicy(ex.RangePolicy) {
	case extract.PolicyDiscard, extract.PolicySwap:
	default:
		return fmt.Errorf("range policy must be 'discard' or 'swap', got: %s", ex.RangePolicy)
	}
	for form, b := range ex.KcalBounds {
		if b.Min < 0 || b.Max <= b.Min {
			return fmt.Errorf("kcal bounds for %s: want 0 <= min < max, got %v-%v", form, b.Min, b.Max)
		}
	}

	buckets := config.Pricing.Buckets
	for i, b := range buckets {
		if b.Name == "" {
			return fmt.Errorf("price bucket %d has no name", i)
		}
		if b.Below <= 0 && i != len(buckets)-1 {
			return fmt.Errorf("price bucket %s is open-ended but not last", b.Name)
		}
		if i > 0 && b.Below > 0 && b.Below <= buckets[i-1].Below {
			return fmt.Errorf("price bucket %s must have a higher bound than %s", b.Name, buckets[i-1].Name)
		}
	}

	for i, site := range config.Sources.Sites {
		if site.Name == "" {
			return fmt.Errorf("site %d has no name", i)
		}
		if len(site.StartURLs) == 0 {
			return fmt.Errorf("site %s has no start urls", site.Name)
		}
	}

	return nil
}
