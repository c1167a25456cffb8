package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

// AKCSelectors locate the parts of AKC breed pages. The defaults follow the
// live markup; they are configurable because it changes.
type AKCSelectors struct {
	BreedLinks string `mapstructure:"breed_links"`
	NextPage   string `mapstructure:"next_page"`
	Breed      string `mapstructure:"breed"`
	Name       string `mapstructure:"name"`
	Stat       string `mapstructure:"stat"`
	StatLabel  string `mapstructure:"stat_label"`
	StatValue  string `mapstructure:"stat_value"`
	Trait      string `mapstructure:"trait"`
	TraitLabel string `mapstructure:"trait_label"`
	TraitScore string `mapstructure:"trait_score"`
	Headings   string `mapstructure:"headings"`
}

func DefaultAKCSelectors() AKCSelectors {
	return AKCSelectors{
		BreedLinks: ".breed-type-card a",
		NextPage:   "a.pagination__next, a[rel=next]",
		Breed:      ".breed-page",
		Name:       "h1",
		Stat:       ".breed-page__hero__overview__icon-block",
		StatLabel:  "h3",
		StatValue:  "p",
		Trait:      ".breed-trait-group__trait",
		TraitLabel: "h4",
		TraitScore: ".breed-trait-score__score-unit--filled",
		Headings:   "h2, h3",
	}
}

type AKCConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	MaxPages  int           `mapstructure:"max_pages"`
	Delay     time.Duration `mapstructure:"delay"`
	UserAgent string        `mapstructure:"user_agent"`
	Selectors AKCSelectors  `mapstructure:"selectors"`
}

// akcScores maps the printed 1-5 trait labels onto breed fields.
var akcScores = map[string]string{
	"energy level":             model.FieldEnergy,
	"shedding level":           model.FieldShedding,
	"coat grooming frequency":  model.FieldGrooming,
	"barking level":            model.FieldBarkLevel,
	"trainability level":       model.FieldTrainability,
	"good with young children": model.FieldGoodWithChildren,
	"good with other dogs":     model.FieldGoodWithPets,
}

// AKC crawls the American Kennel Club breed index and reads each breed
// page: vital stats as free text, trait ratings as 1-5 scores and the
// long-form sections by heading.
type AKC struct {
	cfg    AKCConfig
	logger *slog.Logger
}

func NewAKC(cfg AKCConfig, logger *slog.Logger) *AKC {
	def := DefaultAKCSelectors()
	sel := &cfg.Selectors
	orDefault(&sel.BreedLinks, def.BreedLinks)
	orDefault(&sel.NextPage, def.NextPage)
	orDefault(&sel.Breed, def.Breed)
	orDefault(&sel.Name, def.Name)
	orDefault(&sel.Stat, def.Stat)
	orDefault(&sel.StatLabel, def.StatLabel)
	orDefault(&sel.StatValue, def.StatValue)
	orDefault(&sel.Trait, def.Trait)
	orDefault(&sel.TraitLabel, def.TraitLabel)
	orDefault(&sel.TraitScore, def.TraitScore)
	orDefault(&sel.Headings, def.Headings)
	return &AKC{cfg: cfg, logger: logger}
}

func orDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func (s *AKC) Name() string { return model.SourceAKC }

func (s *AKC) Fetch(ctx context.Context) ([]model.RawBreed, error) {
	var (
		mu     sync.Mutex
		breeds []model.RawBreed
	)
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	sel := s.cfg.Selectors
	c, pages := newCollector(ctx, crawlLimits{
		AllowedDomains: []string{base.Hostname()},
		MaxPages:       s.cfg.MaxPages,
		Delay:          s.cfg.Delay,
		UserAgent:      s.cfg.UserAgent,
	}, s.logger)

	c.OnHTML(sel.BreedLinks, func(e *colly.HTMLElement) {
		_ = e.Request.Visit(e.Attr("href"))
	})
	c.OnHTML(sel.NextPage, func(e *colly.HTMLElement) {
		_ = e.Request.Visit(e.Attr("href"))
	})
	c.OnHTML(sel.Breed, func(e *colly.HTMLElement) {
		b, ok := s.parseBreed(e.DOM, e.Request.URL.String())
		if !ok {
			return
		}
		mu.Lock()
		breeds = append(breeds, b)
		mu.Unlock()
	})

	start := base.JoinPath("dog-breeds/").String()
	s.logger.Info("Starting AKC crawl", "url", start)
	err = visitAll(c, []string{start})

	if len(breeds) == 0 {
		s.logger.Warn("AKC crawl yielded 0 breeds. Check the selectors against the current markup.")
	}
	s.logger.Info("AKC crawl complete", "pages", pages(), "breeds", len(breeds))
	return breeds, err
}

func (s *AKC) parseBreed(dom *goquery.Selection, pageURL string) (model.RawBreed, bool) {
	sel := s.cfg.Selectors
	name := strings.TrimSpace(dom.Find(sel.Name).First().Text())
	if name == "" {
		return model.RawBreed{}, false
	}
	b := model.RawBreed{
		Source:    model.SourceAKC,
		URL:       pageURL,
		FetchedAt: time.Now().UTC(),
		Name:      name,
		Traits:    make(map[string]string),
		Scores:    make(map[string]int),
	}

	dom.Find(sel.Stat).Each(func(_ int, stat *goquery.Selection) {
		label := strings.TrimSpace(stat.Find(sel.StatLabel).First().Text())
		var values []string
		stat.Find(sel.StatValue).Each(func(_ int, v *goquery.Selection) {
			if t := collapse(v.Text()); t != "" {
				values = append(values, t)
			}
		})
		if label != "" && len(values) > 0 {
			b.Traits[label] = strings.Join(values, "; ")
		}
	})

	dom.Find(sel.Trait).Each(func(_ int, trait *goquery.Selection) {
		label := textmatch.Fold(trait.Find(sel.TraitLabel).First().Text())
		field, ok := akcScores[label]
		if !ok {
			return
		}
		if n := trait.Find(sel.TraitScore).Length(); n >= 1 && n <= 5 {
			b.Scores[field] = n
		}
	})

	b.Sections = headingSections(dom, sel.Headings)
	return b, true
}
