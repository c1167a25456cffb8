package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shanehull/petcatalog/internal/fetch"
	"github.com/shanehull/petcatalog/internal/model"
)

type WikipediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Breeds are article titles, e.g. "Bernese Mountain Dog".
	Breeds []string `mapstructure:"breeds"`
}

// Wikipedia reads breed articles: the infobox rows become traits and the
// article sections are filed by heading.
type Wikipedia struct {
	cfg     WikipediaConfig
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

func NewWikipedia(cfg WikipediaConfig, fetcher fetch.Fetcher, logger *slog.Logger) *Wikipedia {
	return &Wikipedia{cfg: cfg, fetcher: fetcher, logger: logger}
}

func (s *Wikipedia) Name() string { return model.SourceWikipedia }

func (s *Wikipedia) Fetch(ctx context.Context) ([]model.RawBreed, error) {
	var (
		breeds []model.RawBreed
		failed int
	)
	for _, title := range s.cfg.Breeds {
		if err := ctx.Err(); err != nil {
			return breeds, err
		}
		b, err := s.fetchArticle(ctx, title)
		if err != nil {
			failed++
			s.logger.Warn("Skipping breed article", "title", title, "err", err)
			continue
		}
		breeds = append(breeds, b)
	}
	s.logger.Info("Wikipedia fetch complete", "breeds", len(breeds), "failed", failed)
	if failed > 0 && len(breeds) == 0 {
		return nil, fmt.Errorf("all %d wikipedia articles failed", failed)
	}
	return breeds, nil
}

func (s *Wikipedia) articleURL(title string) string {
	return strings.TrimSuffix(s.cfg.BaseURL, "/") + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

func (s *Wikipedia) fetchArticle(ctx context.Context, title string) (model.RawBreed, error) {
	page, err := s.fetcher.Get(ctx, s.articleURL(title))
	if err != nil {
		return model.RawBreed{}, err
	}
	doc, err := fetch.Document(page)
	if err != nil {
		return model.RawBreed{}, err
	}

	name := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if name == "" {
		name = title
	}
	content := doc.Find("#mw-content-text .mw-parser-output").First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	content.Find("sup.reference, .mw-editsection").Remove()

	return model.RawBreed{
		Source:    model.SourceWikipedia,
		URL:       page.URL,
		FetchedAt: page.FetchedAt,
		Name:      name,
		Traits:    infoboxTraits(content.Find("table.infobox").First()),
		Sections:  headingSections(content, "h2, h3"),
	}, nil
}

// sexQualifiers are infobox sub-row labels that continue the previous row,
// as in "Height | Males | 64–70 cm".
var sexQualifiers = map[string]bool{
	"males": true, "females": true, "dogs": true, "bitches": true, "male": true, "female": true,
}

// infoboxTraits reads label/value rows of a Wikipedia infobox.
func infoboxTraits(box *goquery.Selection) map[string]string {
	traits := make(map[string]string)
	var last string
	box.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		label := collapse(tr.Find("th").First().Text())
		cells := tr.Find("td")
		value := collapse(cells.Last().Text())
		if value == "" {
			return
		}
		// A row with a qualifier cell: <th>Height</th><td>Males</td><td>64 cm</td>.
		if cells.Length() > 1 {
			value = collapse(cells.First().Text()) + " " + value
		}
		qualifier := sexQualifiers[strings.ToLower(label)]
		if label == "" || qualifier {
			if qualifier {
				value = label + " " + value
			}
			if last != "" {
				traits[last] += "; " + value
			}
			return
		}
		last = label
		traits[label] = value
	})
	return traits
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
