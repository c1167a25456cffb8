package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shanehull/petcatalog/internal/enrich"
	"github.com/shanehull/petcatalog/internal/fetch"
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/pipeline"
	"github.com/shanehull/petcatalog/internal/source"
	"github.com/shanehull/petcatalog/internal/tables"
)

func newScrapeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape sources into the catalog",
	}
	cmd.AddCommand(newScrapeProductsCmd(a))
	cmd.AddCommand(newScrapeBreedsCmd(a))
	return cmd
}

func newScrapeProductsCmd(a *app) *cobra.Command {
	var names, brands []string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Scrape product listings and the Open Pet Food Facts API",
		Long: `Scrape products from the sites configured under sources.sites and from
Open Pet Food Facts. Without --source every configured source runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.productSources(names, brands)
			if err != nil {
				return err
			}
			return runSources(cmd, a, sources, a.productEnricher)
		},
	}
	cmd.Flags().StringSliceVar(&names, "source", nil, "Sources to run: opff or a configured site name (repeatable)")
	cmd.Flags().StringSliceVar(&brands, "brands", nil, "Brands to search on Open Pet Food Facts (overrides sources.opff.brands)")
	return cmd
}

func newScrapeBreedsCmd(a *app) *cobra.Command {
	var names, breeds []string
	cmd := &cobra.Command{
		Use:   "breeds",
		Short: "Scrape dog breed pages from AKC and Wikipedia",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.breedSources(names, breeds)
			if err != nil {
				return err
			}
			return runSources(cmd, a, sources, a.breedEnricher)
		},
	}
	cmd.Flags().StringSliceVar(&names, "source", nil, "Sources to run: akc, wikipedia (default both)")
	cmd.Flags().StringSliceVar(&breeds, "breeds", nil, "Wikipedia article titles (overrides sources.wikipedia.breeds)")
	return cmd
}

func wanted(names []string, name string) bool {
	return len(names) == 0 || slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(strings.TrimSpace(n), name)
	})
}

func (a *app) productSources(names, brands []string) ([]source.ProductSourcer, error) {
	for _, n := range names {
		if _, ok := a.cfg.Sources.Site(n); !ok && !strings.EqualFold(n, model.SourceOPFF) {
			return nil, fmt.Errorf("unknown product source %q", n)
		}
	}

	var sources []source.ProductSourcer
	for _, site := range a.cfg.Sources.Sites {
		if wanted(names, site.Name) {
			if site.UserAgent == "" {
				site.UserAgent = a.cfg.Fetch.UserAgent
			}
			sources = append(sources, source.NewSiteScraper(site, a.logger.With("source", site.Name)))
		}
	}
	if wanted(names, model.SourceOPFF) {
		opff := a.cfg.Sources.OPFF
		if len(brands) > 0 {
			opff.Brands = brands
		}
		switch {
		case len(opff.Brands) > 0:
			if opff.UserAgent == "" {
				opff.UserAgent = a.cfg.Fetch.UserAgent
			}
			sources = append(sources, source.NewOPFF(opff, a.logger.With("source", model.SourceOPFF)))
		case len(names) > 0:
			return nil, errors.New("no Open Pet Food Facts brands given (set sources.opff.brands or --brands)")
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no product sources configured")
	}
	return sources, nil
}

func (a *app) breedSources(names, breeds []string) ([]source.BreedSourcer, error) {
	for _, n := range names {
		if !strings.EqualFold(n, model.SourceAKC) && !strings.EqualFold(n, model.SourceWikipedia) {
			return nil, fmt.Errorf("unknown breed source %q", n)
		}
	}

	var sources []source.BreedSourcer
	if wanted(names, model.SourceAKC) {
		akc := a.cfg.Sources.AKC
		if akc.UserAgent == "" {
			akc.UserAgent = a.cfg.Fetch.UserAgent
		}
		sources = append(sources, source.NewAKC(akc, a.logger.With("source", model.SourceAKC)))
	}
	if wanted(names, model.SourceWikipedia) {
		wiki := a.cfg.Sources.Wikipedia
		if len(breeds) > 0 {
			wiki.Breeds = breeds
		}
		switch {
		case len(wiki.Breeds) > 0:
			logger := a.logger.With("source", model.SourceWikipedia)
			sources = append(sources, source.NewWikipedia(wiki, fetch.New(a.cfg.Fetch, logger), logger))
		case len(names) > 0:
			return nil, errors.New("no Wikipedia breeds given (set sources.wikipedia.breeds or --breeds)")
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no breed sources configured")
	}
	return sources, nil
}

// runSources runs one pipeline over sources into the configured catalog. A
// canceled run still logs its summary and returns the cancellation; so does
// a run in which no source could be fetched.
func runSources[R any, E enrich.Enricher[R]](cmd *cobra.Command, a *app, sources []source.Sourcer[R], newEnricher func(*tables.Tables) E) error {
	ctx := cmd.Context()
	t, err := a.tables()
	if err != nil {
		return err
	}
	repo, err := a.openCatalog(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	runner := pipeline.NewRunner[R](newEnricher(t), a.orchestrator(repo), a.logger,
		pipeline.WithWorkers(a.cfg.Pipeline.Workers))
	stats := runner.Run(ctx, sources)
	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.Failures[pipeline.ReasonFetchFailed] == len(sources) && stats.Found == 0 {
		return fmt.Errorf("all %d sources failed to fetch", len(sources))
	}
	return nil
}
