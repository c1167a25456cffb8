// Package cli is the petcatalog command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shanehull/petcatalog/internal/config"
	"github.com/shanehull/petcatalog/internal/enrich"
	"github.com/shanehull/petcatalog/internal/storage"
	"github.com/shanehull/petcatalog/internal/tables"
	"github.com/shanehull/petcatalog/internal/upsert"
)

// app is the state every subcommand shares once the root has loaded it.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "petcatalog",
		Short: "Pet food and dog breed catalog builder",
		Long: `Petcatalog scrapes pet food products and dog breed pages, extracts typed
fields from their text and keeps a catalog of the results.

Records are merged fill-if-missing: a stored value is only replaced by a
better one, so runs can be repeated safely.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default petcatalog.yaml in ., ./config or ~/.config/petcatalog)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logs")

	cmd.AddCommand(newScrapeCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newBrandsCmd(a))
	cmd.AddCommand(newAuditCmd(a))
	cmd.AddCommand(newViewsCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newDeleteCmd(a))

	return cmd
}

func (a *app) load(logOut io.Writer) error {
	logLevel := slog.LevelInfo
	if a.debug {
		logLevel = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// openCatalog connects to the configured catalog and makes sure its schema
// exists. File catalogs get their directory created.
func (a *app) openCatalog(ctx context.Context) (*storage.SQLRepo, error) {
	c := a.cfg.Catalog
	if c.Driver != storage.DriverLibSQL {
		if err := os.MkdirAll(filepath.Dir(c.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	repo, err := storage.Open(c.Driver, c.DSN, a.logger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("catalog connection failed: %w", err)
	}
	if err := repo.Init(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (a *app) tables() (*tables.Tables, error) {
	return tables.Load(a.cfg.Tables.Overrides())
}

func (a *app) orchestrator(repo upsert.Store) *upsert.Orchestrator {
	return upsert.New(repo, a.logger.With("component", "upsert"))
}

func (a *app) productEnricher(t *tables.Tables) *enrich.ProductEnricher {
	ex := a.cfg.Extraction
	return enrich.NewProductEnricher(t, enrich.ProductConfig{
		Locales:      ex.Locales,
		KcalBounds:   ex.KcalBounds,
		PriceBuckets: a.cfg.Pricing.Buckets,
		Logger:       a.logger,
	})
}

func (a *app) breedEnricher(t *tables.Tables) *enrich.BreedEnricher {
	ex := a.cfg.Extraction
	return enrich.NewBreedEnricher(t, enrich.BreedConfig{
		Locales:  ex.Locales,
		Ranges:   ex.Ranges(),
		Priority: ex.Priority,
		Logger:   a.logger,
	})
}
