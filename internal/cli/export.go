package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/storage"
)

var entityArgs = map[string]model.Entity{
	"products": model.EntityProduct,
	"breeds":   model.EntityBreed,
}

func parseEntity(arg string) (model.Entity, error) {
	e, ok := entityArgs[arg]
	if !ok {
		return "", fmt.Errorf("unknown record kind %q, want products or breeds", arg)
	}
	return e, nil
}

// filterFlags binds the record filters shared by export and delete.
type filterFlags struct {
	key, brand, name, source string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "key", "", "Record key (product key or breed slug)")
	cmd.Flags().StringVar(&f.brand, "brand", "", "Brand slug (products only)")
	cmd.Flags().StringVar(&f.name, "name", "", "Product or breed name (case-insensitive)")
	cmd.Flags().StringVar(&f.source, "source", "", "Source tag, e.g. OPFF or akc")
}

// filters holds only the flags given on the command line, so an explicit
// empty value still filters.
func (f *filterFlags) filters(cmd *cobra.Command) storage.Filters {
	filters := storage.Filters{}
	set := func(flag, key, v string) {
		if cmd.Flags().Changed(flag) {
			filters[key] = v
		}
	}
	set("key", storage.FilterKey, f.key)
	set("brand", storage.FilterBrandSlug, f.brand)
	set("name", storage.FilterName, f.name)
	set("source", storage.FilterSource, f.source)
	return filters
}

func newExportCmd(a *app) *cobra.Command {
	var f filterFlags
	var out string
	cmd := &cobra.Command{
		Use:       "export products|breeds",
		Short:     "Export catalog records as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "breeds"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0])
			if err != nil {
				return err
			}
			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if out == "" {
				out = filepath.Join("out", args[0]+"-"+time.Now().Format("20060102")+".csv")
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			n, err := repo.ExportCSV(cmd.Context(), w, entity, f.filters(cmd))
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			a.logger.Info("Export successful", "path", out, "records", n)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Output CSV path, - for stdout (default out/<kind>-YYYYMMDD.csv)")
	return cmd
}
