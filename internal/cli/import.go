package cli

import (
	"github.com/spf13/cobra"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/source"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import hand-collected records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "csv <file>",
		Short: "Import products from a CSV file",
		Long: `Import products from a CSV file with a header row. Recognised columns, in
any order: brand, name, description, ingredients, analysis, price, package,
form, url. Only name is required; rows without a brand are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := source.NewCSVSource(args[0], a.logger.With("source", model.SourceCSV))
			return runSources(cmd, a, []source.ProductSourcer{src}, a.productEnricher)
		},
	})
	return cmd
}
