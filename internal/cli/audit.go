package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shanehull/petcatalog/internal/audit"
)

func newAuditCmd(a *app) *cobra.Command {
	var out string
	var threshold float64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report field coverage and possible duplicate brands",
		Long: `Report the share of products per brand, and of breeds, that have each field,
how many kcal values were derived rather than stated, and brand slugs similar
enough to be the same brand. The report is printed and written as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			report, err := audit.New(repo, threshold).Run(cmd.Context())
			if err != nil {
				return err
			}
			audit.RenderTable(cmd.OutOrStdout(), report)

			if out == "" {
				out = filepath.Join("out", "audit-"+time.Now().Format("20060102")+".yaml")
			}
			if err := audit.WriteYAML(out, report); err != nil {
				return fmt.Errorf("audit report: %w", err)
			}
			a.logger.Info("Audit written", "path", out, "brands", len(report.Products), "merges", len(report.Merges))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "YAML report path (default out/audit-YYYYMMDD.yaml)")
	cmd.Flags().Float64Var(&threshold, "threshold", audit.DefaultMergeThreshold, "Jaro-Winkler similarity for duplicate brand suggestions")
	return cmd
}
