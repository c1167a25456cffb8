package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newBrandsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Inspect and store brand canonicalization",
	}
	cmd.AddCommand(newBrandsCheckCmd(a))
	cmd.AddCommand(newBrandsSyncCmd(a))
	return cmd
}

func newBrandsCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <brand>...",
		Short: "Show the canonical slug of raw brand names and the rule that chose it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tables()
			if err != nil {
				return err
			}
			canon := t.Canonicalizer()

			tw := newTable(cmd)
			tw.AppendHeader(table.Row{"Raw", "Slug", "Family", "Series", "Rule"})
			for _, raw := range args {
				res := canon.Canonicalize(raw)
				tw.AppendRow(table.Row{raw, res.Slug, res.Family, res.Series, res.Rule})
			}
			tw.Render()
			return nil
		},
	}
}

func newBrandsSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Store the brand override table in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tables()
			if err != nil {
				return err
			}
			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			mappings := t.Canonicalizer().Mappings()
			if err := repo.SaveBrandMappings(cmd.Context(), mappings); err != nil {
				return fmt.Errorf("brand sync failed: %w", err)
			}
			a.logger.Info("Brand map synced", "mappings", len(mappings))
			return nil
		},
	}
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}
