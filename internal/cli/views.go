package cli

import (
	"github.com/spf13/cobra"
)

func newViewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Manage catalog views",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the coverage snapshot tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RefreshViews(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Views refreshed")
			return nil
		},
	})
	return cmd
}
