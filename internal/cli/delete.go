package cli

import (
	"bufio"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	var f filterFlags
	var yes bool
	cmd := &cobra.Command{
		Use:       "delete products|breeds",
		Short:     "Delete catalog records matching filters",
		Long:      "Delete the records matching every given filter, with their provenance. At least one filter is required.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "breeds"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0])
			if err != nil {
				return err
			}
			filters := f.filters(cmd)
			if len(filters) == 0 {
				return errors.New("at least one filter is required (--key, --brand, --name or --source)")
			}

			if !yes {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nDelete %s with filters:\n", args[0])
				keys := make([]string, 0, len(filters))
				for k := range filters {
					keys = append(keys, k)
				}
				slices.Sort(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s: %v\n", k, filters[k])
				}
				fmt.Fprint(out, "\nAre you sure? (yes/no): ")

				reader := bufio.NewReader(cmd.InOrStdin())
				response, _ := reader.ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			rowsDeleted, err := repo.DeleteByFilters(cmd.Context(), entity, filters)
			if err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			if rowsDeleted == 0 {
				a.logger.Warn("No records matched the filters", "filters", filters)
			} else {
				a.logger.Info("Deleted successfully", "filters", filters, "rows_deleted", rowsDeleted)
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
