package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/shelter-data-etl/internal/storage"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [table]",
	Short: "Print the columns of a stored table (default shelters)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := storage.TableShelters
		if len(args) == 1 {
			table = args[0]
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cols, err := st.Columns(cmd.Context(), table)
		if err != nil {
			return eris.Wrapf(err, "schema %s", table)
		}
		if len(cols) == 0 {
			return eris.Errorf("table %q not found", table)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s:\n", table)
		for _, c := range cols {
			fmt.Fprintf(out, "  %s\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
