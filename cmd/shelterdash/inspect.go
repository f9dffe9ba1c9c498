package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/shelter-data-etl/internal/dashboard"
	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize the stored snapshot (KPIs and stats)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		shelters, err := st.Shelters(ctx)
		if err != nil {
			return eris.Wrap(err, "read shelters")
		}
		animals, err := st.Animals(ctx)
		if err != nil {
			return eris.Wrap(err, "read animals")
		}

		view := dashboard.Apply(animals, shelters, dashboard.Filter{Sort: dashboard.SortCount})
		summary := inspectSummary{
			KPIs:   view.KPIs,
			Center: view.Center,
			Stats:  dashboard.ComputeStats(view.Shelters),
		}
		return writeInspect(cmd.OutOrStdout(), summary, inspectJSON)
	},
}

type inspectSummary struct {
	KPIs   dashboard.KPIs  `json:"kpis"`
	Center domain.Geo      `json:"center"`
	Stats  dashboard.Stats `json:"stats"`
}

func writeInspect(w io.Writer, s inspectSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(s), "encode summary")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "shelters\t%d\n", s.KPIs.Shelters)
	fmt.Fprintf(tw, "animals\t%d\n", s.KPIs.Animals)
	fmt.Fprintf(tw, "long-term\t%d\n", s.KPIs.LongTerm)
	fmt.Fprintf(tw, "adopted\t%d\n", s.KPIs.Adopted)

	fmt.Fprintln(tw, "\nby species\t")
	for _, b := range s.Stats.BySpecies {
		fmt.Fprintf(tw, "  %s\t%d\n", b.Label, b.Value)
	}
	if s.Stats.MultiRegion {
		fmt.Fprintln(tw, "\nlong-term by sido\t")
		for _, b := range s.Stats.LongTermBySido {
			fmt.Fprintf(tw, "  %s\t%d\n", b.Label, b.Value)
		}
	}
	return eris.Wrap(tw.Flush(), "write summary")
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(inspectCmd)
}
