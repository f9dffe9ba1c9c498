package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

var (
	updateFrom string
	updateTo   string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one ETL pass and replace the stored snapshot",
	Long: "Fetches notices posted between --from and --to (YYYYMMDD, default the trailing " +
		"fetch window), merges them with the shelter registry, and replaces the stored tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		from, to, err := updateRange(time.Now())
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		env, err := initRunner(st, observability.NewMetrics())
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Runner.RunWindow(ctx, from, to)
		if err != nil {
			return eris.Wrap(err, "update")
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// updateRange resolves --from/--to against now. A missing --to is today; a
// missing --from is the fetch window before --to.
func updateRange(now time.Time) (time.Time, time.Time, error) {
	to := now
	if updateTo != "" {
		t, err := parseDate(updateTo)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrap(err, "invalid --to")
		}
		to = t
	}
	from := to.AddDate(0, 0, -cfg.FetchWindowDays)
	if updateFrom != "" {
		t, err := parseDate(updateFrom)
		if err != nil {
			return time.Time{}, time.Time{}, eris.Wrap(err, "invalid --from")
		}
		from = t
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, eris.Errorf("--from %s is after --to %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to, nil
}

// parseDate accepts YYYYMMDD or YYYY-MM-DD in Korean time.
func parseDate(s string) (time.Time, error) {
	layout := "20060102"
	if strings.Contains(s, "-") {
		layout = time.DateOnly
	}
	return time.ParseInLocation(layout, s, domain.KST)
}

func init() {
	updateCmd.Flags().StringVar(&updateFrom, "from", "", "first notice date, YYYYMMDD")
	updateCmd.Flags().StringVar(&updateTo, "to", "", "last notice date, YYYYMMDD")
	rootCmd.AddCommand(updateCmd)
}
