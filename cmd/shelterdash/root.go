// Command shelterdash runs the shelter animal ETL and serves the dashboard API.
package main

import (
	"log/slog"
	"os"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/shelter-data-etl/internal/config"
)

var (
	cfg        *config.Config
	logger     *slog.Logger
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "shelterdash",
	Short: "Shelter animal ETL and dashboard",
	Long: "Collects abandoned-animal notices from the public data API and local exports, " +
		"aggregates them per shelter, joins the shelter registry with geocoded coordinates, " +
		"and stores the snapshot for the dashboard.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFrom(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		logger = sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./shelterdash.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
