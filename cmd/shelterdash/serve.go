package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/shelter-data-etl/internal/adapter/http"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

var (
	serveAddr      string
	serveNoRefresh bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and refresh the snapshot periodically",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := observability.NewMetrics()
		env, err := initRunner(st, metrics)
		if err != nil {
			return err
		}
		defer env.Close()

		// A snapshot from an earlier run is servable before the first refresh.
		if shelters, err := st.Shelters(ctx); err != nil {
			logger.Warn("could not read stored snapshot", "error", err)
		} else if len(shelters) > 0 {
			env.Runner.MarkReady()
			logger.Info("serving stored snapshot", "shelters", len(shelters))
		}

		addr := cfg.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := httpadapter.NewServer(addr, st, env.Runner, logger)

		// Start HTTP server.
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
				stop()
			}
		}()

		// Start periodic refresh.
		runnerDone := make(chan struct{})
		go func() {
			defer close(runnerDone)
			if serveNoRefresh {
				return
			}
			if err := env.Runner.Run(ctx, cfg.RefreshInterval); err != nil {
				logger.Error("runner error", "error", err)
			}
		}()

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		select {
		case <-runnerDone:
		case <-shutdownCtx.Done():
			logger.Warn("runner did not stop before shutdown timeout")
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveNoRefresh, "no-refresh", false, "serve the stored snapshot without running the ETL")
	rootCmd.AddCommand(serveCmd)
}
