package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitequery/sitequery/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Config{
			Addr:            a.cfg.Server.Addr,
			RequestTimeout:  a.cfg.Server.RequestTimeout,
			RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		}, a.engine, a.coord, a.store, a.vec, a.tracker, a.probes())

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
