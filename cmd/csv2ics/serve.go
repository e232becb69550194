package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "csv2ics/internal/log"
	"csv2ics/internal/web"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the converter over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			defer stop()

			err = web.StartServer(ctx, cfg)
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			appLog.Info("csv2ics server exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
