package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"talentlink/internal/api"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API for the web front end",
	Long: `Serve the session and validation endpoints under /api/v1 on the
configured host and port until interrupted.`,
	RunE: runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.cfg.API, a.logger, a.store, a.sessions, a.registry, version)
	return server.Start(ctx)
}
