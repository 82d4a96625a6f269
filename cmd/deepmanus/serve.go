package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/TimeCyber/DeepManus/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streaming chat API",
	Long:  `Start the HTTP server exposing /api/chat/stream, run cancellation, health, metrics and the connect streaming procedure.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "listen port (overrides config and PORT)")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		return err
	}
	srv := a.Server()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "active_runs", len(a.Runner().Runs().Active()))
		return errors.Join(
			srv.Shutdown(context.Background()),
			a.Close(context.Background()),
		)
	})
	return g.Wait()
}
