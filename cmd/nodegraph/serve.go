package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/nodegraph/server"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a workspace over HTTP",
	Long: `Serve one editable workspace over HTTP.

Scenes saved through the API go to the configured store.

Example:
  NODEGRAPH_LISTEN=:9000 nodegraph serve --config nodegraph.yml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ws, err := e.newWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	app := server.New(ws, store, e.logger.With("component", "server"))
	go func() {
		<-ctx.Done()
		e.logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			e.logger.Error("shutdown failed", "error", err)
		}
	}()

	e.logger.Info("listening", "addr", e.cfg.Listen, "store", e.cfg.Store)
	return app.Listen(e.cfg.Listen, fiber.ListenConfig{DisableStartupMessage: true})
}
