package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bankbang/database"
	"bankbang/internal/app"
	"bankbang/internal/logger"

	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API and the scheduler
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (same as cmd/web)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Serve(ctx, cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		logger.Info("Migration finished")
		return nil
	},
}
