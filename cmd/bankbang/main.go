package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bankbang/internal/app"
	"bankbang/internal/config"
	"bankbang/internal/logger"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	envFlag    string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bankbang",
	Short: "bankbang - backend and ops tooling",
	Long: `bankbang serves the finance-careers API and runs the data jobs behind it:
spreadsheet imports, logo rehosting, favicon and referral scraping, counter repair.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if envFlag != "" {
			cfg.Server.Env = envFlag
		}
		app.Init(cfg)
		return nil
	},
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Override server.env (development, production)")

	rootCmd.AddCommand(
		serveCmd,
		migrateCmd,
		importJobsCmd,
		rehostLogosCmd,
		scrapeFaviconsCmd,
		scrapeReferralsCmd,
		backfillCountsCmd,
		closeExpiredCmd,
		seedAdminCmd,
	)
}

// withApp открывает БД и сервисы на время одной команды
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// схему меняет только migrate и serve
	cfg.Server.AutoMigrate = false
	a, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
