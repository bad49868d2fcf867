// Package cmd defines and implements the CLI commands for the jobingest executable.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobingest/internal/app"
	"github.com/JakeFAU/jobingest/internal/config"
	"github.com/JakeFAU/jobingest/internal/jobs"
)

var cfgFile string

// App is what the run command needs from the application container.
// Tests substitute a fake through newApp.
type App interface {
	Run(ctx context.Context) jobs.Summary
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobingest",
		Short: "Scrapes job boards and stores normalized postings.",
		Long: `jobingest visits each configured job board, extracts posting cards,
optionally enriches them from their detail pages and inserts new postings
into the configured store as pending records.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment and .env files are always read")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSitesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
