// Package commands is the server CLI: serve, migrate and seed.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/library-catalog/internal/config"
	"github.com/iliyamo/library-catalog/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "library-catalog",
	Short: "Library e-book catalog server",
	Long: `Library catalog serves the reader catalog (favorites, bookmarks,
popular and recommended books) and the admin pages for books and users.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}

// setup loads configuration and builds the logger every subcommand uses.
func setup() (config.Config, *slog.Logger) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := logger.New(logger.Config{Environment: cfg.Env, Level: cfg.LogLevel})
	return cfg, log
}
