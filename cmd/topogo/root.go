package main

import (
	"context"

	"github.com/da99/topogo"
	"github.com/da99/topogo/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	flagURL   string
	flagDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "topogo",
	Short: "Inspect databases and expand SQL templates",
	Long: `Topogo composes PostgreSQL statements from structured data.

This command provides subcommands for:
- Listing and describing the tables of a database
- Expanding SQL templates with named variables and schema directives
- Resetting the test table`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "database URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log every statement")

	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(resetTestDbCmd)
}

// Execute is the main entry point for the CLI
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// openManager resolves the configuration and opens a manager on the URL given
// by --url, falling back to the chosen config URL.
func openManager(pick func(*config.Config) string) (*topogo.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	url := flagURL
	if url == "" {
		url = pick(cfg)
	}
	if url == "" {
		return nil, nil, errors.Wrap(topogo.ErrNoConn, "no database URL: set DATABASE_URL or pass --url")
	}

	mgr, err := topogo.Open(topogo.Options{
		URL:          url,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		Logger:       topogo.NewLogger(flagDebug || cfg.Debug),
	})
	if err != nil {
		return nil, nil, err
	}
	return mgr, cfg, nil
}

func databaseURL(cfg *config.Config) string { return cfg.DatabaseURL }
