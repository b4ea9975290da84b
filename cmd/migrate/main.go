package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	migrationsPath string
	logLevel       string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the blog content database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "", "migrations directory (default MIGRATIONS_PATH or ./migrations)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, path string, _ []string) error {
				return db.RunMigrations(path)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, path string, _ []string) error {
				return db.MigrateDown(path)
			}),
		},
		&cobra.Command{
			Use:   "to <version>",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: withDB(func(db *database.DB, path string, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return db.MigrateToVersion(path, uint(version))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, path string, _ []string) error {
				version, dirty, err := db.MigrationVersion(path)
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
	)
	return root
}

// withDB opens the database for a subcommand and closes it afterwards
func withDB(run func(db *database.DB, path string, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}

		log := logger.New(logLevel, "pretty").With().Str("component", "migrate").Logger()

		db, err := database.New(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		path := migrationsPath
		if path == "" {
			path = cfg.MigrationsPath
		}
		return run(db, path, args)
	}
}
