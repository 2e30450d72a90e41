package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/open-sspm/useradmin/internal/config"
	"github.com/spf13/cobra"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		m, err := migrate.New(migrationsSourceURL(migrationsDir), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer m.Close()

		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("no changes to apply")
				return nil
			}
			return err
		}

		version, _, err := m.Version()
		if err != nil {
			return err
		}
		slog.Info("migrations applied successfully", "version", version)
		return nil
	},
}

func migrationsSourceURL(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "db/migrations"
	}
	return "file://" + strings.TrimPrefix(dir, "file://")
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "db/migrations", "Directory containing the SQL migrations")
}
