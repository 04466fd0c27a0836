package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/db"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Server.LogLevel)
			bunDB, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer bunDB.Close()
			return migrateDatabase(cmd.Context(), bunDB, logger)
		},
	}
}

// openDatabase connects to the relational store named by profile.driver.
// The memory driver has no database.
func openDatabase(ctx context.Context, cfg config.Config) (*bun.DB, error) {
	switch cfg.Profile.Driver {
	case "", string(db.DriverSQLite):
		return db.Open(ctx, db.DriverSQLite, cfg.Profile.DSN)
	case string(db.DriverPostgres):
		dsn := cfg.Profile.DSN
		if dsn == "" {
			dsn = cfg.Postgres.URL
		}
		return db.Open(ctx, db.DriverPostgres, dsn)
	default:
		return nil, fmt.Errorf("profile driver %q has no database", cfg.Profile.Driver)
	}
}

func migrateDatabase(ctx context.Context, bunDB *bun.DB, logger *slog.Logger) error {
	applied, err := db.Migrate(ctx, bunDB)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if len(applied) == 0 {
		logger.Info("database schema up to date")
		return nil
	}
	logger.Info("migrations applied", "migrations", applied)
	return nil
}
