package cli

import (
	"context"
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"letsquiz-service/internal/config"
	"letsquiz-service/internal/infra/postgres"
	pgmigrations "letsquiz-service/internal/infra/postgres/migrations"
)

var (
	errMissingPostgres  = errors.New("postgres url not configured")
	errMissingJWTSecret = errors.New("auth jwt secret not configured")
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
			return runMigrationsWithConfig(cmd.Context(), cfg)
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return errMissingPostgres
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}
	log.Printf("migrations applied")
	return nil
}
