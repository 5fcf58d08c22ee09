package cli

import (
	"errors"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"letsquiz-service/internal/config"
	"letsquiz-service/internal/infra/postgres"
)

// NewSeedCmd loads seed questions from the configured JSON file.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed questions into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errMissingPostgres
			}
			file := dataFile
			if file == "" {
				file = cfg.Seed.DataFile
			}
			if file == "" {
				return errors.New("no seed data file configured")
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.NewSeeder(pool).SeedFromFile(cmd.Context(), file)
			if err != nil {
				return err
			}
			log.Printf("seeded %d questions from %s", n, file)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "path to the seed JSON file (overrides config)")
	return cmd
}
