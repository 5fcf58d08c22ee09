package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_init.sql
var initSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(initSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS group_players;
				DROP TABLE IF EXISTS session_questions;
				DROP TABLE IF EXISTS quiz_sessions;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS difficulty_levels;
				DROP TABLE IF EXISTS categories;
				DROP TABLE IF EXISTS users;
			`)
			return err
		},
	)
}
