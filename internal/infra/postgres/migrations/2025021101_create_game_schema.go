package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_game_schema.sql
var createGameSchemaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createGameSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS camembert_progress;
				DROP TABLE IF EXISTS session_questions;
				DROP TABLE IF EXISTS question_options;
				DROP TABLE IF EXISTS groups;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS game_sessions`)
			return err
		},
	)
}
