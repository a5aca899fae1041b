package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"project-submission/migrations"
)

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, config Config) error {
	db, err := sql.Open("pgx", config.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
