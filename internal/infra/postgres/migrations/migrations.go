// Package migrations holds the bun migrations for the quizcraze schema.
// Each migration file must call Migrations.MustRegister itself: bun names
// migrations after the registering source file.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}

func dropTables(tables ...string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		for _, table := range tables {
			if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
				return err
			}
		}
		return nil
	}
}
