package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if err := createTables(ctx, db, (*questionTable)(nil)); err != nil {
				return err
			}
			_, err := db.NewCreateIndex().
				Model((*questionTable)(nil)).
				Index("questions_category_idx").
				Column("category").
				IfNotExists().
				Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			return dropTables(ctx, db, (*questionTable)(nil))
		},
	)
}
