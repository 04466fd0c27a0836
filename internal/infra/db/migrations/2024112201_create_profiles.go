package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return createTables(ctx, db,
				(*userTable)(nil),
				(*accuracyTable)(nil),
				(*reviewSetTable)(nil),
				(*quizResultTable)(nil),
			)
		},
		func(ctx context.Context, db *bun.DB) error {
			return dropTables(ctx, db,
				(*quizResultTable)(nil),
				(*reviewSetTable)(nil),
				(*accuracyTable)(nil),
				(*userTable)(nil),
			)
		},
	)
}
