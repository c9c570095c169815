package tipdb

import (
	"context"
	"log"

	mghelper "github.com/montip/tipbot-middleware/pkg/pgutil/migrations"
	"github.com/montip/tipbot-middleware/pkg/tipdb/dao"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating idempotency_claims table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.IdempotencyClaimDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.IdempotencyClaimDao{}, "first_seen_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping idempotency_claims table...")
		return mghelper.DropTables(ctx, db, &dao.IdempotencyClaimDao{})
	})
}
