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
		log.Println("creating transactions table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.TransactionDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.TransactionDao{}, "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping transactions table...")
		return mghelper.DropTables(ctx, db, &dao.TransactionDao{})
	})
}
