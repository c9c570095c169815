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
		log.Println("creating audit_log table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.AuditDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.AuditDao{}, "event_id", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping audit_log table...")
		return mghelper.DropTables(ctx, db, &dao.AuditDao{})
	})
}
