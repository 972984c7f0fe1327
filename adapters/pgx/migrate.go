package pgx

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/lborres/reel/adapters/internal/sqlutil"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies pending migrations to the database behind pool
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return sqlutil.Migrate(ctx, db, migrations, "postgres")
}
