// Package pg connects to PostgreSQL through a pgx connection pool and
// applies goose migrations from an embedded filesystem.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck wraps the pool into a readiness probe, and the Is*Error
// helpers classify errors returned by pgx.
package pg
