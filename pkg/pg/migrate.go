package pg

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Migrate applies every pending goose migration found at the root of
// migrations, usually an embed.FS owned by a store package.
//
// goose keeps its settings in package state, so concurrent calls are not
// supported.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("migrations"))

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetLogger(gooseLog{log})
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if cfg.MigrationsTable != "" {
		goose.SetTableName(cfg.MigrationsTable)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrate, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: read version: %w", ErrMigrate, err)
	}
	log.LogAttrs(ctx, slog.LevelInfo, "database schema is up to date", slog.Int64("version", version))
	return nil
}

// gooseLog adapts goose's printf logger to slog.
type gooseLog struct{ log *slog.Logger }

func (g gooseLog) Printf(format string, v ...any) { g.log.Debug(fmt.Sprintf(format, v...)) }
func (g gooseLog) Fatalf(format string, v ...any) { g.log.Error(fmt.Sprintf(format, v...)) }
