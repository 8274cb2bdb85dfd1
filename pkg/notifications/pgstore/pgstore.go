// Package pgstore implements the notification stores on PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations holds the goose migrations creating the store schema.
var Migrations, _ = fs.Sub(migrationsFS, "migrations")

// DB is the subset of *pgxpool.Pool used by the stores.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewStores returns all stores backed by db.
func NewStores(db DB) notifications.Stores {
	return notifications.Stores{
		Preferences:   NewPreferenceStore(db),
		Notifications: NewNotificationStore(db),
		Templates:     NewTemplateStore(db),
		Queue:         NewQueueStore(db),
	}
}
