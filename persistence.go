package users

import (
	"context"
	"database/sql"
	"io/fs"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// PersistenceConfig satisfies persistence.Config for the sqlite-backed store.
type PersistenceConfig struct {
	Debug          bool
	Driver         string
	Server         string
	Database       string
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c PersistenceConfig) GetDebug() bool            { return c.Debug }
func (c PersistenceConfig) GetDriver() string         { return c.Driver }
func (c PersistenceConfig) GetServer() string         { return c.Server }
func (c PersistenceConfig) GetDatabase() string       { return c.Database }
func (c PersistenceConfig) GetOtelIdentifier() string { return c.OtelIdentifier }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

// DefaultPersistenceConfig is the sqlite configuration used when the caller
// does not provide one.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Driver: sqliteshim.ShimName,
	}
}

// OpenDB opens a sqlite-backed bun.DB for the given DSN. Use ":memory:" for
// throwaway databases in tests and examples.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open database")
	}

	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Phone)(nil))

	client, err := persistence.New(DefaultPersistenceConfig(), sqldb, sqlitedialect.New())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create persistence client")
	}

	return client.DB(), nil
}

// Migrate applies the embedded SQL migrations. Statements are idempotent so
// re-running on an existing database is safe.
func Migrate(ctx context.Context, db *bun.DB) error {
	client, err := persistence.New(DefaultPersistenceConfig(), db.DB, sqlitedialect.New())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create persistence client")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load migrations")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "migration validation failed")
	}

	if err := client.Migrate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to apply migrations")
	}

	return nil
}
