package storage

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded schema for the dialect. It opens its own
// connection since the migrate driver closes the database it is given.
func RunMigrations(dialect, dsn string) error {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return errors.Wrap(err, "open migration database")
	}
	defer db.Close()

	var driver database.Driver
	switch dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectSqlite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return errors.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return errors.Wrapf(err, "create %s driver", dialect)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return errors.Wrap(err, "create iofs source")
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}
