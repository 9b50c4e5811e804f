package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration on m and returns the schema
// version it leaves behind. A schema left dirty by a failed run is refused.
func MigrateUp(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty, fix it and force the version", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err = m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// RunMigrations brings the SQLite file at dsn up to the embedded schema and
// returns its version. The migrator owns its connection; closing the
// migrator closes it.
func RunMigrations(dsn string) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		src.Close()
		return 0, fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		src.Close()
		conn.Close()
		return 0, fmt.Errorf("create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	return MigrateUp(m)
}
