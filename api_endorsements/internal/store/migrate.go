package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "bosun_schema_migrations"

// Migrate applies the embedded schema migrations.
// targetVersion < 0 migrates to latest, 0 rolls everything back, and any
// other value migrates to that version.
func Migrate(db *sql.DB, targetVersion int, logger logging.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("access migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "bosun", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at version %d; fix manually or force the version", current)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.WithField("version", current).Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	next, _, _ := m.Version()
	logger.WithFields(logging.Fields{
		"from": current,
		"to":   next,
	}).Info("Schema migrated")
	return nil
}

// MigrationNames lists the embedded migration files in order
func MigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
