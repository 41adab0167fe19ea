package repository

import (
	"errors"
	"fmt"
	"strings"

	"nflpickem/ingestion/internal/repository/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

// Migrator applies the embedded schema migrations
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a migrator against the database described by cfg
func NewMigrator(cfg Config) (*Migrator, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(cfg.DSN()))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// migrateURL switches a postgres:// DSN to the scheme of the pgx/v5 driver
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Up applies all pending migrations. No pending change is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info().Msg("Migrations applied")
	return nil
}

// Down rolls back the given number of migrations
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("down steps must be > 0")
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	log.Info().Int("steps", steps).Msg("Migrations rolled back")
	return nil
}

// Version returns the current schema version. ok is false before any
// migration has run.
func (mg *Migrator) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read version: %w", err)
	}
	return version, dirty, true, nil
}

// Close releases the migration source and database handles
func (mg *Migrator) Close() {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		log.Warn().Err(srcErr).Msg("Failed to close migration source")
	}
	if dbErr != nil {
		log.Warn().Err(dbErr).Msg("Failed to close migration database")
	}
}
