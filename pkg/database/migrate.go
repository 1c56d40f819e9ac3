package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/richxcame/upi-guard/db"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/logger"
	"go.uber.org/zap"
)

// Migrate applies every pending up migration. The source is
// cfg.MigrationsPath when set, otherwise the embedded db/migrations.
func Migrate(cfg *config.DatabaseConfig) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("database schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

func newMigrator(cfg *config.DatabaseConfig) (*migrate.Migrate, error) {
	if cfg.MigrationsPath != "" {
		m, err := migrate.New(cfg.MigrationsPath, cfg.URL())
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return m, nil
	}

	source, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}
