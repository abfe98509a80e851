package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies the target store migrations for the configured driver.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	return runMigrations(logger, "migrations", dbDriver, dbConnectionString)
}

// RunSourceMigrations creates the source employees table. It is meant for local
// environments where the source-of-record database is not managed elsewhere.
func RunSourceMigrations(logger *slog.Logger, dbDriver, dbConnectionString string) error {
	return runMigrations(logger, "migrations/source", dbDriver, dbConnectionString)
}

func runMigrations(logger *slog.Logger, baseDir, dbDriver, dbConnectionString string) error {
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
		slog.String("dir", baseDir),
	)

	var migrationsPath, databaseURL string
	switch dbDriver {
	case "postgres":
		migrationsPath = "file://" + baseDir + "/postgresql"
		databaseURL = dbConnectionString
	case "mysql":
		migrationsPath = "file://" + baseDir + "/mysql"
		databaseURL = mysqlMigrateURL(dbConnectionString)
	default:
		return fmt.Errorf("unsupported database driver: %s", dbDriver)
	}

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// mysqlMigrateURL turns a go-sql-driver DSN into the URL golang-migrate expects.
// Migration files hold several statements, so multiStatements is forced on.
func mysqlMigrateURL(dsn string) string {
	if !strings.HasPrefix(dsn, "mysql://") {
		dsn = "mysql://" + dsn
	}
	if strings.Contains(dsn, "multiStatements=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&multiStatements=true"
	}
	return dsn + "?multiStatements=true"
}
