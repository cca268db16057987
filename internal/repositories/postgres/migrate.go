package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	mpostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultMigrationsTable tracks applied order log migrations.
const DefaultMigrationsTable = "shop_schema_migrations"

// Migrate applies every pending migration. It is a no-op when the schema is current.
func Migrate(pool *pgxpool.Pool, migrationsTable string) error {
	if pool == nil {
		return errors.New("postgres: pool is required")
	}
	if strings.TrimSpace(migrationsTable) == "" {
		migrationsTable = DefaultMigrationsTable
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := mpostgres.WithInstance(db, &mpostgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
