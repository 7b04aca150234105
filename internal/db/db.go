package db

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/op-tourney/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the sqlite database at path. Writes are serialized through a
// single connection, so an in-memory path (":memory:") behaves as one database.
func Connect(path string) (*sqlx.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" || path == "file::memory:" {
		dsn = "file::memory:"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connected", "path", path)
	return db, nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(db *sqlx.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// RollbackMigrations reverts every applied migration.
func RollbackMigrations(db *sqlx.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

func newMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate driver instance: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite3", driver)
}
