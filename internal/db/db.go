// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/codr1/Courtside/internal/config"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultBusyTimeoutMS = 5000

type DB struct {
	*sql.DB
	Queries *dbgen.Queries
}

// New opens a SQLite database for the given data source name, applies
// embedded migrations, and returns a DB with queries bound to the connection.
// Foreign keys, immediate write transactions and a busy timeout are added to
// the DSN when the caller did not set them.
func New(dataSourceName string) (*DB, error) {
	return open(withSQLiteDefaults(dataSourceName, defaultBusyTimeoutMS))
}

// NewFromConfig creates the configured database directory if needed and
// opens the database the same way New does.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		busyTimeout := cfg.Database.BusyTimeoutMS
		if busyTimeout <= 0 {
			busyTimeout = defaultBusyTimeoutMS
		}
		return open(withSQLiteDefaults(cfg.Database.Filename, busyTimeout))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func open(dataSourceName string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{
		DB:      sqlDB,
		Queries: dbgen.New(sqlDB),
	}, nil
}

// withSQLiteDefaults appends _fk=1, _txlock=immediate and _busy_timeout to the
// DSN unless already present. BEGIN IMMEDIATE takes the write lock up front,
// so two processes checking the same slot cannot both pass validation.
func withSQLiteDefaults(dataSourceName string, busyTimeoutMS int) string {
	params := []struct{ key, value string }{
		{"_fk", "1"},
		{"_txlock", "immediate"},
		{"_busy_timeout", strconv.Itoa(busyTimeoutMS)},
	}
	for _, p := range params {
		if strings.Contains(dataSourceName, p.key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dataSourceName, "?") {
			sep = "&"
		}
		dataSourceName += sep + p.key + "=" + p.value
	}
	return dataSourceName
}

// runMigrations applies the embedded SQL migrations. A "no change" result is
// not treated as an error.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", source,
		"sqlite3", driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// WithTx creates a new DB instance with the given transaction
func (db *DB) WithTx(tx *sql.Tx) *DB {
	return &DB{
		DB:      db.DB,
		Queries: dbgen.New(tx),
	}
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return tx, nil
}

// RunInTx runs the given function in a transaction
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txDB := db.WithTx(tx)
	if err := fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}
