// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dbPath         = flag.String("db", "", "Path to SQLite database")
		migrationsPath = flag.String("migrations", "internal/db/migrations", "Path to migrations directory")
		command        = flag.String("command", "", "Command to run (up, down, steps, force, version)")
		steps          = flag.Int("n", 0, "Step count for steps, version for force")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *dbPath == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	absMigrations, err := filepath.Abs(*migrationsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid migrations path")
	}
	if _, err := os.Stat(absMigrations); os.IsNotExist(err) {
		log.Fatal().Str("path", absMigrations).Msg("Migrations directory does not exist")
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	m, err := migrate.New(
		fmt.Sprintf("file://%s", filepath.ToSlash(absMigrations)),
		fmt.Sprintf("sqlite3://%s?_fk=1", *dbPath),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration init failed")
	}
	defer m.Close()

	if err := run(m, *command, *steps); err != nil {
		log.Error().Err(err).Str("command", *command).Msg("Migration failed")
		m.Close()
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, command string, n int) error {
	var err error
	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		if n == 0 {
			return errors.New("steps requires a non-zero -n")
		}
		err = m.Steps(n)
	case "force":
		return m.Force(n)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return verr
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current schema version")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No migrations to apply")
		return nil
	}
	if err == nil {
		log.Info().Str("command", command).Msg("Migrations applied")
	}
	return err
}
