// cmd/dbtools/setrole/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

func main() {
	var (
		configPath = flag.String("config", "config/app.yaml", "Path to the YAML configuration file")
		email      = flag.String("email", "", "Email of the account to change")
		role       = flag.String("role", "", "New role (customer, manager, admin)")
		active     = flag.String("active", "", "Optionally set the account active flag (true or false)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if strings.TrimSpace(*email) == "" || (*role == "" && *active == "") {
		flag.Usage()
		os.Exit(1)
	}
	if *role != "" && !authz.ValidRole(*role) {
		log.Fatal().Str("role", *role).Msg("Unknown role")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apply(ctx, database.Queries, strings.TrimSpace(*email), strings.ToLower(*role), *active); err != nil {
		log.Error().Err(err).Msg("Failed to update account")
		database.Close()
		os.Exit(1)
	}
	log.Info().Str("email", *email).Msg("Account updated")
}

func apply(ctx context.Context, q *dbgen.Queries, email, role, active string) error {
	user, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no account with email %s", email)
		}
		return fmt.Errorf("load account: %w", err)
	}

	if role != "" {
		if _, err := q.UpdateUserRole(ctx, dbgen.UpdateUserRoleParams{Role: role, Email: user.Email}); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
	}
	if active != "" {
		isActive, err := strconv.ParseBool(active)
		if err != nil {
			return fmt.Errorf("invalid -active value %q", active)
		}
		if _, err := q.SetUserActive(ctx, dbgen.SetUserActiveParams{IsActive: isActive, ID: user.ID}); err != nil {
			return fmt.Errorf("update active flag: %w", err)
		}
	}
	return nil
}
