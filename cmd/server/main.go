// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Features.EnableDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.App.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

func main() {
	configPath := flag.String("config", "config/app.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	defer app.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", app.server.Addr).Msg("Starting server")
		if err := app.server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if app.scheduled {
		g.Go(func() error {
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			<-ctx.Done()
			if err := scheduler.Stop(); err != nil {
				return fmt.Errorf("stop scheduler: %w", err)
			}
			return nil
		})
	}

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		app.Close()
		os.Exit(1)
	}
}
