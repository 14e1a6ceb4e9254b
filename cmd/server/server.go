// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api"
	"github.com/codr1/Courtside/internal/api/auth"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/api/courts"
	"github.com/codr1/Courtside/internal/api/reservations"
	"github.com/codr1/Courtside/internal/api/users"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/email"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/ratelimit"
	"github.com/codr1/Courtside/internal/scheduler"
)

// app owns the server and everything that must be released on shutdown.
type app struct {
	server    *http.Server
	database  *db.DB
	engine    *booking.Engine
	limiter   *ratelimit.Limiter
	publisher *events.Publisher
	// scheduled is set once the reminder job is registered.
	scheduled bool

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	lockout, err := cfg.LoginLockout()
	if err != nil {
		return nil, err
	}

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{database: database}

	var notifiers []booking.Notifier
	var mailer *email.Notifier
	if cfg.Features.EnableEmail {
		client, err := email.NewSESClient(ctx, email.SESOptions{
			Region:           cfg.Email.Region,
			Sender:           cfg.Email.Sender,
			ReplyTo:          cfg.Email.ReplyTo,
			ConfigurationSet: cfg.Email.ConfigurationSet,
			AccessKeyID:      cfg.Email.AccessKeyID,
			SecretAccessKey:  cfg.Email.SecretAccessKey,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create email client: %w", err)
		}
		mailer = email.NewNotifier(client, cfg.App.Name, loc)
		notifiers = append(notifiers, mailer)
	}
	if cfg.Features.EnableEvents {
		publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		a.publisher = publisher
		notifiers = append(notifiers, events.NewReservationNotifier(publisher))
	}

	policy := booking.Policy{
		OpenHour:         cfg.Booking.OpenHour,
		CloseHour:        cfg.Booking.CloseHour,
		Location:         loc,
		VenueWideOverlap: *cfg.Booking.VenueWideOverlap,
	}
	engine, err := booking.NewEngine(database, policy, booking.WithNotifiers(notifiers...))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create booking engine: %w", err)
	}
	a.engine = engine

	a.limiter = ratelimit.New(&ratelimit.Config{
		LoginMaxAttempts:     cfg.Auth.LoginMaxAttempts,
		LoginLockout:         lockout,
		LoginMaxIPPerHour:    cfg.Auth.LoginMaxIPPerHour,
		RegisterMaxIPPerHour: ratelimit.DefaultConfig().RegisterMaxIPPerHour,
	})

	if err := auth.InitHandlers(database.Queries, cfg, a.limiter); err != nil {
		a.Close()
		return nil, fmt.Errorf("init auth handlers: %w", err)
	}
	users.InitHandlers(database.Queries)
	courts.InitHandlers(database.Queries, engine)
	reservations.InitHandlers(engine)

	if cfg.Features.EnableReminders {
		if mailer == nil {
			log.Warn().Msg("Reminders enabled without email; reminder job not registered")
		} else {
			if err := scheduler.Init(loc); err != nil {
				a.Close()
				return nil, fmt.Errorf("init scheduler: %w", err)
			}
			if err := scheduler.RegisterReminderJobs(database.Queries, mailer, cfg.Reminders); err != nil {
				a.Close()
				return nil, fmt.Errorf("register reminder jobs: %w", err)
			}
			a.scheduled = true
		}
	}

	a.server = newServer(cfg)
	return a, nil
}

// Close waits for in-flight notifications before releasing resources.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.engine != nil {
			a.engine.Wait()
		}
		if a.limiter != nil {
			a.limiter.Close()
		}
		if a.publisher != nil {
			if err := a.publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close event publisher")
			}
		}
		if a.database != nil {
			if err := a.database.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close database")
			}
		}
	})
}

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithAuth,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	elevated := api.WithRole(authz.RoleAdmin, authz.RoleManager)
	adminOnly := api.WithRole(authz.RoleAdmin)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Account routes
	mux.HandleFunc("POST /api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("GET /api/v1/auth/me", auth.HandleMe)
	mux.HandleFunc("PATCH /api/v1/auth/me", auth.HandleUpdateMe)
	mux.HandleFunc("POST /api/v1/auth/password", auth.HandleChangePassword)

	// User routes
	mux.Handle("GET /api/v1/users", elevated(http.HandlerFunc(users.HandleListUsers)))
	mux.HandleFunc("GET /api/v1/users/{id}", users.HandleGetUser)

	// Court routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleListCourts)
	mux.Handle("POST /api/v1/courts", elevated(http.HandlerFunc(courts.HandleCreateCourt)))
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGetCourt)
	mux.Handle("PATCH /api/v1/courts/{id}", elevated(http.HandlerFunc(courts.HandleUpdateCourt)))
	mux.Handle("DELETE /api/v1/courts/{id}", adminOnly(http.HandlerFunc(courts.HandleDeleteCourt)))
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/reserved-slots", courts.HandleReservedSlots)
	mux.HandleFunc("GET /courts/{id}/calendar", courts.HandleCalendarPage)

	// Reservation routes
	mux.HandleFunc("POST /api/v1/reservations", reservations.HandleReservationCreate)
	mux.HandleFunc("GET /api/v1/reservations", reservations.HandleReservationsList)
	mux.HandleFunc("GET /api/v1/reservations/past", reservations.HandlePastReservations)
	mux.HandleFunc("GET /api/v1/reservations/upcoming", reservations.HandleUpcomingReservations)
	mux.HandleFunc("GET /api/v1/reservations/court/{courtId}", reservations.HandleCourtReservations)
	mux.HandleFunc("GET /api/v1/reservations/{id}", reservations.HandleReservationGet)
	mux.HandleFunc("PATCH /api/v1/reservations/{id}/cancel", reservations.HandleReservationCancel)
}
