package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/config"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const (
	reminderJobName       = "reservation_reminders"
	defaultReminderWindow = 15 * time.Minute
	reminderJobTimeout    = 2 * time.Minute
)

// ReminderSender delivers one reminder for an upcoming reservation.
type ReminderSender interface {
	SendReminder(ctx context.Context, detail dbgen.ReservationDetail) error
}

// RegisterReminderJobs registers the scheduled reservation reminder task.
func RegisterReminderJobs(q *dbgen.Queries, sender ReminderSender, cfg config.RemindersConfig) error {
	if q == nil {
		return fmt.Errorf("reminder jobs require queries")
	}
	if sender == nil {
		return fmt.Errorf("reminder jobs require a sender")
	}

	jobLogger := log.With().
		Str("component", "reservation_reminders_job").
		Str("job_name", reminderJobName).
		Str("cron", cfg.Cron).
		Logger()
	lead := time.Duration(cfg.HoursBefore) * time.Hour

	_, err := AddJob(reminderJobName, cfg.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		now := time.Now().UTC()
		sent, err := SendDueReminders(ctx, q, sender, now, lead, ReminderWindow(cfg.Cron, now))
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to load reservations for reminder job")
			return
		}
		if sent > 0 {
			jobLogger.Info().Int("sent", sent).Msg("Reservation reminders sent")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add reservation reminder job: %w", err)
	}

	jobLogger.Info().Dur("lead", lead).Msg("Reservation reminder job registered")
	return nil
}

// SendDueReminders sends a reminder for every confirmed reservation starting in
// [now+lead, now+lead+window). Individual send failures are logged and skipped.
// It returns the number of reminders delivered.
func SendDueReminders(ctx context.Context, q *dbgen.Queries, sender ReminderSender, now time.Time, lead, window time.Duration) (int, error) {
	windowStart := now.Add(lead).UTC()
	windowEnd := windowStart.Add(window)

	reservations, err := q.ListConfirmedReservationsStartingBetween(ctx, dbgen.ListConfirmedReservationsStartingBetweenParams{
		From: windowStart,
		To:   windowEnd,
	})
	if err != nil {
		return 0, err
	}

	logger := log.Ctx(ctx)
	sent := 0
	for _, reservation := range reservations {
		if err := sender.SendReminder(ctx, reservation); err != nil {
			logger.Error().Err(err).Str("reservation_id", reservation.ID).Msg("Failed to send reminder email")
			continue
		}
		sent++
	}
	return sent, nil
}

// ReminderWindow is the spacing between consecutive runs of cronExpr after
// now, so that successive runs cover adjacent windows.
func ReminderWindow(cronExpr string, now time.Time) time.Duration {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return defaultReminderWindow
	}
	first := schedule.Next(now)
	window := schedule.Next(first).Sub(first)
	if window <= 0 {
		return defaultReminderWindow
	}
	return window
}
