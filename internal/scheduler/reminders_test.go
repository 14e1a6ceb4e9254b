package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/testutil"
)

type recordingSender struct {
	sent   []string
	failID string
}

func (s *recordingSender) SendReminder(_ context.Context, detail dbgen.ReservationDetail) error {
	if detail.ID == s.failID {
		return errors.New("mailbox full")
	}
	s.sent = append(s.sent, detail.ID)
	return nil
}

func seedReservation(t *testing.T, database *db.DB, userID, courtID string, start time.Time) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Queries.CreateReservation(context.Background(), dbgen.CreateReservationParams{
		ID:        id,
		UserID:    userID,
		CourtID:   courtID,
		StartTime: start.UTC(),
		EndTime:   start.Add(time.Hour).UTC(),
		CreatedAt: start.Add(-48 * time.Hour).UTC(),
	}); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return id
}

func TestSendDueReminders(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	userID := uuid.NewString()
	if _, err := database.Queries.CreateUser(ctx, dbgen.CreateUserParams{
		ID: userID, Name: "Dana", Email: "dana@example.com", PasswordHash: "x", Role: "customer",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	courts := make([]string, 4)
	for i := range courts {
		courts[i] = uuid.NewString()
		if _, err := database.Queries.CreateCourt(ctx, dbgen.CreateCourtParams{
			ID: courts[i], Name: "Court", Location: "North", Surface: "hard",
			Capacity: 4, Amenities: "[]", Rating: 4.5, IsAvailable: true, Status: "available",
		}); err != nil {
			t.Fatalf("seed court: %v", err)
		}
	}

	now := time.Date(2030, 3, 10, 10, 0, 0, 0, time.UTC)
	inWindow := seedReservation(t, database, userID, courts[0], now.Add(24*time.Hour+5*time.Minute))
	failing := seedReservation(t, database, userID, courts[1], now.Add(24*time.Hour+10*time.Minute))
	seedReservation(t, database, userID, courts[2], now.Add(24*time.Hour+15*time.Minute))

	cancelled := seedReservation(t, database, userID, courts[3], now.Add(24*time.Hour))
	if _, err := database.Queries.CancelReservation(ctx, dbgen.CancelReservationParams{ID: cancelled, CancelledAt: now}); err != nil {
		t.Fatalf("cancel reservation: %v", err)
	}

	sender := &recordingSender{failID: failing}
	sent, err := SendDueReminders(ctx, database.Queries, sender, now, 24*time.Hour, 15*time.Minute)
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if sent != 1 || len(sender.sent) != 1 || sender.sent[0] != inWindow {
		t.Fatalf("expected only %s reminded, got %v (sent=%d)", inWindow, sender.sent, sent)
	}
}

func TestReminderWindow(t *testing.T) {
	now := time.Date(2030, 3, 10, 10, 7, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"*/15 * * * *": 15 * time.Minute,
		"0 * * * *":    time.Hour,
		"*/5 * * * *":  5 * time.Minute,
		"not a cron":   defaultReminderWindow,
	}
	for expr, want := range tests {
		if got := ReminderWindow(expr, now); got != want {
			t.Errorf("ReminderWindow(%q) = %v, want %v", expr, got, want)
		}
	}
}
