package email

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

type sentEmail struct {
	recipient string
	subject   string
	body      string
	ctxErr    error
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{recipient: recipient, subject: subject, body: body, ctxErr: ctx.Err()})
	return f.err
}

func testDetail() dbgen.ReservationDetail {
	return dbgen.ReservationDetail{
		Reservation: dbgen.Reservation{
			ID:                 "res-1",
			UserID:             "user-1",
			CourtID:            "court-1",
			StartTime:          time.Date(2030, 3, 12, 14, 0, 0, 0, time.UTC),
			EndTime:            time.Date(2030, 3, 12, 15, 30, 0, 0, time.UTC),
			Status:             "confirmed",
			Notes:              sql.NullString{String: "doubles", Valid: true},
			CancellationReason: sql.NullString{String: "rain", Valid: true},
		},
		CourtName:     "Center Court",
		CourtLocation: "North Hall",
		UserName:      "Dana",
		UserEmail:     "dana@example.com",
	}
}

func TestNotifierConfirmation(t *testing.T) {
	sender := &fakeEmailSender{}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	notifier := NewNotifier(sender, "Riverside Tennis", loc)

	if err := notifier.ReservationConfirmed(context.Background(), testDetail()); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.recipient != "dana@example.com" {
		t.Fatalf("recipient = %q", msg.recipient)
	}
	if msg.subject != "Court Reservation Confirmed - Riverside Tennis" {
		t.Fatalf("subject = %q", msg.subject)
	}
	for _, want := range []string{"Hello Dana,", "Center Court (North Hall)", "10:00 AM - 11:30 AM EDT", "Notes: doubles"} {
		if !strings.Contains(msg.body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.body)
		}
	}
	if strings.Contains(msg.body, "Reason:") {
		t.Error("confirmation should not include a cancellation reason")
	}
}

func TestNotifierCancellationAndReminder(t *testing.T) {
	sender := &fakeEmailSender{}
	notifier := NewNotifier(sender, "", nil)

	if err := notifier.ReservationCancelled(context.Background(), testDetail()); err != nil {
		t.Fatalf("cancellation: %v", err)
	}
	if err := notifier.SendReminder(context.Background(), testDetail()); err != nil {
		t.Fatalf("reminder: %v", err)
	}

	if !strings.HasPrefix(sender.sent[0].subject, "Court Reservation Cancelled") || !strings.Contains(sender.sent[0].body, "Reason: rain") {
		t.Fatalf("unexpected cancellation email %+v", sender.sent[0])
	}
	if !strings.Contains(sender.sent[1].subject, "your venue") {
		t.Fatalf("expected default venue name, got %q", sender.sent[1].subject)
	}
	if !strings.Contains(sender.sent[1].body, "2:00 PM - 3:30 PM UTC") {
		t.Fatalf("reminder body missing UTC time range:\n%s", sender.sent[1].body)
	}
}

func TestNotifierDetachesFromCallerCancellation(t *testing.T) {
	sender := &fakeEmailSender{}
	notifier := NewNotifier(sender, "Riverside Tennis", time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := notifier.ReservationConfirmed(ctx, testDetail()); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if sender.sent[0].ctxErr != nil {
		t.Fatalf("send context should be detached, got %v", sender.sent[0].ctxErr)
	}
}

func TestNotifierSkipsMissingAddressAndWrapsErrors(t *testing.T) {
	sender := &fakeEmailSender{err: errors.New("throttled")}
	notifier := NewNotifier(sender, "Riverside Tennis", time.UTC)

	detail := testDetail()
	detail.UserEmail = " "
	if err := notifier.ReservationConfirmed(context.Background(), detail); err != nil {
		t.Fatalf("missing address should be skipped, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no email should be sent without an address")
	}

	err := notifier.ReservationConfirmed(context.Background(), testDetail())
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}

	var nilNotifier *Notifier
	if err := nilNotifier.SendReminder(context.Background(), testDetail()); err == nil {
		t.Fatal("expected error from unconfigured notifier")
	}
}

func TestSESBuildInput(t *testing.T) {
	client := &SESClient{opts: SESOptions{
		Region:           "us-east-1",
		Sender:           "bookings@courtside.example",
		ReplyTo:          "desk@courtside.example",
		ConfigurationSet: "reservations",
	}}

	input := client.buildInput("dana@example.com", "Court Reservation Confirmed", "See you on court.")
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "dana@example.com" {
		t.Fatalf("unexpected recipients %v", got)
	}
	if *input.FromEmailAddress != "bookings@courtside.example" {
		t.Fatalf("unexpected sender %q", *input.FromEmailAddress)
	}
	if len(input.ReplyToAddresses) != 1 || input.ReplyToAddresses[0] != "desk@courtside.example" {
		t.Fatalf("unexpected reply-to %v", input.ReplyToAddresses)
	}
	if input.ConfigurationSetName == nil || *input.ConfigurationSetName != "reservations" {
		t.Fatal("expected configuration set")
	}
	if *input.Content.Simple.Body.Text.Data != "See you on court." {
		t.Fatalf("unexpected body %q", *input.Content.Simple.Body.Text.Data)
	}

	bare := (&SESClient{opts: SESOptions{Sender: "bookings@courtside.example"}}).buildInput("x@example.com", "s", "b")
	if bare.ReplyToAddresses != nil || bare.ConfigurationSetName != nil {
		t.Fatal("optional fields should be unset")
	}
}
