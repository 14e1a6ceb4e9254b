package email

import (
	"fmt"
	"strings"
	"time"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

type Message struct {
	Subject string
	Body    string
}

// ReservationDetails is the reservation as it appears in an email.
type ReservationDetails struct {
	VenueName     string
	PlayerName    string
	CourtName     string
	CourtLocation string
	Date          string
	TimeRange     string
	Notes         string
	Reason        string
}

// NewReservationDetails formats detail in the venue's time zone.
func NewReservationDetails(venueName string, detail dbgen.ReservationDetail, loc *time.Location) ReservationDetails {
	if loc == nil {
		loc = time.UTC
	}
	date, timeRange := FormatDateTimeRange(detail.StartTime.In(loc), detail.EndTime.In(loc))
	return ReservationDetails{
		VenueName:     venueName,
		PlayerName:    detail.UserName,
		CourtName:     detail.CourtName,
		CourtLocation: detail.CourtLocation,
		Date:          date,
		TimeRange:     timeRange,
		Notes:         detail.Notes.String,
		Reason:        detail.CancellationReason.String,
	}
}

func FormatDateTimeRange(start, end time.Time) (string, string) {
	date := start.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s %s", start.Format("3:04 PM"), end.Format("3:04 PM"), start.Format("MST"))
	return date, timeRange
}

func BuildConfirmationEmail(details ReservationDetails) Message {
	return buildMessage(
		"Court Reservation Confirmed",
		"Your court reservation is confirmed.",
		details,
		optionalLine("Notes", details.Notes),
		"To cancel, open your reservations and choose Cancel.",
	)
}

func BuildCancellationEmail(details ReservationDetails) Message {
	return buildMessage(
		"Court Reservation Cancelled",
		"Your court reservation has been cancelled.",
		details,
		optionalLine("Reason", details.Reason),
	)
}

func BuildReminderEmail(details ReservationDetails) Message {
	return buildMessage(
		"Upcoming Court Reservation Reminder",
		"Reminder: your court reservation is coming up.",
		details,
		optionalLine("Notes", details.Notes),
	)
}

func buildMessage(subjectPrefix, intro string, details ReservationDetails, extra ...string) Message {
	venueName := orDefault(details.VenueName, "your venue")

	greeting := "Hello,"
	if name := strings.TrimSpace(details.PlayerName); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	court := orDefault(details.CourtName, "TBD")
	if location := strings.TrimSpace(details.CourtLocation); location != "" {
		court = fmt.Sprintf("%s (%s)", court, location)
	}

	lines := []string{
		greeting,
		"",
		intro,
		"",
		fmt.Sprintf("Venue: %s", venueName),
		fmt.Sprintf("Court: %s", court),
		fmt.Sprintf("Date: %s", orDefault(details.Date, "TBD")),
		fmt.Sprintf("Time: %s", orDefault(details.TimeRange, "TBD")),
	}
	for _, line := range extra {
		if line != "" {
			lines = append(lines, line)
		}
	}

	return Message{
		Subject: fmt.Sprintf("%s - %s", subjectPrefix, venueName),
		Body:    strings.Join(lines, "\n"),
	}
}

func optionalLine(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, value)
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
