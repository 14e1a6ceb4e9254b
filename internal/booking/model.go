package booking

import (
	"time"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"

	CourtStatusAvailable = "available"

	SlotAvailable = "available"
	SlotReserved  = "reserved"

	// Shown on a reserved slot whose reservation has no notes.
	DefaultReservedNote = "reserved"
)

func IsCancelled(r dbgen.Reservation) bool {
	return r.Status == StatusCancelled
}

func DurationMinutes(r dbgen.Reservation) int64 {
	return int64(r.EndTime.Sub(r.StartTime) / time.Minute)
}

// DurationHours is the whole number of hours, rounded down.
func DurationHours(r dbgen.Reservation) int64 {
	return DurationMinutes(r) / 60
}

// IsCurrentlyBookable reports whether new reservations may be placed on the court.
func IsCurrentlyBookable(c dbgen.Court) bool {
	return c.IsAvailable && c.Status == CourtStatusAvailable
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Policy is the venue's booking configuration.
type Policy struct {
	OpenHour         int
	CloseHour        int
	Location         *time.Location
	VenueWideOverlap bool
}

func DefaultPolicy() Policy {
	return Policy{
		OpenHour:         8,
		CloseHour:        22,
		Location:         time.UTC,
		VenueWideOverlap: true,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// SlotCount is the number of one-hour slots in the operating window.
func (p Policy) SlotCount() int {
	return p.CloseHour - p.OpenHour
}

// DayStart returns venue-local midnight of the calendar day containing t.
func (p Policy) DayStart(t time.Time) time.Time {
	local := t.In(p.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.location())
}

// DayBounds returns [midnight, next midnight) of the venue-local day containing t.
func (p Policy) DayBounds(t time.Time) (time.Time, time.Time) {
	start := p.DayStart(t)
	return start, start.AddDate(0, 0, 1)
}

// ParseDate parses a YYYY-MM-DD date as a venue-local day.
func (p Policy) ParseDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, value, p.location())
	if err != nil {
		return time.Time{}, newError(ErrInvalidRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
	}
	return day, nil
}

// sameDay reports whether a and b fall on the same venue-local calendar date.
func (p Policy) sameDay(a, b time.Time) bool {
	la, lb := a.In(p.location()), b.In(p.location())
	return la.Year() == lb.Year() && la.YearDay() == lb.YearDay()
}
