package booking

import (
	"context"
	"fmt"
	"time"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const weekDays = 7

type Slot struct {
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	ReservedBy *string   `json:"reserved_by"`
	Notes      *string   `json:"notes"`
}

func (s Slot) Available() bool {
	return s.Status == SlotAvailable
}

type DayGrid struct {
	CourtID     string `json:"court_id"`
	CourtName   string `json:"court_name"`
	Date        string `json:"date"`
	TimeSlots   []Slot `json:"time_slots"`
	IsAvailable bool   `json:"is_available"`
}

type DaySummary struct {
	Date           string `json:"date"`
	IsAvailable    bool   `json:"is_available"`
	AvailableSlots int    `json:"available_slots"`
}

type ReservedSlot struct {
	ReservationID string    `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	Notes         *string   `json:"notes,omitempty"`
}

type ReservedSlots struct {
	CourtID       string         `json:"court_id"`
	CourtName     string         `json:"court_name"`
	Date          string         `json:"date"`
	ReservedSlots []ReservedSlot `json:"reserved_slots"`
}

// DayGrid builds the slot grid for a court on the venue-local day containing
// day. A zero day means today.
func (e *Engine) DayGrid(ctx context.Context, courtID string, day time.Time) (DayGrid, error) {
	court, err := e.loadCourt(ctx, courtID)
	if err != nil {
		return DayGrid{}, err
	}
	if day.IsZero() {
		day = e.clock.Now()
	}
	dayStart, dayEnd := e.policy.DayBounds(day)

	reservations, err := e.db.Queries.ListConfirmedCourtReservationsOverlapping(ctx, dbgen.ListConfirmedCourtReservationsOverlappingParams{
		CourtID: court.ID,
		From:    dayStart.UTC(),
		To:      dayEnd.UTC(),
	})
	if err != nil {
		return DayGrid{}, fmt.Errorf("list court reservations: %w", err)
	}

	slots := e.policy.BuildSlots(dayStart, reservations)
	return DayGrid{
		CourtID:     court.ID,
		CourtName:   court.Name,
		Date:        dayStart.Format(time.DateOnly),
		TimeSlots:   slots,
		IsAvailable: countAvailable(slots) > 0,
	}, nil
}

// WeeklyRollup summarises today and the following six days from a single
// fetch of confirmed reservations starting within the week.
func (e *Engine) WeeklyRollup(ctx context.Context, courtID string) ([]DaySummary, error) {
	court, err := e.loadCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	weekEnd := today.AddDate(0, 0, weekDays)

	reservations, err := e.db.Queries.ListConfirmedCourtReservationsStartingBetween(ctx, dbgen.ListConfirmedCourtReservationsStartingBetweenParams{
		CourtID: court.ID,
		From:    today.UTC(),
		To:      weekEnd.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("list weekly reservations: %w", err)
	}

	return e.policy.WeeklySummaries(today, reservations), nil
}

// ReservedSlots lists only the occupied intervals of a court on a day.
func (e *Engine) ReservedSlots(ctx context.Context, courtID string, day time.Time) (ReservedSlots, error) {
	court, err := e.loadCourt(ctx, courtID)
	if err != nil {
		return ReservedSlots{}, err
	}
	if day.IsZero() {
		day = e.clock.Now()
	}
	dayStart, dayEnd := e.policy.DayBounds(day)

	reservations, err := e.db.Queries.ListConfirmedCourtReservationsOverlapping(ctx, dbgen.ListConfirmedCourtReservationsOverlappingParams{
		CourtID: court.ID,
		From:    dayStart.UTC(),
		To:      dayEnd.UTC(),
	})
	if err != nil {
		return ReservedSlots{}, fmt.Errorf("list court reservations: %w", err)
	}

	reserved := make([]ReservedSlot, 0, len(reservations))
	for _, r := range reservations {
		slot := ReservedSlot{
			ReservationID: r.ID,
			StartTime:     r.StartTime.UTC(),
			EndTime:       r.EndTime.UTC(),
			UserID:        r.UserID,
			UserName:      r.UserName,
		}
		if r.Notes.Valid {
			notes := r.Notes.String
			slot.Notes = &notes
		}
		reserved = append(reserved, slot)
	}

	return ReservedSlots{
		CourtID:       court.ID,
		CourtName:     court.Name,
		Date:          dayStart.Format(time.DateOnly),
		ReservedSlots: reserved,
	}, nil
}

// BuildSlots partitions the operating window of the day starting at dayStart
// into one-hour slots. Each slot takes its owner from the first reservation
// that overlaps it.
func (p Policy) BuildSlots(dayStart time.Time, reservations []dbgen.ReservationDetail) []Slot {
	local := dayStart.In(p.location())
	slots := make([]Slot, 0, p.SlotCount())
	for hour := p.OpenHour; hour < p.CloseHour; hour++ {
		slotStart := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, p.location())
		slotEnd := time.Date(local.Year(), local.Month(), local.Day(), hour+1, 0, 0, 0, p.location())

		slot := Slot{
			StartTime: slotStart,
			EndTime:   slotEnd,
			Status:    SlotAvailable,
		}
		for _, r := range reservations {
			if !Overlaps(slotStart, slotEnd, r.StartTime, r.EndTime) {
				continue
			}
			owner := r.UserID
			note := DefaultReservedNote
			if r.Notes.Valid && r.Notes.String != "" {
				note = r.Notes.String
			}
			slot.Status = SlotReserved
			slot.ReservedBy = &owner
			slot.Notes = &note
			break
		}
		slots = append(slots, slot)
	}
	return slots
}

// WeeklySummaries reduces reservations to seven per-day summaries starting at
// today. A reservation counts toward the day its start falls on.
func (p Policy) WeeklySummaries(today time.Time, reservations []dbgen.ReservationDetail) []DaySummary {
	summaries := make([]DaySummary, 0, weekDays)
	for i := 0; i < weekDays; i++ {
		day := p.DayStart(today).AddDate(0, 0, i)

		var dayReservations []dbgen.ReservationDetail
		for _, r := range reservations {
			if p.sameDay(r.StartTime, day) {
				dayReservations = append(dayReservations, r)
			}
		}

		available := countAvailable(p.BuildSlots(day, dayReservations))
		summaries = append(summaries, DaySummary{
			Date:           day.Format(time.DateOnly),
			IsAvailable:    available > 0,
			AvailableSlots: available,
		})
	}
	return summaries
}

func countAvailable(slots []Slot) int {
	count := 0
	for _, s := range slots {
		if s.Available() {
			count++
		}
	}
	return count
}
