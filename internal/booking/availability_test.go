package booking

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/Courtside/internal/api/authz"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

func TestDayGridEmptyDay(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	grid, err := engine.DayGrid(context.Background(), court.ID, at(11, 0, 0))
	require.NoError(t, err)

	require.Len(t, grid.TimeSlots, 14)
	assert.Equal(t, DefaultPolicy().SlotCount(), len(grid.TimeSlots))
	assert.True(t, grid.IsAvailable)
	assert.Equal(t, "2030-03-11", grid.Date)
	assert.Equal(t, "Court 1", grid.CourtName)
	for _, slot := range grid.TimeSlots {
		assert.Equal(t, SlotAvailable, slot.Status)
		assert.Nil(t, slot.ReservedBy)
		assert.Nil(t, slot.Notes)
	}
	assert.True(t, grid.TimeSlots[0].StartTime.Equal(at(11, 8, 0)))
	assert.True(t, grid.TimeSlots[13].EndTime.Equal(at(11, 22, 0)))
}

func TestDayGridMarksOverlappingSlots(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	ctx := context.Background()
	user := seedUser(t, database, authz.RoleCustomer)
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	_, err := engine.Book(ctx, user, BookRequest{CourtID: court.ID, Start: at(11, 10, 30), End: at(11, 11, 30)})
	require.NoError(t, err)

	grid, err := engine.DayGrid(ctx, court.ID, at(11, 15, 0))
	require.NoError(t, err)

	reserved := 0
	for _, slot := range grid.TimeSlots {
		if slot.Status == SlotReserved {
			reserved++
			require.NotNil(t, slot.ReservedBy)
			assert.Equal(t, user.ID, *slot.ReservedBy)
			require.NotNil(t, slot.Notes)
			assert.Equal(t, DefaultReservedNote, *slot.Notes)
		}
	}
	assert.Equal(t, 2, reserved)
	assert.Equal(t, SlotReserved, grid.TimeSlots[2].Status)
	assert.Equal(t, SlotReserved, grid.TimeSlots[3].Status)
	assert.Equal(t, SlotAvailable, grid.TimeSlots[4].Status)
}

func TestDayGridFullyBookedDay(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	ctx := context.Background()
	user := seedUser(t, database, authz.RoleCustomer)
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	_, err := engine.Book(ctx, user, BookRequest{CourtID: court.ID, Start: at(11, 8, 0), End: at(11, 22, 0), Notes: "tournament"})
	require.NoError(t, err)

	grid, err := engine.DayGrid(ctx, court.ID, at(11, 0, 0))
	require.NoError(t, err)
	assert.False(t, grid.IsAvailable)
	require.NotNil(t, grid.TimeSlots[0].Notes)
	assert.Equal(t, "tournament", *grid.TimeSlots[0].Notes)
}

func TestDayGridIgnoresCancelledAndOtherCourts(t *testing.T) {
	policy := DefaultPolicy()
	policy.VenueWideOverlap = false
	engine, database := setupEngineTest(t, policy)
	ctx := context.Background()
	alice := seedUser(t, database, authz.RoleCustomer)
	bob := seedUser(t, database, authz.RoleCustomer)
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)
	other := seedCourt(t, database, "Court 2", true, CourtStatusAvailable)

	booked, err := engine.Book(ctx, alice, BookRequest{CourtID: court.ID, Start: at(11, 9, 0), End: at(11, 10, 0)})
	require.NoError(t, err)
	_, err = engine.Cancel(ctx, alice, booked.ID, "")
	require.NoError(t, err)
	_, err = engine.Book(ctx, bob, BookRequest{CourtID: other.ID, Start: at(11, 9, 0), End: at(11, 10, 0)})
	require.NoError(t, err)

	grid, err := engine.DayGrid(ctx, court.ID, at(11, 0, 0))
	require.NoError(t, err)
	for _, slot := range grid.TimeSlots {
		assert.Equal(t, SlotAvailable, slot.Status)
	}
}

func TestDayGridUnknownCourt(t *testing.T) {
	engine, _ := setupEngineTest(t, DefaultPolicy())

	_, err := engine.DayGrid(context.Background(), uuid.NewString(), time.Time{})
	requireBookingError(t, err, ErrNotFound, ReasonCourtNotFound)
}

func TestDayGridDefaultsToToday(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	grid, err := engine.DayGrid(context.Background(), court.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, testNow.Format(time.DateOnly), grid.Date)
}

func TestWeeklyRollup(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	ctx := context.Background()
	user := seedUser(t, database, authz.RoleCustomer)
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	_, err := engine.Book(ctx, user, BookRequest{CourtID: court.ID, Start: at(12, 10, 0), End: at(12, 12, 0)})
	require.NoError(t, err)
	// Outside the seven-day window.
	_, err = engine.Book(ctx, user, BookRequest{CourtID: court.ID, Start: at(17, 10, 0), End: at(17, 12, 0)})
	require.NoError(t, err)

	week, err := engine.WeeklyRollup(ctx, court.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)

	assert.Equal(t, "2030-03-10", week[0].Date)
	assert.Equal(t, "2030-03-16", week[6].Date)
	for i, day := range week {
		if i == 2 {
			assert.Equal(t, 12, day.AvailableSlots)
			assert.True(t, day.IsAvailable)
			continue
		}
		assert.Equal(t, 14, day.AvailableSlots, "day %s", day.Date)
	}
}

func TestWeeklySummariesUsesStartDate(t *testing.T) {
	policy := DefaultPolicy()
	today := at(10, 0, 0)
	reservations := []dbgen.ReservationDetail{
		{Reservation: dbgen.Reservation{UserID: "u1", StartTime: at(10, 21, 0), EndTime: at(11, 9, 0), Status: StatusConfirmed}},
	}

	week := policy.WeeklySummaries(today, reservations)
	require.Len(t, week, 7)
	assert.Equal(t, 13, week[0].AvailableSlots)
	// Spill-over into the next morning is not counted against that day.
	assert.Equal(t, 14, week[1].AvailableSlots)
}

func TestReservedSlots(t *testing.T) {
	engine, database := setupEngineTest(t, DefaultPolicy())
	ctx := context.Background()
	user := seedUser(t, database, authz.RoleCustomer)
	court := seedCourt(t, database, "Court 1", true, CourtStatusAvailable)

	booked, err := engine.Book(ctx, user, BookRequest{CourtID: court.ID, Start: at(11, 14, 0), End: at(11, 15, 0), Notes: "lesson"})
	require.NoError(t, err)

	result, err := engine.ReservedSlots(ctx, court.ID, at(11, 0, 0))
	require.NoError(t, err)
	require.Len(t, result.ReservedSlots, 1)

	slot := result.ReservedSlots[0]
	assert.Equal(t, booked.ID, slot.ReservationID)
	assert.Equal(t, user.ID, slot.UserID)
	assert.Equal(t, booked.UserName, slot.UserName)
	require.NotNil(t, slot.Notes)
	assert.Equal(t, "lesson", *slot.Notes)

	empty, err := engine.ReservedSlots(ctx, court.ID, at(12, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, empty.ReservedSlots)
}

func TestBuildSlotsCustomWindow(t *testing.T) {
	policy := Policy{OpenHour: 6, CloseHour: 9, Location: time.UTC}
	slots := policy.BuildSlots(at(11, 0, 0), nil)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].StartTime.Equal(at(11, 6, 0)))
}

func TestDerivedValues(t *testing.T) {
	r := dbgen.Reservation{StartTime: at(11, 10, 0), EndTime: at(11, 11, 59), Status: StatusConfirmed}
	assert.EqualValues(t, 119, DurationMinutes(r))
	assert.EqualValues(t, 1, DurationHours(r))
	assert.False(t, IsCancelled(r))

	assert.True(t, IsCurrentlyBookable(dbgen.Court{IsAvailable: true, Status: CourtStatusAvailable}))
	assert.False(t, IsCurrentlyBookable(dbgen.Court{IsAvailable: false, Status: CourtStatusAvailable}))
	assert.False(t, IsCurrentlyBookable(dbgen.Court{IsAvailable: true, Status: "maintenance", ImageUrl: sql.NullString{}}))

	assert.True(t, Overlaps(at(11, 10, 0), at(11, 11, 0), at(11, 10, 30), at(11, 11, 30)))
	assert.False(t, Overlaps(at(11, 10, 0), at(11, 11, 0), at(11, 11, 0), at(11, 12, 0)))
}

func TestPolicyParseDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	policy := Policy{OpenHour: 8, CloseHour: 22, Location: loc}

	day, err := policy.ParseDate("2030-03-11")
	require.NoError(t, err)
	start, end := policy.DayBounds(day)
	assert.Equal(t, loc, start.Location())
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, err = policy.ParseDate("11/03/2030")
	require.ErrorIs(t, err, ErrInvalidRequest)
}
