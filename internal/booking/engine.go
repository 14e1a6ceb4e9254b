package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const notifyTimeout = 30 * time.Second

// Notifier is told about reservation state changes after they commit.
// Failures are logged and never change the outcome of the operation.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, reservation dbgen.ReservationDetail) error
	ReservationCancelled(ctx context.Context, reservation dbgen.ReservationDetail) error
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Option func(*Engine)

func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithNotifiers(notifiers ...Notifier) Option {
	return func(e *Engine) {
		for _, n := range notifiers {
			if n != nil {
				e.notifiers = append(e.notifiers, n)
			}
		}
	}
}

// Engine is the reservation scheduler and availability calculator.
type Engine struct {
	db     *db.DB
	policy Policy
	clock  Clock

	// Held across validate-then-insert. Global because the venue-wide
	// overlap rule spans every court.
	bookMu sync.Mutex

	notifiers []Notifier
	notifyWG  sync.WaitGroup
}

func NewEngine(database *db.DB, policy Policy, opts ...Option) (*Engine, error) {
	if database == nil {
		return nil, errors.New("booking engine requires a database")
	}
	if policy.OpenHour < 0 || policy.CloseHour > 24 || policy.OpenHour >= policy.CloseHour {
		return nil, fmt.Errorf("invalid operating window %d-%d", policy.OpenHour, policy.CloseHour)
	}
	e := &Engine{
		db:     database,
		policy: policy,
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Today returns venue-local midnight of the current day.
func (e *Engine) Today() time.Time {
	return e.policy.DayStart(e.clock.Now())
}

type BookRequest struct {
	CourtID string
	Start   time.Time
	End     time.Time
	Notes   string
}

// Book validates and persists a confirmed reservation for requester. Checks
// run in a fixed order and any failure aborts before anything is written.
func (e *Engine) Book(ctx context.Context, requester *authz.AuthUser, req BookRequest) (dbgen.ReservationDetail, error) {
	if requester == nil {
		return dbgen.ReservationDetail{}, newError(ErrNotFound, ReasonUserNotFound, "user not found")
	}

	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Str("court_id", req.CourtID).
		Str("user_id", requester.ID).
		Time("start_time", req.Start).
		Time("end_time", req.End).
		Logger()

	start := req.Start.UTC()
	end := req.End.UTC()

	e.bookMu.Lock()
	defer e.bookMu.Unlock()

	var reservationID string
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		court, err := q.GetCourtByID(ctx, req.CourtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(ErrNotFound, ReasonCourtNotFound, "court not found")
			}
			return fmt.Errorf("load court: %w", err)
		}

		if _, err := q.GetUserByID(ctx, requester.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(ErrNotFound, ReasonUserNotFound, "user not found")
			}
			return fmt.Errorf("load user: %w", err)
		}

		if !IsCurrentlyBookable(court) {
			return newError(ErrInvalidState, ReasonCourtUnavailable, "court is not available for booking")
		}

		if !start.Before(end) {
			return newError(ErrInvalidRequest, ReasonInvalidInterval, "start time must be before end time")
		}

		_, err = q.FindConfirmedCourtOverlap(ctx, dbgen.FindConfirmedCourtOverlapParams{
			CourtID:   court.ID,
			StartTime: start,
			EndTime:   end,
		})
		if err == nil {
			return newError(ErrConflict, ReasonCourtSlotTaken, "slot already booked on this court")
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check court overlap: %w", err)
		}

		if e.policy.VenueWideOverlap {
			_, err = q.FindConfirmedOverlap(ctx, dbgen.FindConfirmedOverlapParams{
				StartTime: start,
				EndTime:   end,
			})
			if err == nil {
				return newError(ErrConflict, ReasonVenueSlotTaken, "slot already booked at this venue")
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("check venue overlap: %w", err)
			}
		}

		dayStart, dayEnd := e.policy.DayBounds(start)
		_, err = q.FindUserConfirmedStartingBetween(ctx, dbgen.FindUserConfirmedStartingBetweenParams{
			UserID: requester.ID,
			From:   dayStart.UTC(),
			To:     dayEnd.UTC(),
		})
		if err == nil {
			return newError(ErrConflict, ReasonDailyLimit, "one reservation per day")
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check daily limit: %w", err)
		}

		created, err := q.CreateReservation(ctx, dbgen.CreateReservationParams{
			ID:        uuid.NewString(),
			UserID:    requester.ID,
			CourtID:   court.ID,
			StartTime: start,
			EndTime:   end,
			Notes:     nullString(req.Notes),
			CreatedAt: e.clock.Now().UTC(),
		})
		if err != nil {
			if isOverlapTrigger(err) {
				return newError(ErrConflict, ReasonCourtSlotTaken, "slot already booked on this court")
			}
			return fmt.Errorf("create reservation: %w", err)
		}
		reservationID = created.ID
		return nil
	})
	if err != nil {
		var bookingErr *Error
		if errors.As(err, &bookingErr) {
			logger.Info().Str("reason", bookingErr.Reason).Msg("Booking rejected")
		} else {
			logger.Error().Err(err).Msg("Failed to book reservation")
		}
		return dbgen.ReservationDetail{}, err
	}

	detail, err := e.db.Queries.GetReservationDetail(ctx, reservationID)
	if err != nil {
		logger.Error().Err(err).Str("reservation_id", reservationID).Msg("Failed to load booked reservation")
		return dbgen.ReservationDetail{}, fmt.Errorf("load reservation: %w", err)
	}

	logger.Info().Str("reservation_id", reservationID).Msg("Reservation confirmed")
	e.notify(ctx, detail, Notifier.ReservationConfirmed, "confirmed")
	return detail, nil
}

// Cancel moves a confirmed reservation to cancelled. Only the owner or an
// elevated role may cancel.
func (e *Engine) Cancel(ctx context.Context, requester *authz.AuthUser, reservationID, reason string) (dbgen.ReservationDetail, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Str("reservation_id", reservationID).
		Logger()

	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		reservation, err := q.GetReservationByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(ErrNotFound, ReasonReservationNotFound, "reservation not found")
			}
			return fmt.Errorf("load reservation: %w", err)
		}
		if !authz.CanAccessOwned(requester, reservation.UserID) {
			return newError(ErrForbidden, ReasonNotOwner, "you can only cancel your own reservations")
		}
		if IsCancelled(reservation) {
			return newError(ErrInvalidState, ReasonAlreadyCancelled, "reservation is already cancelled")
		}

		rows, err := q.CancelReservation(ctx, dbgen.CancelReservationParams{
			CancellationReason: nullString(reason),
			CancelledAt:        e.clock.Now().UTC(),
			ID:                 reservation.ID,
		})
		if err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		if rows == 0 {
			return newError(ErrInvalidState, ReasonAlreadyCancelled, "reservation is already cancelled")
		}
		return nil
	})
	if err != nil {
		var bookingErr *Error
		if errors.As(err, &bookingErr) {
			logger.Info().Str("reason", bookingErr.Reason).Msg("Cancellation rejected")
		} else {
			logger.Error().Err(err).Msg("Failed to cancel reservation")
		}
		return dbgen.ReservationDetail{}, err
	}

	detail, err := e.db.Queries.GetReservationDetail(ctx, reservationID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load cancelled reservation")
		return dbgen.ReservationDetail{}, fmt.Errorf("load reservation: %w", err)
	}

	logger.Info().Msg("Reservation cancelled")
	e.notify(ctx, detail, Notifier.ReservationCancelled, "cancelled")
	return detail, nil
}

// Get returns one reservation visible to requester.
func (e *Engine) Get(ctx context.Context, requester *authz.AuthUser, reservationID string) (dbgen.ReservationDetail, error) {
	detail, err := e.db.Queries.GetReservationDetail(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.ReservationDetail{}, newError(ErrNotFound, ReasonReservationNotFound, "reservation not found")
		}
		return dbgen.ReservationDetail{}, fmt.Errorf("load reservation: %w", err)
	}
	if !authz.CanAccessOwned(requester, detail.UserID) {
		return dbgen.ReservationDetail{}, newError(ErrForbidden, ReasonNotOwner, "you can only view your own reservations")
	}
	return detail, nil
}

// ListAll returns visible reservations, newest first.
func (e *Engine) ListAll(ctx context.Context, requester *authz.AuthUser) ([]dbgen.ReservationDetail, error) {
	rows, err := e.db.Queries.ListReservationsByCreated(ctx, ownerFilter(requester))
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return rows, nil
}

// ListPast returns visible reservations starting before today, latest first.
func (e *Engine) ListPast(ctx context.Context, requester *authz.AuthUser) ([]dbgen.ReservationDetail, error) {
	rows, err := e.db.Queries.ListReservationsStartingBefore(ctx, dbgen.ListReservationsStartingBeforeParams{
		UserID: ownerFilter(requester),
		Before: e.Today().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("list past reservations: %w", err)
	}
	return rows, nil
}

// ListUpcoming returns visible reservations starting today or later, soonest first.
func (e *Engine) ListUpcoming(ctx context.Context, requester *authz.AuthUser) ([]dbgen.ReservationDetail, error) {
	rows, err := e.db.Queries.ListReservationsStartingFrom(ctx, dbgen.ListReservationsStartingFromParams{
		UserID: ownerFilter(requester),
		From:   e.Today().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("list upcoming reservations: %w", err)
	}
	return rows, nil
}

// ListByCourt returns visible reservations on a court in start order. A
// non-zero day restricts the result to reservations starting on that day.
func (e *Engine) ListByCourt(ctx context.Context, requester *authz.AuthUser, courtID string, day time.Time) ([]dbgen.ReservationDetail, error) {
	if _, err := e.loadCourt(ctx, courtID); err != nil {
		return nil, err
	}

	params := dbgen.ListCourtReservationsParams{
		CourtID: courtID,
		UserID:  ownerFilter(requester),
	}
	if !day.IsZero() {
		from, to := e.policy.DayBounds(day)
		params.From = sql.NullTime{Time: from.UTC(), Valid: true}
		params.Before = sql.NullTime{Time: to.UTC(), Valid: true}
	}

	rows, err := e.db.Queries.ListCourtReservations(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list court reservations: %w", err)
	}
	return rows, nil
}

// Wait blocks until in-flight notifications finish.
func (e *Engine) Wait() {
	e.notifyWG.Wait()
}

func (e *Engine) loadCourt(ctx context.Context, courtID string) (dbgen.Court, error) {
	court, err := e.db.Queries.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Court{}, newError(ErrNotFound, ReasonCourtNotFound, "court not found")
		}
		return dbgen.Court{}, fmt.Errorf("load court: %w", err)
	}
	return court, nil
}

func (e *Engine) notify(ctx context.Context, detail dbgen.ReservationDetail, send func(Notifier, context.Context, dbgen.ReservationDetail) error, event string) {
	if len(e.notifiers) == 0 {
		return
	}
	logger := log.Ctx(ctx).With().
		Str("reservation_id", detail.ID).
		Str("event", event).
		Logger()
	notifyCtx := context.WithoutCancel(ctx)

	for _, n := range e.notifiers {
		e.notifyWG.Add(1)
		go func(n Notifier) {
			defer e.notifyWG.Done()
			sendCtx, cancel := context.WithTimeout(notifyCtx, notifyTimeout)
			defer cancel()
			if err := send(n, sendCtx, detail); err != nil {
				logger.Error().Err(err).Msg("Failed to deliver reservation notification")
			}
		}(n)
	}
}

// ownerFilter restricts queries to the requester's own rows unless the
// requester has an elevated role.
func ownerFilter(requester *authz.AuthUser) sql.NullString {
	if requester != nil && authz.IsElevated(requester.Role) {
		return sql.NullString{}
	}
	if requester == nil {
		return sql.NullString{String: "", Valid: true}
	}
	return sql.NullString{String: requester.ID, Valid: true}
}

func isOverlapTrigger(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger {
		return true
	}
	return strings.Contains(err.Error(), "overlaps a confirmed reservation")
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
