// internal/api/reservations/handlers.go
package reservations

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/booking"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

var (
	engine     *booking.Engine
	engineOnce sync.Once
)

const reservationQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
	})
}

type CourtSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Surface  string `json:"surface"`
}

type ReservationResponse struct {
	ID                 string       `json:"id"`
	UserID             string       `json:"user_id"`
	UserName           string       `json:"user_name"`
	CourtID            string       `json:"court_id"`
	Court              CourtSummary `json:"court"`
	StartTime          time.Time    `json:"start_time"`
	EndTime            time.Time    `json:"end_time"`
	Status             string       `json:"status"`
	Notes              *string      `json:"notes"`
	CancellationReason *string      `json:"cancellation_reason"`
	CancelledAt        *time.Time   `json:"cancelled_at"`
	CreatedAt          time.Time    `json:"created_at"`
	DurationInMinutes  int64        `json:"duration_in_minutes"`
	DurationInHours    int64        `json:"duration_in_hours"`
	IsCancelled        bool         `json:"is_cancelled"`
}

func newReservationResponse(detail dbgen.ReservationDetail) ReservationResponse {
	return ReservationResponse{
		ID:       detail.ID,
		UserID:   detail.UserID,
		UserName: detail.UserName,
		CourtID:  detail.CourtID,
		Court: CourtSummary{
			ID:       detail.CourtID,
			Name:     detail.CourtName,
			Location: detail.CourtLocation,
			Surface:  detail.CourtSurface,
		},
		StartTime:          detail.StartTime.UTC(),
		EndTime:            detail.EndTime.UTC(),
		Status:             detail.Status,
		Notes:              apiutil.FromNullString(detail.Notes),
		CancellationReason: apiutil.FromNullString(detail.CancellationReason),
		CancelledAt:        apiutil.FromNullTime(detail.CancelledAt),
		CreatedAt:          detail.CreatedAt.UTC(),
		DurationInMinutes:  booking.DurationMinutes(detail.Reservation),
		DurationInHours:    booking.DurationHours(detail.Reservation),
		IsCancelled:        booking.IsCancelled(detail.Reservation),
	}
}

func newReservationList(rows []dbgen.ReservationDetail) []ReservationResponse {
	resp := make([]ReservationResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, newReservationResponse(row))
	}
	return resp
}

type createReservationRequest struct {
	CourtID   string  `json:"court_id"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Notes     *string `json:"notes"`
}

type cancelReservationRequest struct {
	CancellationReason *string `json:"cancellation_reason"`
}

// POST /api/v1/reservations
func HandleReservationCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req createReservationRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}

	courtID, err := apiutil.RequiredString(req.CourtID, "court_id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	startTime, err := apiutil.ParseTimestampField(req.StartTime, "start_time")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	endTime, err := apiutil.ParseTimestampField(req.EndTime, "end_time")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	notes := ""
	if req.Notes != nil {
		notes = *req.Notes
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	detail, err := engine.Book(ctx, user, booking.BookRequest{
		CourtID: courtID,
		Start:   startTime,
		End:     endTime,
		Notes:   notes,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, newReservationResponse(detail)); err != nil {
		logger.Error().Err(err).Str("reservation_id", detail.ID).Msg("Failed to write reservation response")
	}
}

// GET /api/v1/reservations
func HandleReservationsList(w http.ResponseWriter, r *http.Request) {
	listReservations(w, r, engine.ListAll)
}

// GET /api/v1/reservations/past
func HandlePastReservations(w http.ResponseWriter, r *http.Request) {
	listReservations(w, r, engine.ListPast)
}

// GET /api/v1/reservations/upcoming
func HandleUpcomingReservations(w http.ResponseWriter, r *http.Request) {
	listReservations(w, r, engine.ListUpcoming)
}

// GET /api/v1/reservations/court/{courtId}
func HandleCourtReservations(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "courtId")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	day, err := apiutil.OptionalDate(r, engine.Policy().Location)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	rows, err := engine.ListByCourt(ctx, user, courtID, day)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newReservationList(rows)); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservations response")
	}
}

// GET /api/v1/reservations/{id}
func HandleReservationGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	detail, err := engine.Get(ctx, user, reservationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newReservationResponse(detail)); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservation response")
	}
}

// PATCH /api/v1/reservations/{id}/cancel
func HandleReservationCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	reservationID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	// The body is optional.
	var req cancelReservationRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}
	reason := ""
	if req.CancellationReason != nil {
		reason = strings.TrimSpace(*req.CancellationReason)
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	detail, err := engine.Cancel(ctx, user, reservationID, reason)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newReservationResponse(detail)); err != nil {
		logger.Error().Err(err).Str("reservation_id", detail.ID).Msg("Failed to write reservation response")
	}
}

type listFunc func(context.Context, *authz.AuthUser) ([]dbgen.ReservationDetail, error)

func listReservations(w http.ResponseWriter, r *http.Request, list listFunc) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reservationQueryTimeout)
	defer cancel()

	rows, err := list(ctx, user)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newReservationList(rows)); err != nil {
		logger.Error().Err(err).Msg("Failed to write reservations response")
	}
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Reservation handlers not initialized")
		apiutil.WriteError(w, r, errors.New("reservation handlers not initialized"))
		return false
	}
	return true
}
