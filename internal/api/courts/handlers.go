// internal/api/courts/handlers.go
package courts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/booking"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	courtstempl "github.com/codr1/Courtside/internal/templates/components/courts"
)

var (
	queries     *dbgen.Queries
	engine      *booking.Engine
	queriesOnce sync.Once
)

const (
	courtsQueryTimeout = 5 * time.Second
	maxRating          = 5
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *dbgen.Queries, e *booking.Engine) {
	if q == nil || e == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
		engine = e
	})
}

type CourtResponse struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Location             string               `json:"location"`
	Surface              string               `json:"surface"`
	IsAvailable          bool                 `json:"is_available"`
	ImageURL             *string              `json:"image_url"`
	Amenities            []string             `json:"amenities"`
	Status               string               `json:"status"`
	Rating               float64              `json:"rating"`
	Capacity             int64                `json:"capacity"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	IsCurrentlyAvailable bool                 `json:"is_currently_available"`
	WeeklyAvailability   []booking.DaySummary `json:"weekly_availability,omitempty"`
}

func newCourtResponse(court dbgen.Court) CourtResponse {
	return CourtResponse{
		ID:                   court.ID,
		Name:                 court.Name,
		Location:             court.Location,
		Surface:              court.Surface,
		IsAvailable:          court.IsAvailable,
		ImageURL:             apiutil.FromNullString(court.ImageUrl),
		Amenities:            decodeAmenities(court.Amenities),
		Status:               court.Status,
		Rating:               court.Rating,
		Capacity:             court.Capacity,
		CreatedAt:            court.CreatedAt.UTC(),
		UpdatedAt:            court.UpdatedAt.UTC(),
		IsCurrentlyAvailable: booking.IsCurrentlyBookable(court),
	}
}

type courtRequest struct {
	Name        *string   `json:"name"`
	Location    *string   `json:"location"`
	Surface     *string   `json:"surface"`
	IsAvailable *bool     `json:"is_available"`
	ImageURL    *string   `json:"image_url"`
	Amenities   *[]string `json:"amenities"`
	Status      *string   `json:"status"`
	Rating      *float64  `json:"rating"`
	Capacity    *int64    `json:"capacity"`
}

// GET /api/v1/courts
func HandleListCourts(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	var (
		rows []dbgen.Court
		err  error
	)
	if r.URL.Query().Get("available") == "true" {
		rows, err = queries.ListAvailableCourts(ctx)
	} else {
		rows, err = queries.ListCourts(ctx)
	}
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("list courts: %w", err))
		return
	}

	resp := make([]CourtResponse, 0, len(rows))
	for _, court := range rows {
		resp = append(resp, newCourtResponse(court))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write courts response")
	}
}

// POST /api/v1/courts
func HandleCreateCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	if apiutil.RequireRole(w, r, authz.RoleAdmin, authz.RoleManager) == nil {
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}

	params := dbgen.CreateCourtParams{
		ID:          uuid.NewString(),
		Capacity:    4,
		Amenities:   "[]",
		Rating:      4.5,
		IsAvailable: true,
		Status:      booking.CourtStatusAvailable,
	}
	fields := courtFields{
		Name:        &params.Name,
		Location:    &params.Location,
		Surface:     &params.Surface,
		Capacity:    &params.Capacity,
		Amenities:   &params.Amenities,
		ImageURL:    &params.ImageUrl,
		Rating:      &params.Rating,
		IsAvailable: &params.IsAvailable,
		Status:      &params.Status,
	}
	for _, required := range []struct {
		value *string
		field string
	}{{req.Name, "name"}, {req.Location, "location"}, {req.Surface, "surface"}} {
		if required.value == nil {
			apiutil.WriteError(w, r, apiutil.FieldError{Field: required.field, Reason: "is required"})
			return
		}
	}
	if err := req.apply(fields); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := queries.CreateCourt(ctx, params)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("create court: %w", err))
		return
	}

	logger.Info().Str("court_id", court.ID).Str("name", court.Name).Msg("Court created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, newCourtResponse(court)); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// GET /api/v1/courts/{id}
func HandleGetCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := loadCourt(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	weekly, err := engine.WeeklyRollup(ctx, court.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	resp := newCourtResponse(court)
	resp.WeeklyAvailability = weekly
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// PATCH /api/v1/courts/{id}
func HandleUpdateCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	if apiutil.RequireRole(w, r, authz.RoleAdmin, authz.RoleManager) == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	court, err := loadCourt(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	params := dbgen.UpdateCourtParams{
		ID:          court.ID,
		Name:        court.Name,
		Location:    court.Location,
		Surface:     court.Surface,
		Capacity:    court.Capacity,
		Amenities:   court.Amenities,
		ImageUrl:    court.ImageUrl,
		Rating:      court.Rating,
		IsAvailable: court.IsAvailable,
		Status:      court.Status,
	}
	if err := req.apply(courtFields{
		Name:        &params.Name,
		Location:    &params.Location,
		Surface:     &params.Surface,
		Capacity:    &params.Capacity,
		Amenities:   &params.Amenities,
		ImageURL:    &params.ImageUrl,
		Rating:      &params.Rating,
		IsAvailable: &params.IsAvailable,
		Status:      &params.Status,
	}); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	updated, err := queries.UpdateCourt(ctx, params)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("update court: %w", err))
		return
	}

	logger.Info().Str("court_id", updated.ID).Msg("Court updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, newCourtResponse(updated)); err != nil {
		logger.Error().Err(err).Msg("Failed to write court response")
	}
}

// DELETE /api/v1/courts/{id}
func HandleDeleteCourt(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	if apiutil.RequireRole(w, r, authz.RoleAdmin) == nil {
		return
	}
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	if _, err := loadCourt(ctx, courtID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	count, err := queries.CountCourtReservations(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("count court reservations: %w", err))
		return
	}
	if count > 0 {
		apiutil.WriteError(w, r, apiutil.HandlerError{
			Status:  http.StatusConflict,
			Message: "court has reservations and cannot be deleted",
		})
		return
	}

	deleted, err := queries.DeleteCourt(ctx, courtID)
	if err != nil {
		apiutil.WriteError(w, r, fmt.Errorf("delete court: %w", err))
		return
	}
	if deleted == 0 {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "court not found"})
		return
	}

	logger.Info().Str("court_id", courtID).Msg("Court deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/courts/{id}/availability
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	courtID, day, ok := courtAndDay(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	grid, err := engine.DayGrid(ctx, courtID, day)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, grid); err != nil {
		logger.Error().Err(err).Msg("Failed to write availability response")
	}
}

// GET /api/v1/courts/{id}/reserved-slots
func HandleReservedSlots(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if !ready(w, r) {
		return
	}
	courtID, day, ok := courtAndDay(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	reserved, err := engine.ReservedSlots(ctx, courtID, day)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, reserved); err != nil {
		logger.Error().Err(err).Msg("Failed to write reserved slots response")
	}
}

// GET /courts/{id}/calendar
func HandleCalendarPage(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().
		Str("path", r.URL.Path).
		Msg("Handling court calendar page request")

	if !ready(w, r) {
		return
	}
	courtID, day, ok := courtAndDay(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	grid, err := engine.DayGrid(ctx, courtID, day)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			http.Error(w, "Court not found", http.StatusNotFound)
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to build day grid")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page := courtstempl.Page(courtstempl.NewCalendarData(grid, engine.Policy().Location))
	apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render court calendar", "Failed to render page")
}

type courtFields struct {
	Name        *string
	Location    *string
	Surface     *string
	Capacity    *int64
	Amenities   *string
	ImageURL    *sql.NullString
	Rating      *float64
	IsAvailable *bool
	Status      *string
}

// apply validates the fields present in req and writes them into dst.
func (req courtRequest) apply(dst courtFields) error {
	if req.Name != nil {
		name, err := apiutil.RequiredString(*req.Name, "name")
		if err != nil {
			return err
		}
		*dst.Name = name
	}
	if req.Location != nil {
		location, err := apiutil.RequiredString(*req.Location, "location")
		if err != nil {
			return err
		}
		*dst.Location = location
	}
	if req.Surface != nil {
		surface, err := apiutil.RequiredString(*req.Surface, "surface")
		if err != nil {
			return err
		}
		*dst.Surface = strings.ToLower(surface)
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return apiutil.FieldError{Field: "capacity", Reason: "must be at least 1"}
		}
		*dst.Capacity = *req.Capacity
	}
	if req.Rating != nil {
		if *req.Rating < 0 || *req.Rating > maxRating {
			return apiutil.FieldError{Field: "rating", Reason: "must be between 0 and 5"}
		}
		*dst.Rating = *req.Rating
	}
	if req.Status != nil {
		status, err := apiutil.RequiredString(*req.Status, "status")
		if err != nil {
			return err
		}
		*dst.Status = status
	}
	if req.IsAvailable != nil {
		*dst.IsAvailable = *req.IsAvailable
	}
	if req.ImageURL != nil {
		*dst.ImageURL = apiutil.ToNullString(req.ImageURL)
	}
	if req.Amenities != nil {
		encoded, err := encodeAmenities(*req.Amenities)
		if err != nil {
			return err
		}
		*dst.Amenities = encoded
	}
	return nil
}

func encodeAmenities(amenities []string) (string, error) {
	cleaned := make([]string, 0, len(amenities))
	for _, amenity := range amenities {
		amenity = strings.TrimSpace(amenity)
		if amenity == "" {
			return "", apiutil.FieldError{Field: "amenities", Reason: "must not contain empty values"}
		}
		cleaned = append(cleaned, amenity)
	}
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return "", fmt.Errorf("encode amenities: %w", err)
	}
	return string(encoded), nil
}

func decodeAmenities(raw string) []string {
	amenities := []string{}
	if strings.TrimSpace(raw) == "" {
		return amenities
	}
	if err := json.Unmarshal([]byte(raw), &amenities); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed court amenities")
		return []string{}
	}
	return amenities
}

func courtAndDay(w http.ResponseWriter, r *http.Request) (string, time.Time, bool) {
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return "", time.Time{}, false
	}
	day, err := apiutil.OptionalDate(r, engine.Policy().Location)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return "", time.Time{}, false
	}
	return courtID, day, true
}

func loadCourt(ctx context.Context, courtID string) (dbgen.Court, error) {
	court, err := queries.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Court{}, apiutil.HandlerError{Status: http.StatusNotFound, Message: "court not found", Err: err}
		}
		return dbgen.Court{}, fmt.Errorf("load court: %w", err)
	}
	return court, nil
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if queries == nil || engine == nil {
		log.Ctx(r.Context()).Error().Msg("Court handlers not initialized")
		apiutil.WriteError(w, r, errors.New("court handlers not initialized"))
		return false
	}
	return true
}
