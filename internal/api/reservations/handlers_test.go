package reservations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/testutil"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2030, 3, 10, 7, 0, 0, 0, time.UTC)

func setupReservationsTest(t *testing.T) *db.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	e, err := booking.NewEngine(database, booking.DefaultPolicy(), booking.WithClock(fixedClock{now: testNow}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	engine = nil
	engineOnce = sync.Once{}
	InitHandlers(e)
	t.Cleanup(func() {
		engine = nil
		engineOnce = sync.Once{}
	})
	return database
}

func seedUser(t *testing.T, database *db.DB, role string) *authz.AuthUser {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		ID:           id,
		Name:         "Player " + id[:4],
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &authz.AuthUser{ID: id, Role: role}
}

func seedCourt(t *testing.T, database *db.DB, name string) string {
	t.Helper()
	court, err := database.Queries.CreateCourt(context.Background(), dbgen.CreateCourtParams{
		ID:          uuid.NewString(),
		Name:        name,
		Location:    "North Hall",
		Surface:     "hard",
		Capacity:    4,
		Amenities:   "[]",
		Rating:      4.5,
		IsAvailable: true,
		Status:      booking.CourtStatusAvailable,
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court.ID
}

type requestOpts struct {
	body   string
	user   *authz.AuthUser
	values map[string]string
}

func serve(t *testing.T, handler http.HandlerFunc, method, target string, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if opts.body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(opts.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for key, value := range opts.values {
		req.SetPathValue(key, value)
	}
	if opts.user != nil {
		req = req.WithContext(authz.ContextWithUser(req.Context(), opts.user))
	}
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func book(t *testing.T, user *authz.AuthUser, courtID, start, end string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"court_id":%q,"start_time":%q,"end_time":%q,"notes":"doubles"}`, courtID, start, end)
	return serve(t, HandleReservationCreate, http.MethodPost, "/api/v1/reservations", requestOpts{body: body, user: user})
}

func decodeReservation(t *testing.T, recorder *httptest.ResponseRecorder) ReservationResponse {
	t.Helper()
	var resp ReservationResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	return resp
}

func decodeErrorBody(t *testing.T, recorder *httptest.ResponseRecorder) apiutil.ErrorBody {
	t.Helper()
	var body apiutil.ErrorBody
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCreateReservation(t *testing.T) {
	database := setupReservationsTest(t)
	user := seedUser(t, database, authz.RoleCustomer)
	courtID := seedCourt(t, database, "Center Court")

	recorder := book(t, user, courtID, "2030-03-12T10:00:00Z", "2030-03-12T11:30:00Z")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeReservation(t, recorder)
	if resp.Status != booking.StatusConfirmed || resp.UserID != user.ID || resp.Court.Name != "Center Court" {
		t.Fatalf("unexpected reservation %+v", resp)
	}
	if resp.DurationInMinutes != 90 || resp.DurationInHours != 1 || resp.IsCancelled {
		t.Fatalf("unexpected derived values %+v", resp)
	}
	if resp.Notes == nil || *resp.Notes != "doubles" {
		t.Fatalf("notes = %v", resp.Notes)
	}
}

func TestCreateReservationErrors(t *testing.T) {
	database := setupReservationsTest(t)
	user := seedUser(t, database, authz.RoleCustomer)
	other := seedUser(t, database, authz.RoleCustomer)
	courtID := seedCourt(t, database, "Center Court")

	if recorder := book(t, user, courtID, "2030-03-12T10:00:00Z", "2030-03-12T11:00:00Z"); recorder.Code != http.StatusCreated {
		t.Fatalf("seed booking status %d", recorder.Code)
	}

	tests := []struct {
		name   string
		user   *authz.AuthUser
		court  string
		start  string
		end    string
		status int
		reason string
	}{
		{"overlap", other, courtID, "2030-03-12T10:30:00Z", "2030-03-12T11:30:00Z", http.StatusConflict, booking.ReasonCourtSlotTaken},
		{"daily limit", user, courtID, "2030-03-12T18:00:00Z", "2030-03-12T19:00:00Z", http.StatusConflict, booking.ReasonDailyLimit},
		{"inverted interval", other, courtID, "2030-03-13T11:00:00Z", "2030-03-13T10:00:00Z", http.StatusBadRequest, booking.ReasonInvalidInterval},
		{"unknown court", other, uuid.NewString(), "2030-03-13T10:00:00Z", "2030-03-13T11:00:00Z", http.StatusNotFound, booking.ReasonCourtNotFound},
		{"bad timestamp", other, courtID, "tomorrow", "2030-03-13T11:00:00Z", http.StatusBadRequest, "invalid_field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := book(t, tt.user, tt.court, tt.start, tt.end)
			if recorder.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", recorder.Code, tt.status, recorder.Body.String())
			}
			if body := decodeErrorBody(t, recorder); body.Reason != tt.reason {
				t.Fatalf("reason %q, want %q", body.Reason, tt.reason)
			}
		})
	}

	recorder := serve(t, HandleReservationCreate, http.MethodPost, "/api/v1/reservations", requestOpts{
		body: fmt.Sprintf(`{"court_id":%q,"start_time":"2030-03-14T10:00:00Z","end_time":"2030-03-14T11:00:00Z"}`, courtID),
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status %d, want 401", recorder.Code)
	}
}

func TestListReservationsScopedAndSplit(t *testing.T) {
	database := setupReservationsTest(t)
	user := seedUser(t, database, authz.RoleCustomer)
	other := seedUser(t, database, authz.RoleCustomer)
	manager := seedUser(t, database, authz.RoleManager)
	courtID := seedCourt(t, database, "Center Court")

	book(t, user, courtID, "2030-03-08T10:00:00Z", "2030-03-08T11:00:00Z")
	book(t, user, courtID, "2030-03-12T10:00:00Z", "2030-03-12T11:00:00Z")
	book(t, other, courtID, "2030-03-13T10:00:00Z", "2030-03-13T11:00:00Z")

	list := func(handler http.HandlerFunc, who *authz.AuthUser) []ReservationResponse {
		recorder := serve(t, handler, http.MethodGet, "/api/v1/reservations", requestOpts{user: who})
		if recorder.Code != http.StatusOK {
			t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
		}
		var rows []ReservationResponse
		if err := json.NewDecoder(recorder.Body).Decode(&rows); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return rows
	}

	if rows := list(HandleReservationsList, user); len(rows) != 2 {
		t.Fatalf("customer sees %d reservations, want 2", len(rows))
	}
	if rows := list(HandleReservationsList, manager); len(rows) != 3 {
		t.Fatalf("manager sees %d reservations, want 3", len(rows))
	}

	past := list(HandlePastReservations, user)
	if len(past) != 1 || !past[0].StartTime.Equal(time.Date(2030, 3, 8, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected past reservations %+v", past)
	}
	upcoming := list(HandleUpcomingReservations, manager)
	if len(upcoming) != 2 || upcoming[0].StartTime.After(upcoming[1].StartTime) {
		t.Fatalf("upcoming should be two reservations in start order, got %+v", upcoming)
	}
}

func TestCourtReservations(t *testing.T) {
	database := setupReservationsTest(t)
	user := seedUser(t, database, authz.RoleCustomer)
	courtID := seedCourt(t, database, "Center Court")

	book(t, user, courtID, "2030-03-12T10:00:00Z", "2030-03-12T11:00:00Z")
	book(t, user, courtID, "2030-03-13T10:00:00Z", "2030-03-13T11:00:00Z")

	recorder := serve(t, HandleCourtReservations, http.MethodGet,
		"/api/v1/reservations/court/"+courtID+"?date=2030-03-13",
		requestOpts{user: user, values: map[string]string{"courtId": courtID}})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
	var rows []ReservationResponse
	if err := json.NewDecoder(recorder.Body).Decode(&rows); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(rows) != 1 || rows[0].StartTime.Day() != 13 {
		t.Fatalf("unexpected court reservations %+v", rows)
	}

	missing := uuid.NewString()
	recorder = serve(t, HandleCourtReservations, http.MethodGet, "/api/v1/reservations/court/"+missing,
		requestOpts{user: user, values: map[string]string{"courtId": missing}})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("missing court status %d, want 404", recorder.Code)
	}
}

func TestGetAndCancelReservation(t *testing.T) {
	database := setupReservationsTest(t)
	owner := seedUser(t, database, authz.RoleCustomer)
	stranger := seedUser(t, database, authz.RoleCustomer)
	courtID := seedCourt(t, database, "Center Court")

	created := decodeReservation(t, book(t, owner, courtID, "2030-03-12T10:00:00Z", "2030-03-12T11:00:00Z"))
	idPath := map[string]string{"id": created.ID}

	recorder := serve(t, HandleReservationGet, http.MethodGet, "/api/v1/reservations/"+created.ID,
		requestOpts{user: stranger, values: idPath})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("stranger get status %d, want 403", recorder.Code)
	}

	recorder = serve(t, HandleReservationCancel, http.MethodPatch, "/api/v1/reservations/"+created.ID+"/cancel",
		requestOpts{user: stranger, values: idPath})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("stranger cancel status %d, want 403", recorder.Code)
	}

	recorder = serve(t, HandleReservationCancel, http.MethodPatch, "/api/v1/reservations/"+created.ID+"/cancel",
		requestOpts{user: owner, values: idPath, body: `{"cancellation_reason":"rain"}`})
	if recorder.Code != http.StatusOK {
		t.Fatalf("cancel status %d: %s", recorder.Code, recorder.Body.String())
	}
	cancelled := decodeReservation(t, recorder)
	if !cancelled.IsCancelled || cancelled.CancelledAt == nil || cancelled.CancellationReason == nil || *cancelled.CancellationReason != "rain" {
		t.Fatalf("unexpected cancelled reservation %+v", cancelled)
	}

	recorder = serve(t, HandleReservationCancel, http.MethodPatch, "/api/v1/reservations/"+created.ID+"/cancel",
		requestOpts{user: owner, values: idPath})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second cancel status %d, want 422", recorder.Code)
	}
	if body := decodeErrorBody(t, recorder); body.Reason != booking.ReasonAlreadyCancelled {
		t.Fatalf("reason %q", body.Reason)
	}

	recorder = serve(t, HandleReservationGet, http.MethodGet, "/api/v1/reservations/"+created.ID,
		requestOpts{user: owner, values: idPath})
	got := decodeReservation(t, recorder)
	if !got.CancelledAt.Equal(*cancelled.CancelledAt) {
		t.Fatalf("cancelled_at changed from %v to %v", cancelled.CancelledAt, got.CancelledAt)
	}

	missing := uuid.NewString()
	recorder = serve(t, HandleReservationGet, http.MethodGet, "/api/v1/reservations/"+missing,
		requestOpts{user: owner, values: map[string]string{"id": missing}})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("missing reservation status %d, want 404", recorder.Code)
	}
}
