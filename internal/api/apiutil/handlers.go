package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/booking"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError maps err to a status code and writes the JSON error body.
// Unrecognised errors are logged and reported as 500 without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	if writeErr := WriteJSON(w, status, body); writeErr != nil {
		log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func errorResponse(err error) (int, ErrorBody) {
	var bookingErr *booking.Error
	if errors.As(err, &bookingErr) {
		status := StatusForKind(bookingErr)
		return status, ErrorBody{
			Error:   booking.KindCode(bookingErr),
			Reason:  bookingErr.Reason,
			Message: bookingErr.Message,
		}
	}

	var handlerErr HandlerError
	if errors.As(err, &handlerErr) {
		return handlerErr.Status, ErrorBody{
			Error:   codeForStatus(handlerErr.Status),
			Message: handlerErr.Message,
		}
	}

	var fieldErr FieldError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, ErrorBody{
			Error:   codeForStatus(http.StatusBadRequest),
			Reason:  "invalid_field",
			Message: fieldErr.Error(),
		}
	}

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorBody{Error: "unauthenticated", Message: "authentication required"}
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "forbidden", Message: "insufficient permissions"}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "internal", Message: "internal server error"}
}

// StatusForKind returns the HTTP status for a booking error kind.
func StatusForKind(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_state"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "error"
}

// RequireUser writes 401 and returns nil when the request is unauthenticated.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
		WriteError(w, r, err)
		return nil
	}
	return user
}

// RequireRole writes 401 or 403 and returns nil unless the user holds one of roles.
func RequireRole(w http.ResponseWriter, r *http.Request, roles ...string) *authz.AuthUser {
	if err := authz.RequireRole(r.Context(), roles...); err != nil {
		logEvent := log.Ctx(r.Context()).Warn().Str("path", r.URL.Path)
		if user := authz.UserFromContext(r.Context()); user != nil {
			logEvent = logEvent.Str("user_id", user.ID).Str("role", user.Role)
		}
		logEvent.Err(err).Msg("Access denied")
		WriteError(w, r, err)
		return nil
	}
	return authz.UserFromContext(r.Context())
}
