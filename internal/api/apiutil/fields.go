package apiutil

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequiredString trims raw and returns a FieldError when it is empty.
func RequiredString(raw, field string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return value, nil
}

// ParseTimestampField parses an RFC 3339 timestamp.
func ParseTimestampField(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	return parsed, nil
}

// PathID returns the named path value when it is a UUID.
func PathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	if _, err := uuid.Parse(raw); err != nil {
		return "", FieldError{Field: name, Reason: "must be a valid id"}
	}
	return raw, nil
}

// OptionalDate parses the "date" query parameter in loc. It returns the zero
// time when the parameter is absent.
func OptionalDate(r *http.Request, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, FieldError{Field: "date", Reason: "must be formatted as YYYY-MM-DD"}
	}
	return day, nil
}
