package dbgen

import (
	"database/sql"
	"time"
)

type Court struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Surface  string `json:"surface"`
	Capacity int64  `json:"capacity"`
	// JSON array of amenity tags.
	Amenities   string         `json:"amenities"`
	ImageUrl    sql.NullString `json:"image_url"`
	Rating      float64        `json:"rating"`
	IsAvailable bool           `json:"is_available"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Reservation struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	CourtID            string         `json:"court_id"`
	StartTime          time.Time      `json:"start_time"`
	EndTime            time.Time      `json:"end_time"`
	Status             string         `json:"status"`
	Notes              sql.NullString `json:"notes"`
	CancellationReason sql.NullString `json:"cancellation_reason"`
	CancelledAt        sql.NullTime   `json:"cancelled_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	Phone        sql.NullString `json:"phone"`
	ImageUrl     sql.NullString `json:"image_url"`
	Role         string         `json:"role"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
