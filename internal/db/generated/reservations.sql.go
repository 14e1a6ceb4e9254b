package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const reservationColumns = `id, user_id, court_id, start_time, end_time, status, notes, cancellation_reason, cancelled_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (Reservation, error) {
	var i Reservation
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CourtID,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.Notes,
		&i.CancellationReason,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// ReservationDetail is a reservation joined with its court and owner.
type ReservationDetail struct {
	Reservation
	CourtName     string `json:"court_name"`
	CourtLocation string `json:"court_location"`
	CourtSurface  string `json:"court_surface"`
	UserName      string `json:"user_name"`
	UserEmail     string `json:"user_email"`
}

const reservationDetailSelect = `SELECT r.id, r.user_id, r.court_id, r.start_time, r.end_time, r.status, r.notes,
       r.cancellation_reason, r.cancelled_at, r.created_at, r.updated_at,
       c.name, c.location, c.surface, u.name, u.email
FROM reservations r
JOIN courts c ON c.id = r.court_id
JOIN users u ON u.id = r.user_id`

func scanReservationDetail(row interface{ Scan(...interface{}) error }) (ReservationDetail, error) {
	var i ReservationDetail
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.CourtID,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.Notes,
		&i.CancellationReason,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CourtName,
		&i.CourtLocation,
		&i.CourtSurface,
		&i.UserName,
		&i.UserEmail,
	)
	return i, err
}

func collectReservationDetails(rows *sql.Rows) ([]ReservationDetail, error) {
	defer rows.Close()
	items := []ReservationDetail{}
	for rows.Next() {
		i, err := scanReservationDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createReservation = `-- name: CreateReservation :one
INSERT INTO reservations (id, user_id, court_id, start_time, end_time, status, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'confirmed', ?, ?, ?)
RETURNING ` + reservationColumns

type CreateReservationParams struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	CourtID   string         `json:"court_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Notes     sql.NullString `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, createReservation,
		arg.ID,
		arg.UserID,
		arg.CourtID,
		arg.StartTime,
		arg.EndTime,
		arg.Notes,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanReservation(row)
}

const getReservationByID = `-- name: GetReservationByID :one
SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

func (q *Queries) GetReservationByID(ctx context.Context, id string) (Reservation, error) {
	return scanReservation(q.db.QueryRowContext(ctx, getReservationByID, id))
}

const getReservationDetail = `-- name: GetReservationDetail :one
` + reservationDetailSelect + `
WHERE r.id = ?`

func (q *Queries) GetReservationDetail(ctx context.Context, id string) (ReservationDetail, error) {
	return scanReservationDetail(q.db.QueryRowContext(ctx, getReservationDetail, id))
}

const findConfirmedCourtOverlap = `-- name: FindConfirmedCourtOverlap :one
SELECT id FROM reservations
WHERE court_id = ?
  AND status = 'confirmed'
  AND start_time < ?
  AND end_time > ?
ORDER BY start_time
LIMIT 1`

type FindConfirmedCourtOverlapParams struct {
	CourtID   string    `json:"court_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// FindConfirmedCourtOverlap returns the id of a confirmed reservation on the
// court overlapping [StartTime, EndTime), or sql.ErrNoRows.
func (q *Queries) FindConfirmedCourtOverlap(ctx context.Context, arg FindConfirmedCourtOverlapParams) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, findConfirmedCourtOverlap, arg.CourtID, arg.EndTime, arg.StartTime).Scan(&id)
	return id, err
}

const findConfirmedOverlap = `-- name: FindConfirmedOverlap :one
SELECT id FROM reservations
WHERE status = 'confirmed'
  AND start_time < ?
  AND end_time > ?
ORDER BY start_time
LIMIT 1`

type FindConfirmedOverlapParams struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// FindConfirmedOverlap is FindConfirmedCourtOverlap across every court.
func (q *Queries) FindConfirmedOverlap(ctx context.Context, arg FindConfirmedOverlapParams) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, findConfirmedOverlap, arg.EndTime, arg.StartTime).Scan(&id)
	return id, err
}

const findUserConfirmedStartingBetween = `-- name: FindUserConfirmedStartingBetween :one
SELECT id FROM reservations
WHERE user_id = ?
  AND status = 'confirmed'
  AND start_time >= ?
  AND start_time < ?
LIMIT 1`

type FindUserConfirmedStartingBetweenParams struct {
	UserID string    `json:"user_id"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

func (q *Queries) FindUserConfirmedStartingBetween(ctx context.Context, arg FindUserConfirmedStartingBetweenParams) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, findUserConfirmedStartingBetween, arg.UserID, arg.From, arg.To).Scan(&id)
	return id, err
}

const cancelReservation = `-- name: CancelReservation :execrows
UPDATE reservations
SET status = 'cancelled', cancellation_reason = ?, cancelled_at = ?, updated_at = ?
WHERE id = ? AND status = 'confirmed'`

type CancelReservationParams struct {
	CancellationReason sql.NullString `json:"cancellation_reason"`
	CancelledAt        time.Time      `json:"cancelled_at"`
	ID                 string         `json:"id"`
}

// CancelReservation only touches confirmed rows; zero rows affected means the
// reservation is missing or already cancelled.
func (q *Queries) CancelReservation(ctx context.Context, arg CancelReservationParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, cancelReservation,
		arg.CancellationReason,
		arg.CancelledAt,
		arg.CancelledAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listReservationsByCreated = `-- name: ListReservationsByCreated :many
` + reservationDetailSelect + `
WHERE (? IS NULL OR r.user_id = ?)
ORDER BY r.created_at DESC, r.id`

func (q *Queries) ListReservationsByCreated(ctx context.Context, userID sql.NullString) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listReservationsByCreated, userID, userID)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listReservationsStartingBefore = `-- name: ListReservationsStartingBefore :many
` + reservationDetailSelect + `
WHERE (? IS NULL OR r.user_id = ?)
  AND r.start_time < ?
ORDER BY r.start_time DESC, r.id`

type ListReservationsStartingBeforeParams struct {
	UserID sql.NullString `json:"user_id"`
	Before time.Time      `json:"before"`
}

func (q *Queries) ListReservationsStartingBefore(ctx context.Context, arg ListReservationsStartingBeforeParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listReservationsStartingBefore, arg.UserID, arg.UserID, arg.Before)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listReservationsStartingFrom = `-- name: ListReservationsStartingFrom :many
` + reservationDetailSelect + `
WHERE (? IS NULL OR r.user_id = ?)
  AND r.start_time >= ?
ORDER BY r.start_time ASC, r.id`

type ListReservationsStartingFromParams struct {
	UserID sql.NullString `json:"user_id"`
	From   time.Time      `json:"from"`
}

func (q *Queries) ListReservationsStartingFrom(ctx context.Context, arg ListReservationsStartingFromParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listReservationsStartingFrom, arg.UserID, arg.UserID, arg.From)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listCourtReservations = `-- name: ListCourtReservations :many
` + reservationDetailSelect + `
WHERE r.court_id = ?
  AND (? IS NULL OR r.user_id = ?)
  AND (? IS NULL OR r.start_time >= ?)
  AND (? IS NULL OR r.start_time < ?)
ORDER BY r.start_time ASC, r.id`

type ListCourtReservationsParams struct {
	CourtID string         `json:"court_id"`
	UserID  sql.NullString `json:"user_id"`
	From    sql.NullTime   `json:"from"`
	Before  sql.NullTime   `json:"before"`
}

func (q *Queries) ListCourtReservations(ctx context.Context, arg ListCourtReservationsParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listCourtReservations,
		arg.CourtID,
		arg.UserID, arg.UserID,
		arg.From, arg.From,
		arg.Before, arg.Before,
	)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listConfirmedCourtReservationsOverlapping = `-- name: ListConfirmedCourtReservationsOverlapping :many
` + reservationDetailSelect + `
WHERE r.court_id = ?
  AND r.status = 'confirmed'
  AND r.start_time < ?
  AND r.end_time > ?
ORDER BY r.start_time ASC, r.id`

type ListConfirmedCourtReservationsOverlappingParams struct {
	CourtID string    `json:"court_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

func (q *Queries) ListConfirmedCourtReservationsOverlapping(ctx context.Context, arg ListConfirmedCourtReservationsOverlappingParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedCourtReservationsOverlapping, arg.CourtID, arg.To, arg.From)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listConfirmedCourtReservationsStartingBetween = `-- name: ListConfirmedCourtReservationsStartingBetween :many
` + reservationDetailSelect + `
WHERE r.court_id = ?
  AND r.status = 'confirmed'
  AND r.start_time >= ?
  AND r.start_time < ?
ORDER BY r.start_time ASC, r.id`

type ListConfirmedCourtReservationsStartingBetweenParams struct {
	CourtID string    `json:"court_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

func (q *Queries) ListConfirmedCourtReservationsStartingBetween(ctx context.Context, arg ListConfirmedCourtReservationsStartingBetweenParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedCourtReservationsStartingBetween, arg.CourtID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}

const listConfirmedReservationsStartingBetween = `-- name: ListConfirmedReservationsStartingBetween :many
` + reservationDetailSelect + `
WHERE r.status = 'confirmed'
  AND r.start_time >= ?
  AND r.start_time < ?
ORDER BY r.start_time ASC, r.id`

type ListConfirmedReservationsStartingBetweenParams struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (q *Queries) ListConfirmedReservationsStartingBetween(ctx context.Context, arg ListConfirmedReservationsStartingBetweenParams) ([]ReservationDetail, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmedReservationsStartingBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collectReservationDetails(rows)
}
