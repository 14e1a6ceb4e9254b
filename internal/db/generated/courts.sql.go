package dbgen

import (
	"context"
	"database/sql"
)

const courtColumns = `id, name, location, surface, capacity, amenities, image_url, rating, is_available, status, created_at, updated_at`

func scanCourt(row interface{ Scan(...interface{}) error }) (Court, error) {
	var i Court
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Location,
		&i.Surface,
		&i.Capacity,
		&i.Amenities,
		&i.ImageUrl,
		&i.Rating,
		&i.IsAvailable,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectCourts(rows *sql.Rows) ([]Court, error) {
	defer rows.Close()
	items := []Court{}
	for rows.Next() {
		i, err := scanCourt(rows)
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

const createCourt = `-- name: CreateCourt :one
INSERT INTO courts (id, name, location, surface, capacity, amenities, image_url, rating, is_available, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + courtColumns

type CreateCourtParams struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Location    string         `json:"location"`
	Surface     string         `json:"surface"`
	Capacity    int64          `json:"capacity"`
	Amenities   string         `json:"amenities"`
	ImageUrl    sql.NullString `json:"image_url"`
	Rating      float64        `json:"rating"`
	IsAvailable bool           `json:"is_available"`
	Status      string         `json:"status"`
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt,
		arg.ID,
		arg.Name,
		arg.Location,
		arg.Surface,
		arg.Capacity,
		arg.Amenities,
		arg.ImageUrl,
		arg.Rating,
		arg.IsAvailable,
		arg.Status,
	)
	return scanCourt(row)
}

const getCourtByID = `-- name: GetCourtByID :one
SELECT ` + courtColumns + ` FROM courts WHERE id = ?`

func (q *Queries) GetCourtByID(ctx context.Context, id string) (Court, error) {
	return scanCourt(q.db.QueryRowContext(ctx, getCourtByID, id))
}

const listCourts = `-- name: ListCourts :many
SELECT ` + courtColumns + ` FROM courts ORDER BY name, id`

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourts)
	if err != nil {
		return nil, err
	}
	return collectCourts(rows)
}

const listAvailableCourts = `-- name: ListAvailableCourts :many
SELECT ` + courtColumns + ` FROM courts WHERE is_available = 1 ORDER BY name, id`

func (q *Queries) ListAvailableCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listAvailableCourts)
	if err != nil {
		return nil, err
	}
	return collectCourts(rows)
}

const updateCourt = `-- name: UpdateCourt :one
UPDATE courts
SET name = ?, location = ?, surface = ?, capacity = ?, amenities = ?, image_url = ?,
    rating = ?, is_available = ?, status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + courtColumns

type UpdateCourtParams struct {
	Name        string         `json:"name"`
	Location    string         `json:"location"`
	Surface     string         `json:"surface"`
	Capacity    int64          `json:"capacity"`
	Amenities   string         `json:"amenities"`
	ImageUrl    sql.NullString `json:"image_url"`
	Rating      float64        `json:"rating"`
	IsAvailable bool           `json:"is_available"`
	Status      string         `json:"status"`
	ID          string         `json:"id"`
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, updateCourt,
		arg.Name,
		arg.Location,
		arg.Surface,
		arg.Capacity,
		arg.Amenities,
		arg.ImageUrl,
		arg.Rating,
		arg.IsAvailable,
		arg.Status,
		arg.ID,
	)
	return scanCourt(row)
}

const deleteCourt = `-- name: DeleteCourt :execrows
DELETE FROM courts WHERE id = ?`

func (q *Queries) DeleteCourt(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCourt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countCourtReservations = `-- name: CountCourtReservations :one
SELECT COUNT(*) FROM reservations WHERE court_id = ?`

func (q *Queries) CountCourtReservations(ctx context.Context, courtID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCourtReservations, courtID).Scan(&count)
	return count, err
}
