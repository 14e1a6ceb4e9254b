package dbgen

import (
	"context"
	"database/sql"
)

const userColumns = `id, name, email, password_hash, phone, image_url, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.Phone,
		&i.ImageUrl,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, name, email, password_hash, phone, image_url, role)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	Phone        sql.NullString `json:"phone"`
	ImageUrl     sql.NullString `json:"image_url"`
	Role         string         `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.Phone,
		arg.ImageUrl,
		arg.Role,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, name`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users
SET name = ?, email = ?, phone = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    sql.NullString `json:"phone"`
	ImageUrl sql.NullString `json:"image_url"`
	ID       string         `json:"id"`
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUserProfile,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.ImageUrl,
		arg.ID,
	)
	return scanUser(row)
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

type UpdateUserPasswordParams struct {
	PasswordHash string `json:"password_hash"`
	ID           string `json:"id"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.ID)
	return err
}

const updateUserRole = `-- name: UpdateUserRole :execrows
UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE email = ?`

type UpdateUserRoleParams struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

func (q *Queries) UpdateUserRole(ctx context.Context, arg UpdateUserRoleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserRole, arg.Role, arg.Email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setUserActive = `-- name: SetUserActive :execrows
UPDATE users SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

type SetUserActiveParams struct {
	IsActive bool   `json:"is_active"`
	ID       string `json:"id"`
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setUserActive, arg.IsActive, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
