package database

import (
	"context"
)

const ownerColumns = `id, business_id, name, email, hashed_password, role, created_at, updated_at`

func scanOwner(row interface{ Scan(...any) error }) (BusinessOwner, error) {
	var i BusinessOwner
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Name,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBusinessOwner = `
INSERT INTO business_owners (business_id, name, email, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + ownerColumns

type CreateBusinessOwnerParams struct {
	BusinessID     int64  `json:"business_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	Role           string `json:"role"`
}

func (q *Queries) CreateBusinessOwner(ctx context.Context, arg CreateBusinessOwnerParams) (BusinessOwner, error) {
	row := q.db.QueryRow(ctx, createBusinessOwner,
		arg.BusinessID,
		arg.Name,
		arg.Email,
		arg.HashedPassword,
		arg.Role,
	)
	return scanOwner(row)
}

const getOwnerByEmail = `SELECT ` + ownerColumns + ` FROM business_owners WHERE lower(email) = lower($1)`

func (q *Queries) GetOwnerByEmail(ctx context.Context, email string) (BusinessOwner, error) {
	row := q.db.QueryRow(ctx, getOwnerByEmail, email)
	return scanOwner(row)
}

const getOwnerByID = `SELECT ` + ownerColumns + ` FROM business_owners WHERE id = $1`

func (q *Queries) GetOwnerByID(ctx context.Context, id int64) (BusinessOwner, error) {
	row := q.db.QueryRow(ctx, getOwnerByID, id)
	return scanOwner(row)
}

const updateOwnerPassword = `
UPDATE business_owners SET hashed_password = $2, updated_at = now()
WHERE id = $1`

type UpdateOwnerPasswordParams struct {
	ID             int64  `json:"id"`
	HashedPassword string `json:"hashed_password"`
}

func (q *Queries) UpdateOwnerPassword(ctx context.Context, arg UpdateOwnerPasswordParams) error {
	_, err := q.db.Exec(ctx, updateOwnerPassword, arg.ID, arg.HashedPassword)
	return err
}
