package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const businessColumns = `id, name, email, phone, address, logo_url, profile_edits, created_at, updated_at`

func scanBusiness(row interface{ Scan(...any) error }) (Business, error) {
	var i Business
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.LogoUrl,
		&i.ProfileEdits,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBusiness = `
INSERT INTO businesses (name, email, phone, address)
VALUES ($1, $2, $3, $4)
RETURNING ` + businessColumns

type CreateBusinessParams struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   pgtype.Text `json:"phone"`
	Address pgtype.Text `json:"address"`
}

func (q *Queries) CreateBusiness(ctx context.Context, arg CreateBusinessParams) (Business, error) {
	row := q.db.QueryRow(ctx, createBusiness, arg.Name, arg.Email, arg.Phone, arg.Address)
	return scanBusiness(row)
}

const getBusiness = `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`

func (q *Queries) GetBusiness(ctx context.Context, id int64) (Business, error) {
	row := q.db.QueryRow(ctx, getBusiness, id)
	return scanBusiness(row)
}

const updateBusiness = `
UPDATE businesses
SET name = $2, email = $3, phone = $4, address = $5,
    profile_edits = profile_edits + 1, updated_at = now()
WHERE id = $1
RETURNING ` + businessColumns

type UpdateBusinessParams struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   pgtype.Text `json:"phone"`
	Address pgtype.Text `json:"address"`
}

func (q *Queries) UpdateBusiness(ctx context.Context, arg UpdateBusinessParams) (Business, error) {
	row := q.db.QueryRow(ctx, updateBusiness, arg.ID, arg.Name, arg.Email, arg.Phone, arg.Address)
	return scanBusiness(row)
}

const updateBusinessLogo = `
UPDATE businesses SET logo_url = $2, updated_at = now()
WHERE id = $1
RETURNING ` + businessColumns

type UpdateBusinessLogoParams struct {
	ID      int64       `json:"id"`
	LogoUrl pgtype.Text `json:"logo_url"`
}

func (q *Queries) UpdateBusinessLogo(ctx context.Context, arg UpdateBusinessLogoParams) (Business, error) {
	row := q.db.QueryRow(ctx, updateBusinessLogo, arg.ID, arg.LogoUrl)
	return scanBusiness(row)
}

// NextBusinessSequence atomically advances the named per-business counter
// and returns the new value. The first call for a name returns 1.
const nextBusinessSequence = `
INSERT INTO business_counters (business_id, name, value)
VALUES ($1, $2, 1)
ON CONFLICT (business_id, name)
DO UPDATE SET value = business_counters.value + 1
RETURNING value`

type NextBusinessSequenceParams struct {
	BusinessID int64  `json:"business_id"`
	Name       string `json:"name"`
}

func (q *Queries) NextBusinessSequence(ctx context.Context, arg NextBusinessSequenceParams) (int64, error) {
	row := q.db.QueryRow(ctx, nextBusinessSequence, arg.BusinessID, arg.Name)
	var value int64
	err := row.Scan(&value)
	return value, err
}
