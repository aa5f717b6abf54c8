package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const planColumns = `id, business_id, name, price, status, started_at, expires_at, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (Plan, error) {
	var i Plan
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Name,
		&i.Price,
		&i.Status,
		&i.StartedAt,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertPlan = `
INSERT INTO plans (business_id, name, price, status, started_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (business_id) DO UPDATE
SET name = EXCLUDED.name, price = EXCLUDED.price, status = EXCLUDED.status,
    started_at = EXCLUDED.started_at, expires_at = EXCLUDED.expires_at, updated_at = now()
RETURNING ` + planColumns

type UpsertPlanParams struct {
	BusinessID int64              `json:"business_id"`
	Name       string             `json:"name"`
	Price      pgtype.Numeric     `json:"price"`
	Status     string             `json:"status"`
	StartedAt  pgtype.Timestamptz `json:"started_at"`
	ExpiresAt  pgtype.Timestamptz `json:"expires_at"`
}

func (q *Queries) UpsertPlan(ctx context.Context, arg UpsertPlanParams) (Plan, error) {
	row := q.db.QueryRow(ctx, upsertPlan,
		arg.BusinessID,
		arg.Name,
		arg.Price,
		arg.Status,
		arg.StartedAt,
		arg.ExpiresAt,
	)
	return scanPlan(row)
}

const getPlanByBusiness = `SELECT ` + planColumns + ` FROM plans WHERE business_id = $1`

func (q *Queries) GetPlanByBusiness(ctx context.Context, businessID int64) (Plan, error) {
	row := q.db.QueryRow(ctx, getPlanByBusiness, businessID)
	return scanPlan(row)
}

const updatePlanStatus = `
UPDATE plans SET status = $2, started_at = COALESCE($3, started_at), updated_at = now()
WHERE business_id = $1
RETURNING ` + planColumns

type UpdatePlanStatusParams struct {
	BusinessID int64              `json:"business_id"`
	Status     string             `json:"status"`
	StartedAt  pgtype.Timestamptz `json:"started_at"`
}

func (q *Queries) UpdatePlanStatus(ctx context.Context, arg UpdatePlanStatusParams) (Plan, error) {
	row := q.db.QueryRow(ctx, updatePlanStatus, arg.BusinessID, arg.Status, arg.StartedAt)
	return scanPlan(row)
}
