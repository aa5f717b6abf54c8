package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, business_id, customer_seq, name, email, phone, hashed_password,
    total_orders, total_spent, loyalty_points, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (Customer, error) {
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.CustomerSeq,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.HashedPassword,
		&i.TotalOrders,
		&i.TotalSpent,
		&i.LoyaltyPoints,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectCustomers(rows pgx.Rows) ([]Customer, error) {
	defer rows.Close()
	items := []Customer{}
	for rows.Next() {
		i, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCustomer = `
INSERT INTO customers (business_id, customer_seq, name, email, phone, hashed_password)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	BusinessID     int64       `json:"business_id"`
	CustomerSeq    int64       `json:"customer_seq"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          pgtype.Text `json:"phone"`
	HashedPassword pgtype.Text `json:"hashed_password"`
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer,
		arg.BusinessID,
		arg.CustomerSeq,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.HashedPassword,
	)
	return scanCustomer(row)
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND business_id = $2`

type GetCustomerParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, arg.ID, arg.BusinessID)
	return scanCustomer(row)
}

const getCustomerByEmail = `
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1 AND lower(email) = lower($2)`

type GetCustomerByEmailParams struct {
	BusinessID int64  `json:"business_id"`
	Email      string `json:"email"`
}

func (q *Queries) GetCustomerByEmail(ctx context.Context, arg GetCustomerByEmailParams) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByEmail, arg.BusinessID, arg.Email)
	return scanCustomer(row)
}

const listCustomers = `
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
ORDER BY customer_seq
LIMIT $3 OFFSET $4`

type ListCustomersParams struct {
	BusinessID int64       `json:"business_id"`
	Search     pgtype.Text `json:"search"`
	Limit      int32       `json:"limit"`
	Offset     int32       `json:"offset"`
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.BusinessID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const listReachableCustomers = `
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1 AND phone IS NOT NULL AND phone <> ''
ORDER BY customer_seq`

// ListReachableCustomers returns the customers of a business that have a phone number.
func (q *Queries) ListReachableCustomers(ctx context.Context, businessID int64) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listReachableCustomers, businessID)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const listCustomersByIDs = `
SELECT ` + customerColumns + ` FROM customers
WHERE business_id = $1 AND id = ANY($2::bigint[])
ORDER BY customer_seq`

type ListCustomersByIDsParams struct {
	BusinessID int64   `json:"business_id"`
	Ids        []int64 `json:"ids"`
}

func (q *Queries) ListCustomersByIDs(ctx context.Context, arg ListCustomersByIDsParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomersByIDs, arg.BusinessID, arg.Ids)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const countCustomers = `SELECT count(*) FROM customers WHERE business_id = $1`

func (q *Queries) CountCustomers(ctx context.Context, businessID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countCustomers, businessID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const accrueCustomerOrder = `
UPDATE customers
SET total_orders = total_orders + 1,
    total_spent = total_spent + $2,
    loyalty_points = loyalty_points + $3,
    updated_at = now()
WHERE id = $1
RETURNING ` + customerColumns

type AccrueCustomerOrderParams struct {
	ID          int64          `json:"id"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
	Points      int32          `json:"points"`
}

// AccrueCustomerOrder applies one order to the customer's counters in a single
// statement so concurrent orders never lose an increment.
func (q *Queries) AccrueCustomerOrder(ctx context.Context, arg AccrueCustomerOrderParams) (Customer, error) {
	row := q.db.QueryRow(ctx, accrueCustomerOrder, arg.ID, arg.TotalAmount, arg.Points)
	return scanCustomer(row)
}

const redeemLoyaltyPoints = `
UPDATE customers
SET loyalty_points = loyalty_points - $2, updated_at = now()
WHERE id = $1 AND loyalty_points >= $2
RETURNING ` + customerColumns

type RedeemLoyaltyPointsParams struct {
	ID     int64 `json:"id"`
	Points int32 `json:"points"`
}

// RedeemLoyaltyPoints returns pgx.ErrNoRows when the balance is insufficient.
func (q *Queries) RedeemLoyaltyPoints(ctx context.Context, arg RedeemLoyaltyPointsParams) (Customer, error) {
	row := q.db.QueryRow(ctx, redeemLoyaltyPoints, arg.ID, arg.Points)
	return scanCustomer(row)
}

const updateCustomerPassword = `
UPDATE customers SET hashed_password = $2, updated_at = now()
WHERE id = $1`

type UpdateCustomerPasswordParams struct {
	ID             int64       `json:"id"`
	HashedPassword pgtype.Text `json:"hashed_password"`
}

func (q *Queries) UpdateCustomerPassword(ctx context.Context, arg UpdateCustomerPasswordParams) error {
	_, err := q.db.Exec(ctx, updateCustomerPassword, arg.ID, arg.HashedPassword)
	return err
}
