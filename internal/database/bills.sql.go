package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const billColumns = `id, business_id, order_id, subtotal, coupon_code, discount, tax_percent,
    tax_amount, total, payment_method, created_at`

func scanBill(row interface{ Scan(...any) error }) (Bill, error) {
	var i Bill
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.OrderID,
		&i.Subtotal,
		&i.CouponCode,
		&i.Discount,
		&i.TaxPercent,
		&i.TaxAmount,
		&i.Total,
		&i.PaymentMethod,
		&i.CreatedAt,
	)
	return i, err
}

const createBill = `
INSERT INTO bills (business_id, order_id, subtotal, coupon_code, discount, tax_percent,
    tax_amount, total, payment_method)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + billColumns

type CreateBillParams struct {
	BusinessID    int64          `json:"business_id"`
	OrderID       int64          `json:"order_id"`
	Subtotal      pgtype.Numeric `json:"subtotal"`
	CouponCode    pgtype.Text    `json:"coupon_code"`
	Discount      pgtype.Numeric `json:"discount"`
	TaxPercent    pgtype.Numeric `json:"tax_percent"`
	TaxAmount     pgtype.Numeric `json:"tax_amount"`
	Total         pgtype.Numeric `json:"total"`
	PaymentMethod string         `json:"payment_method"`
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, createBill,
		arg.BusinessID,
		arg.OrderID,
		arg.Subtotal,
		arg.CouponCode,
		arg.Discount,
		arg.TaxPercent,
		arg.TaxAmount,
		arg.Total,
		arg.PaymentMethod,
	)
	return scanBill(row)
}

const getBill = `SELECT ` + billColumns + ` FROM bills WHERE id = $1 AND business_id = $2`

type GetBillParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetBill(ctx context.Context, arg GetBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, getBill, arg.ID, arg.BusinessID)
	return scanBill(row)
}

const listBills = `
SELECT ` + billColumns + ` FROM bills
WHERE business_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`

type ListBillsParams struct {
	BusinessID int64              `json:"business_id"`
	StartDate  pgtype.Timestamptz `json:"start_date"`
	EndDate    pgtype.Timestamptz `json:"end_date"`
	Limit      int32              `json:"limit"`
	Offset     int32              `json:"offset"`
}

func (q *Queries) ListBills(ctx context.Context, arg ListBillsParams) ([]Bill, error) {
	rows, err := q.db.Query(ctx, listBills, arg.BusinessID, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Bill{}
	for rows.Next() {
		i, err := scanBill(rows)
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
