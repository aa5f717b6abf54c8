package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const getOrderSummary = `
SELECT
    count(*) AS order_count,
    count(*) FILTER (WHERE status = 'Completed') AS completed_count,
    count(*) FILTER (WHERE status <> 'Completed') AS pending_count,
    COALESCE(sum(total_amount), 0)::numeric(12,2) AS total_revenue
FROM orders
WHERE business_id = $1 AND created_at >= $2 AND created_at < $3`

type GetOrderSummaryParams struct {
	BusinessID  int64     `json:"business_id"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedAt_2 time.Time `json:"created_at_2"`
}

type GetOrderSummaryRow struct {
	OrderCount     int64          `json:"order_count"`
	CompletedCount int64          `json:"completed_count"`
	PendingCount   int64          `json:"pending_count"`
	TotalRevenue   pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetOrderSummary(ctx context.Context, arg GetOrderSummaryParams) (GetOrderSummaryRow, error) {
	row := q.db.QueryRow(ctx, getOrderSummary, arg.BusinessID, arg.CreatedAt, arg.CreatedAt_2)
	var i GetOrderSummaryRow
	err := row.Scan(
		&i.OrderCount,
		&i.CompletedCount,
		&i.PendingCount,
		&i.TotalRevenue,
	)
	return i, err
}

const getBillSummary = `
SELECT
    count(*) AS bill_count,
    COALESCE(sum(total), 0)::numeric(12,2) AS total_billed,
    COALESCE(sum(discount), 0)::numeric(12,2) AS total_discount,
    COALESCE(sum(tax_amount), 0)::numeric(12,2) AS total_tax
FROM bills
WHERE business_id = $1 AND created_at >= $2 AND created_at < $3`

type GetBillSummaryParams struct {
	BusinessID  int64     `json:"business_id"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedAt_2 time.Time `json:"created_at_2"`
}

type GetBillSummaryRow struct {
	BillCount     int64          `json:"bill_count"`
	TotalBilled   pgtype.Numeric `json:"total_billed"`
	TotalDiscount pgtype.Numeric `json:"total_discount"`
	TotalTax      pgtype.Numeric `json:"total_tax"`
}

func (q *Queries) GetBillSummary(ctx context.Context, arg GetBillSummaryParams) (GetBillSummaryRow, error) {
	row := q.db.QueryRow(ctx, getBillSummary, arg.BusinessID, arg.CreatedAt, arg.CreatedAt_2)
	var i GetBillSummaryRow
	err := row.Scan(
		&i.BillCount,
		&i.TotalBilled,
		&i.TotalDiscount,
		&i.TotalTax,
	)
	return i, err
}

const getTopItems = `
SELECT
    oi.product_id,
    oi.name AS product_name,
    sum(oi.quantity)::bigint AS quantity_sold,
    sum(oi.quantity * oi.unit_price)::numeric(12,2) AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.business_id = $1 AND o.created_at >= $2 AND o.created_at < $3
GROUP BY oi.product_id, oi.name
ORDER BY quantity_sold DESC, total_revenue DESC
LIMIT $4`

type GetTopItemsParams struct {
	BusinessID  int64     `json:"business_id"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedAt_2 time.Time `json:"created_at_2"`
	Limit       int32     `json:"limit"`
}

type GetTopItemsRow struct {
	ProductID    int64          `json:"product_id"`
	ProductName  string         `json:"product_name"`
	QuantitySold int64          `json:"quantity_sold"`
	TotalRevenue pgtype.Numeric `json:"total_revenue"`
}

func (q *Queries) GetTopItems(ctx context.Context, arg GetTopItemsParams) ([]GetTopItemsRow, error) {
	rows, err := q.db.Query(ctx, getTopItems, arg.BusinessID, arg.CreatedAt, arg.CreatedAt_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetTopItemsRow{}
	for rows.Next() {
		var i GetTopItemsRow
		if err := rows.Scan(
			&i.ProductID,
			&i.ProductName,
			&i.QuantitySold,
			&i.TotalRevenue,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPaymentSummary = `
SELECT
    payment_method,
    count(*) AS order_count,
    COALESCE(sum(total_amount), 0)::numeric(12,2) AS total_amount
FROM orders
WHERE business_id = $1 AND created_at >= $2 AND created_at < $3
GROUP BY payment_method
ORDER BY total_amount DESC`

type GetPaymentSummaryParams struct {
	BusinessID  int64     `json:"business_id"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedAt_2 time.Time `json:"created_at_2"`
}

type GetPaymentSummaryRow struct {
	PaymentMethod string         `json:"payment_method"`
	OrderCount    int64          `json:"order_count"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) GetPaymentSummary(ctx context.Context, arg GetPaymentSummaryParams) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, arg.BusinessID, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.PaymentMethod, &i.OrderCount, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
