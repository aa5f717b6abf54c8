package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, business_id, table_number, customer_id, total_amount, payment_method,
    estimated_time, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.TableNumber,
		&i.CustomerID,
		&i.TotalAmount,
		&i.PaymentMethod,
		&i.EstimatedTime,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const orderItemColumns = `id, order_id, product_id, name, quantity, unit_price, status`

func scanOrderItem(row interface{ Scan(...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Name,
		&i.Quantity,
		&i.UnitPrice,
		&i.Status,
	)
	return i, err
}

func collectOrderItems(rows pgx.Rows) ([]OrderItem, error) {
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const createOrder = `
INSERT INTO orders (business_id, table_number, customer_id, total_amount, payment_method, estimated_time, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	BusinessID    int64          `json:"business_id"`
	TableNumber   int32          `json:"table_number"`
	CustomerID    pgtype.Int8    `json:"customer_id"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
	PaymentMethod string         `json:"payment_method"`
	EstimatedTime string         `json:"estimated_time"`
	Status        string         `json:"status"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.BusinessID,
		arg.TableNumber,
		arg.CustomerID,
		arg.TotalAmount,
		arg.PaymentMethod,
		arg.EstimatedTime,
		arg.Status,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID   int64          `json:"order_id"`
	ProductID int64          `json:"product_id"`
	Name      string         `json:"name"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	Status    string         `json:"status"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.Status,
	)
	return scanOrderItem(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND business_id = $2`

type GetOrderParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.BusinessID)
	return scanOrder(row)
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row regardless of tenant; callers compare
// BusinessID themselves to tell "missing" from "forbidden".
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE business_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
  AND ($4::text IS NULL OR status = $4)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6`

type ListOrdersParams struct {
	BusinessID int64              `json:"business_id"`
	StartDate  pgtype.Timestamptz `json:"start_date"`
	EndDate    pgtype.Timestamptz `json:"end_date"`
	Status     pgtype.Text        `json:"status"`
	Limit      int32              `json:"limit"`
	Offset     int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.BusinessID,
		arg.StartDate,
		arg.EndDate,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listCustomerOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE business_id = $1 AND customer_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

type ListCustomerOrdersParams struct {
	BusinessID int64       `json:"business_id"`
	CustomerID pgtype.Int8 `json:"customer_id"`
	Limit      int32       `json:"limit"`
	Offset     int32       `json:"offset"`
}

func (q *Queries) ListCustomerOrders(ctx context.Context, arg ListCustomerOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listCustomerOrders, arg.BusinessID, arg.CustomerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrderItemsByOrder = `
SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collectOrderItems(rows)
}

const listOrderItemsByOrderIDs = `
SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = ANY($1::bigint[])
ORDER BY order_id, id`

func (q *Queries) ListOrderItemsByOrderIDs(ctx context.Context, orderIds []int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrderIDs, orderIds)
	if err != nil {
		return nil, err
	}
	return collectOrderItems(rows)
}

const updateOrderItemStatusByProduct = `
UPDATE order_items SET status = $3
WHERE order_id = $1 AND product_id = $2`

type UpdateOrderItemStatusByProductParams struct {
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Status    string `json:"status"`
}

func (q *Queries) UpdateOrderItemStatusByProduct(ctx context.Context, arg UpdateOrderItemStatusByProductParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateOrderItemStatusByProduct, arg.OrderID, arg.ProductID, arg.Status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setAllOrderItemsStatus = `UPDATE order_items SET status = $2 WHERE order_id = $1`

type SetAllOrderItemsStatusParams struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

func (q *Queries) SetAllOrderItemsStatus(ctx context.Context, arg SetAllOrderItemsStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, setAllOrderItemsStatus, arg.OrderID, arg.Status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteOrderItems = `DELETE FROM order_items WHERE order_id = $1`

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := q.db.Exec(ctx, deleteOrderItems, orderID)
	return err
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	return scanOrder(row)
}

const updateOrderHeader = `
UPDATE orders
SET table_number = $2, total_amount = $3, payment_method = $4, estimated_time = $5,
    status = $6, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderHeaderParams struct {
	ID            int64          `json:"id"`
	TableNumber   int32          `json:"table_number"`
	TotalAmount   pgtype.Numeric `json:"total_amount"`
	PaymentMethod string         `json:"payment_method"`
	EstimatedTime string         `json:"estimated_time"`
	Status        string         `json:"status"`
}

func (q *Queries) UpdateOrderHeader(ctx context.Context, arg UpdateOrderHeaderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderHeader,
		arg.ID,
		arg.TableNumber,
		arg.TotalAmount,
		arg.PaymentMethod,
		arg.EstimatedTime,
		arg.Status,
	)
	return scanOrder(row)
}
