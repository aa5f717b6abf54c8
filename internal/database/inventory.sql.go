package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryColumns = `id, business_id, name, quantity, unit, low_stock_threshold, created_at, updated_at`

func scanInventoryItem(row interface{ Scan(...any) error }) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Name,
		&i.Quantity,
		&i.Unit,
		&i.LowStockThreshold,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectInventoryItems(rows pgx.Rows) ([]InventoryItem, error) {
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		i, err := scanInventoryItem(rows)
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

const createInventoryItem = `
INSERT INTO inventory_items (business_id, name, quantity, unit, low_stock_threshold)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + inventoryColumns

type CreateInventoryItemParams struct {
	BusinessID        int64          `json:"business_id"`
	Name              string         `json:"name"`
	Quantity          pgtype.Numeric `json:"quantity"`
	Unit              string         `json:"unit"`
	LowStockThreshold pgtype.Numeric `json:"low_stock_threshold"`
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.BusinessID,
		arg.Name,
		arg.Quantity,
		arg.Unit,
		arg.LowStockThreshold,
	)
	return scanInventoryItem(row)
}

const getInventoryItem = `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1 AND business_id = $2`

type GetInventoryItemParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetInventoryItem(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, getInventoryItem, arg.ID, arg.BusinessID)
	return scanInventoryItem(row)
}

const listInventoryItems = `
SELECT ` + inventoryColumns + ` FROM inventory_items
WHERE business_id = $1
ORDER BY name`

func (q *Queries) ListInventoryItems(ctx context.Context, businessID int64) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems, businessID)
	if err != nil {
		return nil, err
	}
	return collectInventoryItems(rows)
}

const listLowStockItems = `
SELECT ` + inventoryColumns + ` FROM inventory_items
WHERE business_id = $1 AND quantity <= low_stock_threshold
ORDER BY quantity - low_stock_threshold, name`

func (q *Queries) ListLowStockItems(ctx context.Context, businessID int64) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listLowStockItems, businessID)
	if err != nil {
		return nil, err
	}
	return collectInventoryItems(rows)
}

const countLowStockItems = `
SELECT count(*) FROM inventory_items
WHERE business_id = $1 AND quantity <= low_stock_threshold`

func (q *Queries) CountLowStockItems(ctx context.Context, businessID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countLowStockItems, businessID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateInventoryItem = `
UPDATE inventory_items
SET name = $3, quantity = $4, unit = $5, low_stock_threshold = $6, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + inventoryColumns

type UpdateInventoryItemParams struct {
	ID                int64          `json:"id"`
	BusinessID        int64          `json:"business_id"`
	Name              string         `json:"name"`
	Quantity          pgtype.Numeric `json:"quantity"`
	Unit              string         `json:"unit"`
	LowStockThreshold pgtype.Numeric `json:"low_stock_threshold"`
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, updateInventoryItem,
		arg.ID,
		arg.BusinessID,
		arg.Name,
		arg.Quantity,
		arg.Unit,
		arg.LowStockThreshold,
	)
	return scanInventoryItem(row)
}

const deleteInventoryItem = `DELETE FROM inventory_items WHERE id = $1 AND business_id = $2`

type DeleteInventoryItemParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) DeleteInventoryItem(ctx context.Context, arg DeleteInventoryItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteInventoryItem, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const decrementInventoryByName = `
UPDATE inventory_items
SET quantity = quantity - $3, updated_at = now()
WHERE business_id = $1 AND lower(trim(name)) = lower(trim($2))
RETURNING ` + inventoryColumns

type DecrementInventoryByNameParams struct {
	BusinessID int64          `json:"business_id"`
	Name       string         `json:"name"`
	Amount     pgtype.Numeric `json:"amount"`
}

// DecrementInventoryByName subtracts Amount from every inventory row of the
// business whose name matches case-insensitively, returning the updated rows.
func (q *Queries) DecrementInventoryByName(ctx context.Context, arg DecrementInventoryByNameParams) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, decrementInventoryByName, arg.BusinessID, arg.Name, arg.Amount)
	if err != nil {
		return nil, err
	}
	return collectInventoryItems(rows)
}
