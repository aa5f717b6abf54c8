package database

import (
	"context"
)

const tableColumns = `id, business_id, table_number, capacity, created_at`

func scanTable(row interface{ Scan(...any) error }) (Table, error) {
	var i Table
	err := row.Scan(&i.ID, &i.BusinessID, &i.TableNumber, &i.Capacity, &i.CreatedAt)
	return i, err
}

const createTableIfAbsent = `
INSERT INTO tables (business_id, table_number, capacity)
VALUES ($1, $2, $3)
ON CONFLICT (business_id, table_number) DO NOTHING
RETURNING ` + tableColumns

type CreateTableIfAbsentParams struct {
	BusinessID  int64 `json:"business_id"`
	TableNumber int32 `json:"table_number"`
	Capacity    int32 `json:"capacity"`
}

// CreateTableIfAbsent returns pgx.ErrNoRows when the table number is already
// registered for the business.
func (q *Queries) CreateTableIfAbsent(ctx context.Context, arg CreateTableIfAbsentParams) (Table, error) {
	row := q.db.QueryRow(ctx, createTableIfAbsent, arg.BusinessID, arg.TableNumber, arg.Capacity)
	return scanTable(row)
}

const getTableByNumber = `
SELECT ` + tableColumns + ` FROM tables
WHERE business_id = $1 AND table_number = $2`

type GetTableByNumberParams struct {
	BusinessID  int64 `json:"business_id"`
	TableNumber int32 `json:"table_number"`
}

func (q *Queries) GetTableByNumber(ctx context.Context, arg GetTableByNumberParams) (Table, error) {
	row := q.db.QueryRow(ctx, getTableByNumber, arg.BusinessID, arg.TableNumber)
	return scanTable(row)
}

const listTables = `
SELECT ` + tableColumns + ` FROM tables
WHERE business_id = $1
ORDER BY table_number`

func (q *Queries) ListTables(ctx context.Context, businessID int64) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Table{}
	for rows.Next() {
		i, err := scanTable(rows)
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

const deleteTable = `DELETE FROM tables WHERE id = $1 AND business_id = $2`

type DeleteTableParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteTable, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listOpenTableNumbers = `
SELECT DISTINCT table_number FROM orders
WHERE business_id = $1 AND status <> 'Completed'`

// ListOpenTableNumbers returns the table numbers referenced by at least one
// non-completed order of the business.
func (q *Queries) ListOpenTableNumbers(ctx context.Context, businessID int64) ([]int32, error) {
	rows, err := q.db.Query(ctx, listOpenTableNumbers, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []int32{}
	for rows.Next() {
		var n int32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
