package database

import (
	"context"
)

const createCategory = `
INSERT INTO categories (business_id, name)
VALUES ($1, $2)
RETURNING id, business_id, name, created_at`

type CreateCategoryParams struct {
	BusinessID int64  `json:"business_id"`
	Name       string `json:"name"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.BusinessID, arg.Name)
	var i Category
	err := row.Scan(&i.ID, &i.BusinessID, &i.Name, &i.CreatedAt)
	return i, err
}

const listCategories = `
SELECT id, business_id, name, created_at FROM categories
WHERE business_id = $1
ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context, businessID int64) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.BusinessID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCategory = `
UPDATE categories SET name = $3
WHERE id = $1 AND business_id = $2
RETURNING id, business_id, name, created_at`

type UpdateCategoryParams struct {
	ID         int64  `json:"id"`
	BusinessID int64  `json:"business_id"`
	Name       string `json:"name"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.BusinessID, arg.Name)
	var i Category
	err := row.Scan(&i.ID, &i.BusinessID, &i.Name, &i.CreatedAt)
	return i, err
}

const deleteCategory = `DELETE FROM categories WHERE id = $1 AND business_id = $2`

type DeleteCategoryParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) DeleteCategory(ctx context.Context, arg DeleteCategoryParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCategory, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
