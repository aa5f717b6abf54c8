package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, business_id, category_id, name, description, price, image_url,
    is_active, metadata, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.ImageUrl,
		&i.IsActive,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const createProduct = `
INSERT INTO products (business_id, category_id, name, description, price, is_active, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns

type CreateProductParams struct {
	BusinessID  int64          `json:"business_id"`
	CategoryID  pgtype.Int8    `json:"category_id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	IsActive    bool           `json:"is_active"`
	Metadata    []byte         `json:"metadata"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.BusinessID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsActive,
		arg.Metadata,
	)
	return scanProduct(row)
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND business_id = $2`

type GetProductParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetProduct(ctx context.Context, arg GetProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, arg.ID, arg.BusinessID)
	return scanProduct(row)
}

const getProductMetadata = `SELECT metadata FROM products WHERE id = $1 AND business_id = $2`

type GetProductMetadataParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetProductMetadata(ctx context.Context, arg GetProductMetadataParams) ([]byte, error) {
	row := q.db.QueryRow(ctx, getProductMetadata, arg.ID, arg.BusinessID)
	var metadata []byte
	err := row.Scan(&metadata)
	return metadata, err
}

const listProducts = `
SELECT ` + productColumns + ` FROM products
WHERE business_id = $1
  AND ($2::bigint IS NULL OR category_id = $2)
ORDER BY name`

type ListProductsParams struct {
	BusinessID int64       `json:"business_id"`
	CategoryID pgtype.Int8 `json:"category_id"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.BusinessID, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

const listActiveProducts = `
SELECT ` + productColumns + ` FROM products
WHERE business_id = $1 AND is_active = true
ORDER BY name`

func (q *Queries) ListActiveProducts(ctx context.Context, businessID int64) ([]Product, error) {
	rows, err := q.db.Query(ctx, listActiveProducts, businessID)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

const updateProduct = `
UPDATE products
SET category_id = $3, name = $4, description = $5, price = $6, is_active = $7,
    metadata = $8, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          int64          `json:"id"`
	BusinessID  int64          `json:"business_id"`
	CategoryID  pgtype.Int8    `json:"category_id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	IsActive    bool           `json:"is_active"`
	Metadata    []byte         `json:"metadata"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.BusinessID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsActive,
		arg.Metadata,
	)
	return scanProduct(row)
}

const updateProductImage = `
UPDATE products SET image_url = $3, updated_at = now()
WHERE id = $1 AND business_id = $2
RETURNING ` + productColumns

type UpdateProductImageParams struct {
	ID         int64       `json:"id"`
	BusinessID int64       `json:"business_id"`
	ImageUrl   pgtype.Text `json:"image_url"`
}

func (q *Queries) UpdateProductImage(ctx context.Context, arg UpdateProductImageParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProductImage, arg.ID, arg.BusinessID, arg.ImageUrl)
	return scanProduct(row)
}

const deleteProduct = `DELETE FROM products WHERE id = $1 AND business_id = $2`

type DeleteProductParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) DeleteProduct(ctx context.Context, arg DeleteProductParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
