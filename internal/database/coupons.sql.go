package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const couponColumns = `id, business_id, code, discount_type, discount_value, max_discount,
    min_order_value, valid_from, valid_till, usage_limit, used_count, is_active, created_at`

func scanCoupon(row interface{ Scan(...any) error }) (Coupon, error) {
	var i Coupon
	err := row.Scan(
		&i.ID,
		&i.BusinessID,
		&i.Code,
		&i.DiscountType,
		&i.DiscountValue,
		&i.MaxDiscount,
		&i.MinOrderValue,
		&i.ValidFrom,
		&i.ValidTill,
		&i.UsageLimit,
		&i.UsedCount,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const createCoupon = `
INSERT INTO coupons (business_id, code, discount_type, discount_value, max_discount,
    min_order_value, valid_from, valid_till, usage_limit, is_active)
VALUES ($1, upper($2), $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + couponColumns

type CreateCouponParams struct {
	BusinessID    int64              `json:"business_id"`
	Code          string             `json:"code"`
	DiscountType  string             `json:"discount_type"`
	DiscountValue pgtype.Numeric     `json:"discount_value"`
	MaxDiscount   pgtype.Numeric     `json:"max_discount"`
	MinOrderValue pgtype.Numeric     `json:"min_order_value"`
	ValidFrom     pgtype.Timestamptz `json:"valid_from"`
	ValidTill     pgtype.Timestamptz `json:"valid_till"`
	UsageLimit    pgtype.Int4        `json:"usage_limit"`
	IsActive      bool               `json:"is_active"`
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, createCoupon,
		arg.BusinessID,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.MaxDiscount,
		arg.MinOrderValue,
		arg.ValidFrom,
		arg.ValidTill,
		arg.UsageLimit,
		arg.IsActive,
	)
	return scanCoupon(row)
}

const getCoupon = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 AND business_id = $2`

type GetCouponParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) GetCoupon(ctx context.Context, arg GetCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, getCoupon, arg.ID, arg.BusinessID)
	return scanCoupon(row)
}

const getCouponByCode = `
SELECT ` + couponColumns + ` FROM coupons
WHERE business_id = $1 AND code = upper($2)`

type GetCouponByCodeParams struct {
	BusinessID int64  `json:"business_id"`
	Code       string `json:"code"`
}

func (q *Queries) GetCouponByCode(ctx context.Context, arg GetCouponByCodeParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, getCouponByCode, arg.BusinessID, arg.Code)
	return scanCoupon(row)
}

const listCoupons = `
SELECT ` + couponColumns + ` FROM coupons
WHERE business_id = $1
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListCoupons(ctx context.Context, businessID int64) ([]Coupon, error) {
	rows, err := q.db.Query(ctx, listCoupons, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Coupon{}
	for rows.Next() {
		i, err := scanCoupon(rows)
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

const updateCoupon = `
UPDATE coupons
SET code = upper($3), discount_type = $4, discount_value = $5, max_discount = $6,
    min_order_value = $7, valid_from = $8, valid_till = $9, usage_limit = $10, is_active = $11
WHERE id = $1 AND business_id = $2
RETURNING ` + couponColumns

type UpdateCouponParams struct {
	ID            int64              `json:"id"`
	BusinessID    int64              `json:"business_id"`
	Code          string             `json:"code"`
	DiscountType  string             `json:"discount_type"`
	DiscountValue pgtype.Numeric     `json:"discount_value"`
	MaxDiscount   pgtype.Numeric     `json:"max_discount"`
	MinOrderValue pgtype.Numeric     `json:"min_order_value"`
	ValidFrom     pgtype.Timestamptz `json:"valid_from"`
	ValidTill     pgtype.Timestamptz `json:"valid_till"`
	UsageLimit    pgtype.Int4        `json:"usage_limit"`
	IsActive      bool               `json:"is_active"`
}

func (q *Queries) UpdateCoupon(ctx context.Context, arg UpdateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx, updateCoupon,
		arg.ID,
		arg.BusinessID,
		arg.Code,
		arg.DiscountType,
		arg.DiscountValue,
		arg.MaxDiscount,
		arg.MinOrderValue,
		arg.ValidFrom,
		arg.ValidTill,
		arg.UsageLimit,
		arg.IsActive,
	)
	return scanCoupon(row)
}

const deleteCoupon = `DELETE FROM coupons WHERE id = $1 AND business_id = $2`

type DeleteCouponParams struct {
	ID         int64 `json:"id"`
	BusinessID int64 `json:"business_id"`
}

func (q *Queries) DeleteCoupon(ctx context.Context, arg DeleteCouponParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCoupon, arg.ID, arg.BusinessID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const redeemCoupon = `
UPDATE coupons SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
RETURNING ` + couponColumns

// RedeemCoupon consumes one use of the coupon. It returns pgx.ErrNoRows when
// the usage limit has already been reached.
func (q *Queries) RedeemCoupon(ctx context.Context, id int64) (Coupon, error) {
	row := q.db.QueryRow(ctx, redeemCoupon, id)
	return scanCoupon(row)
}
