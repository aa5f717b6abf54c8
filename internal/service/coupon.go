package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Errors returned when a coupon cannot be applied.
var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotStarted  = errors.New("coupon is not valid yet")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponMinOrder    = errors.New("order total is below the coupon minimum")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrInvalidOrderTotal = errors.New("invalid order total")
)

// NormalizeCouponCode returns the canonical stored form of a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EvaluateCoupon checks the coupon against an order total at now and returns
// the discount it grants. Flat discounts never exceed the total; percent
// discounts are capped by max_discount when one is set.
func EvaluateCoupon(c database.Coupon, total decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.IsActive {
		return decimal.Zero, ErrCouponInactive
	}
	if c.ValidFrom.Valid && now.Before(c.ValidFrom.Time) {
		return decimal.Zero, ErrCouponNotStarted
	}
	if c.ValidTill.Valid && now.After(c.ValidTill.Time) {
		return decimal.Zero, ErrCouponExpired
	}
	if total.LessThan(numericToDecimal(c.MinOrderValue)) {
		return decimal.Zero, ErrCouponMinOrder
	}
	if c.UsageLimit.Valid && c.UsedCount >= c.UsageLimit.Int32 {
		return decimal.Zero, ErrCouponExhausted
	}

	value := numericToDecimal(c.DiscountValue)
	var discount decimal.Decimal
	switch c.DiscountType {
	case enum.DiscountTypePercent:
		discount = total.Mul(value).Div(hundred).Round(2)
		if c.MaxDiscount.Valid {
			discount = decimal.Min(discount, numericToDecimal(c.MaxDiscount))
		}
	default:
		discount = value
	}
	return decimal.Min(discount, total), nil
}

// CouponStore defines the DB methods needed to preview a coupon.
// Satisfied by *database.Queries.
type CouponStore interface {
	GetCouponByCode(ctx context.Context, arg database.GetCouponByCodeParams) (database.Coupon, error)
}

type CouponService struct {
	store CouponStore
	now   func() time.Time
}

func NewCouponService(store CouponStore) *CouponService {
	return &CouponService{store: store, now: time.Now}
}

// Preview reports the discount a code would grant without redeeming it.
func (s *CouponService) Preview(ctx context.Context, businessID int64, code, total string) (database.Coupon, decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(total))
	if err != nil || amount.IsNegative() {
		return database.Coupon{}, decimal.Zero, ErrInvalidOrderTotal
	}
	coupon, err := findCoupon(ctx, s.store, businessID, code)
	if err != nil {
		return database.Coupon{}, decimal.Zero, err
	}
	discount, err := EvaluateCoupon(coupon, amount, s.now())
	if err != nil {
		return database.Coupon{}, decimal.Zero, err
	}
	return coupon, discount, nil
}

func findCoupon(ctx context.Context, store CouponStore, businessID int64, code string) (database.Coupon, error) {
	code = NormalizeCouponCode(code)
	if code == "" {
		return database.Coupon{}, ErrCouponNotFound
	}
	coupon, err := store.GetCouponByCode(ctx, database.GetCouponByCodeParams{BusinessID: businessID, Code: code})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Coupon{}, ErrCouponNotFound
		}
		return database.Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return coupon, nil
}
