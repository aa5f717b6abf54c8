package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var (
	ErrBillExists        = errors.New("order already has a bill")
	ErrInvalidTaxPercent = errors.New("tax_percent must be between 0 and 100")
)

// BillStore defines the DB methods used while billing an order.
// Satisfied by *database.Queries (and its WithTx variant).
type BillStore interface {
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	GetCouponByCode(ctx context.Context, arg database.GetCouponByCodeParams) (database.Coupon, error)
	RedeemCoupon(ctx context.Context, id int64) (database.Coupon, error)
	CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error)
}

// NewBillStore creates a BillStore from a DBTX (pool or tx).
type NewBillStore func(db database.DBTX) BillStore

type CreateBillRequest struct {
	BusinessID    int64
	OrderID       int64
	CouponCode    string
	TaxPercent    string
	PaymentMethod string
}

type BillService struct {
	pool     TxBeginner
	newStore NewBillStore
	notifier Notifier
	now      func() time.Time
}

// NewBillService creates a BillService. notifier may be nil.
func NewBillService(pool TxBeginner, newStore NewBillStore, notifier Notifier) *BillService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &BillService{pool: pool, newStore: newStore, notifier: notifier, now: time.Now}
}

// BillAmounts is the arithmetic of a bill.
type BillAmounts struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeBill applies the discount and then tax on the discounted amount.
func ComputeBill(subtotal, discount, taxPercent decimal.Decimal) BillAmounts {
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(taxPercent).Div(hundred).Round(2)
	return BillAmounts{
		Subtotal:  subtotal,
		Discount:  discount,
		TaxAmount: tax,
		Total:     taxable.Add(tax),
	}
}

// CreateBill bills an order, redeeming the coupon in the same transaction so
// a coupon use is only consumed when the bill is written.
func (s *BillService) CreateBill(ctx context.Context, req CreateBillRequest) (database.Bill, error) {
	taxPercent := decimal.Zero
	if strings.TrimSpace(req.TaxPercent) != "" {
		var err error
		taxPercent, err = decimal.NewFromString(strings.TrimSpace(req.TaxPercent))
		if err != nil || taxPercent.IsNegative() || taxPercent.GreaterThan(hundred) {
			return database.Bill{}, ErrInvalidTaxPercent
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Bill{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Bill{}, ErrOrderNotFound
		}
		return database.Bill{}, fmt.Errorf("get order: %w", err)
	}
	if order.BusinessID != req.BusinessID {
		return database.Bill{}, ErrForbidden
	}

	subtotal := numericToDecimal(order.TotalAmount)
	discount := decimal.Zero
	couponCode := pgtype.Text{}
	if strings.TrimSpace(req.CouponCode) != "" {
		coupon, err := findCoupon(ctx, store, req.BusinessID, req.CouponCode)
		if err != nil {
			return database.Bill{}, err
		}
		discount, err = EvaluateCoupon(coupon, subtotal, s.now())
		if err != nil {
			return database.Bill{}, err
		}
		if _, err := store.RedeemCoupon(ctx, coupon.ID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Bill{}, ErrCouponExhausted
			}
			return database.Bill{}, fmt.Errorf("redeem coupon: %w", err)
		}
		couponCode = pgtype.Text{String: coupon.Code, Valid: true}
	}

	amounts := ComputeBill(subtotal, discount, taxPercent)
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = order.PaymentMethod
	}

	bill, err := store.CreateBill(ctx, database.CreateBillParams{
		BusinessID:    req.BusinessID,
		OrderID:       order.ID,
		Subtotal:      decimalToNumeric(amounts.Subtotal),
		CouponCode:    couponCode,
		Discount:      decimalToNumeric(amounts.Discount),
		TaxPercent:    decimalToNumeric(taxPercent),
		TaxAmount:     decimalToNumeric(amounts.TaxAmount),
		Total:         decimalToNumeric(amounts.Total),
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.Bill{}, ErrBillExists
		}
		return database.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Bill{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Emit(ctx, req.BusinessID, events.BillCreated, bill)
	return bill, nil
}
