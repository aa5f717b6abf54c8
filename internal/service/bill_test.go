package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type mockBillStore struct {
	mockCouponStore
	order     database.Order
	redeemErr error
	redeemed  []int64
	createErr error
	created   *database.CreateBillParams
}

func (m *mockBillStore) GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error) {
	if id != m.order.ID {
		return database.Order{}, pgx.ErrNoRows
	}
	return m.order, nil
}

func (m *mockBillStore) RedeemCoupon(ctx context.Context, id int64) (database.Coupon, error) {
	if m.redeemErr != nil {
		return database.Coupon{}, m.redeemErr
	}
	m.redeemed = append(m.redeemed, id)
	return database.Coupon{ID: id}, nil
}

func (m *mockBillStore) CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error) {
	if m.createErr != nil {
		return database.Bill{}, m.createErr
	}
	m.created = &arg
	return database.Bill{
		ID:            1,
		BusinessID:    arg.BusinessID,
		OrderID:       arg.OrderID,
		Subtotal:      arg.Subtotal,
		CouponCode:    arg.CouponCode,
		Discount:      arg.Discount,
		TaxPercent:    arg.TaxPercent,
		TaxAmount:     arg.TaxAmount,
		Total:         arg.Total,
		PaymentMethod: arg.PaymentMethod,
	}, nil
}

func newBillService(store *mockBillStore) (*BillService, *mockTx, *recordingNotifier) {
	tx := &mockTx{}
	notifier := &recordingNotifier{}
	svc := NewBillService(&mockTxBeginner{tx: tx}, func(db database.DBTX) BillStore { return store }, notifier)
	svc.now = func() time.Time { return couponNow }
	return svc, tx, notifier
}

func billStore() *mockBillStore {
	return &mockBillStore{
		mockCouponStore: mockCouponStore{coupons: map[string]database.Coupon{"SAVE20": percentCoupon("20", "500")}},
		order: database.Order{
			ID:            7,
			BusinessID:    1,
			TotalAmount:   makeNumeric("1000.00"),
			PaymentMethod: "cash",
		},
	}
}

func TestComputeBill(t *testing.T) {
	got := ComputeBill(decimal.NewFromInt(1000), decimal.NewFromInt(200), decimal.NewFromInt(5))
	if !got.TaxAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("tax: got %s, want 40", got.TaxAmount)
	}
	if !got.Total.Equal(decimal.NewFromInt(840)) {
		t.Fatalf("total: got %s, want 840", got.Total)
	}
}

func TestCreateBill_WithCoupon(t *testing.T) {
	store := billStore()
	svc, tx, notifier := newBillService(store)

	bill, err := svc.CreateBill(context.Background(), CreateBillRequest{
		BusinessID: 1,
		OrderID:    7,
		CouponCode: "save20",
		TaxPercent: "5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("transaction not committed")
	}
	if len(store.redeemed) != 1 || store.redeemed[0] != 1 {
		t.Fatalf("redeemed: got %v, want [1]", store.redeemed)
	}
	if !numericEquals(bill.Discount, "200") || !numericEquals(bill.Total, "840") {
		t.Fatalf("amounts: discount %v total %v", numericToDecimal(bill.Discount), numericToDecimal(bill.Total))
	}
	if bill.CouponCode != (pgtype.Text{String: "SAVE20", Valid: true}) {
		t.Fatalf("coupon code: got %+v", bill.CouponCode)
	}
	if bill.PaymentMethod != "cash" {
		t.Fatalf("payment method: got %q, want order's cash", bill.PaymentMethod)
	}
	if notifier.count(events.BillCreated) != 1 {
		t.Fatal("expected bill.created event")
	}
}

func TestCreateBill_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *mockBillStore, r *CreateBillRequest)
		want   error
	}{
		{"order missing", func(s *mockBillStore, r *CreateBillRequest) { r.OrderID = 99 }, ErrOrderNotFound},
		{"other tenant", func(s *mockBillStore, r *CreateBillRequest) { r.BusinessID = 2 }, ErrForbidden},
		{"unknown coupon", func(s *mockBillStore, r *CreateBillRequest) { r.CouponCode = "NOPE" }, ErrCouponNotFound},
		{"limit reached under race", func(s *mockBillStore, r *CreateBillRequest) { s.redeemErr = pgx.ErrNoRows }, ErrCouponExhausted},
		{"bad tax", func(s *mockBillStore, r *CreateBillRequest) { r.TaxPercent = "150" }, ErrInvalidTaxPercent},
		{"duplicate bill", func(s *mockBillStore, r *CreateBillRequest) {
			s.createErr = &pgconn.PgError{Code: "23505"}
		}, ErrBillExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := billStore()
			req := CreateBillRequest{BusinessID: 1, OrderID: 7, CouponCode: "SAVE20"}
			tt.modify(store, &req)
			svc, tx, _ := newBillService(store)

			_, err := svc.CreateBill(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
			if tx.committed {
				t.Fatal("transaction committed on error")
			}
		})
	}
}
