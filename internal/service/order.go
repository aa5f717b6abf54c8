package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrMissingItemName      = errors.New("item name is required")
	ErrInvalidTableNumber   = errors.New("table_number is required")
	ErrInvalidTotal         = errors.New("invalid total_amount")
	ErrMissingPaymentMethod = errors.New("payment_method is required")
	ErrMissingEstimatedTime = errors.New("estimated_time is required")
	ErrInvalidRedeemPoints  = errors.New("redeem_points must be >= 0")
	ErrInvalidItemStatus    = errors.New("status must be Pending or Completed")
	ErrOrderNotFound        = errors.New("order not found")
	ErrItemNotFound         = errors.New("order item not found")
	ErrForbidden            = errors.New("forbidden")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier receives domain events after a successful write.
// Satisfied by *events.Dispatcher.
type Notifier interface {
	Emit(ctx context.Context, businessID int64, eventType string, payload any)
}

// OrderStore defines the DB methods the order service runs inside its
// transactions. Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	UpdateOrderItemStatusByProduct(ctx context.Context, arg database.UpdateOrderItemStatusByProductParams) (int64, error)
	SetAllOrderItemsStatus(ctx context.Context, arg database.SetAllOrderItemsStatusParams) (int64, error)
	DeleteOrderItems(ctx context.Context, orderID int64) error
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderHeader(ctx context.Context, arg database.UpdateOrderHeaderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderItemRequest is a single line as submitted by the caller. Price and
// Name are stored as the line's snapshot.
type OrderItemRequest struct {
	ProductID int64
	Quantity  int32
	Price     string
	Name      string
	Status    string // update only; empty keeps the previous status
}

// CreateOrderRequest is the input for creating an order. CustomerRef is the
// customer row id when the caller presented a valid customer token.
type CreateOrderRequest struct {
	BusinessID    int64
	CustomerRef   *int64
	TableNumber   int32
	TotalAmount   string
	PaymentMethod string
	EstimatedTime string
	RedeemPoints  int32
	Items         []OrderItemRequest
}

// UpdateOrderRequest replaces an order's header fields and items.
type UpdateOrderRequest struct {
	BusinessID    int64
	OrderID       int64
	TableNumber   int32
	TotalAmount   string
	PaymentMethod string
	EstimatedTime string
	Items         []OrderItemRequest
}

// OrderResult is an order with its items and, for creation, the outcome of
// every best-effort follow-up action.
type OrderResult struct {
	Order       database.Order
	Items       []database.OrderItem
	SideEffects []SideEffectResult
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	effects  SideEffectStore
	notifier Notifier
}

// NewOrderService creates a new OrderService. notifier may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, effects SideEffectStore, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{pool: pool, newStore: newStore, effects: effects, notifier: notifier}
}

type nopNotifier struct{}

func (nopNotifier) Emit(context.Context, int64, string, any) {}

// FormatOrderTag renders the public order identifier, e.g. ORD00042.
func FormatOrderTag(id int64) string {
	return fmt.Sprintf("ORD%05d", id)
}

type preparedItem struct {
	productID int64
	quantity  int32
	price     decimal.Decimal
	name      string
	status    string
}

func prepareItems(items []OrderItemRequest) ([]preparedItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	out := make([]preparedItem, 0, len(items))
	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMissingItemName)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(item.Price))
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
		if item.Status != "" && !isValidItemStatus(item.Status) {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemStatus)
		}
		out = append(out, preparedItem{
			productID: item.ProductID,
			quantity:  item.Quantity,
			price:     price,
			name:      name,
			status:    item.Status,
		})
	}
	return out, nil
}

type orderHeader struct {
	total         decimal.Decimal
	paymentMethod string
	estimatedTime string
}

func validateHeader(tableNumber int32, total, paymentMethod, estimatedTime string) (orderHeader, error) {
	if tableNumber <= 0 {
		return orderHeader{}, ErrInvalidTableNumber
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(total))
	if err != nil || amount.IsNegative() {
		return orderHeader{}, ErrInvalidTotal
	}
	h := orderHeader{
		total:         amount,
		paymentMethod: strings.TrimSpace(paymentMethod),
		estimatedTime: strings.TrimSpace(estimatedTime),
	}
	if h.paymentMethod == "" {
		return orderHeader{}, ErrMissingPaymentMethod
	}
	if h.estimatedTime == "" {
		return orderHeader{}, ErrMissingEstimatedTime
	}
	return h, nil
}

// CreateOrder writes the order header and its items in one transaction and
// then runs loyalty and inventory follow-ups. Follow-up failures never undo
// the order; they are reported in the result's SideEffects.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	header, err := validateHeader(req.TableNumber, req.TotalAmount, req.PaymentMethod, req.EstimatedTime)
	if err != nil {
		return nil, err
	}
	items, err := prepareItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.RedeemPoints < 0 {
		return nil, ErrInvalidRedeemPoints
	}

	result, err := s.createOrderTx(ctx, req, header, items)
	if err != nil {
		return nil, err
	}

	result.SideEffects = s.runSideEffects(ctx, req, result)
	for _, eff := range result.SideEffects {
		if eff.Status == EffectFailed {
			s.notifier.Emit(ctx, req.BusinessID, events.SideEffectFailed, sideEffectEvent{
				OrderID:          result.Order.ID,
				SideEffectResult: eff,
			})
		}
	}
	s.notifier.Emit(ctx, req.BusinessID, events.OrderCreated, newOrderEvent(result))
	return result, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, header orderHeader, items []preparedItem) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customerID := pgtype.Int8{}
	if req.CustomerRef != nil {
		customerID = pgtype.Int8{Int64: *req.CustomerRef, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BusinessID:    req.BusinessID,
		TableNumber:   req.TableNumber,
		CustomerID:    customerID,
		TotalAmount:   decimalToNumeric(header.total),
		PaymentMethod: header.paymentMethod,
		EstimatedTime: header.estimatedTime,
		Status:        enum.OrderStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderItem, 0, len(items))
	for i, item := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: item.productID,
			Name:      item.name,
			Quantity:  item.quantity,
			UnitPrice: decimalToNumeric(item.price),
			Status:    enum.OrderItemStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item[%d]: %w", i, err)
		}
		created = append(created, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Items: created}, nil
}

// lockOrder loads the order row for update and checks the tenant.
func lockOrder(ctx context.Context, store OrderStore, businessID, orderID int64) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.BusinessID != businessID {
		return database.Order{}, ErrForbidden
	}
	return order, nil
}

// refreshStatus recomputes the order status from its items and persists it
// when it changed.
func refreshStatus(ctx context.Context, store OrderStore, order database.Order) (database.Order, []database.OrderItem, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("list order items: %w", err)
	}
	status := DeriveOrderStatus(items)
	if status == order.Status {
		return order, items, nil
	}
	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: status})
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("update order status: %w", err)
	}
	return updated, items, nil
}

// UpdateItemStatus sets the status of every line of productID in the order
// and recomputes the order status.
func (s *OrderService) UpdateItemStatus(ctx context.Context, businessID, orderID, productID int64, status string) (*OrderResult, error) {
	if !isValidItemStatus(status) {
		return nil, ErrInvalidItemStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, businessID, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	n, err := store.UpdateOrderItemStatusByProduct(ctx, database.UpdateOrderItemStatusByProductParams{
		OrderID:   orderID,
		ProductID: productID,
		Status:    status,
	})
	if err != nil {
		return nil, fmt.Errorf("update item status: %w", err)
	}
	if n == 0 {
		return nil, ErrItemNotFound
	}

	order, items, err := refreshStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: order, Items: items}
	s.emitStatus(ctx, result, previous)
	return result, nil
}

// CompleteAll marks every item of the order Completed.
func (s *OrderService) CompleteAll(ctx context.Context, businessID, orderID int64) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, businessID, orderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	if _, err := store.SetAllOrderItemsStatus(ctx, database.SetAllOrderItemsStatusParams{
		OrderID: orderID,
		Status:  enum.OrderItemStatusCompleted,
	}); err != nil {
		return nil, fmt.Errorf("complete items: %w", err)
	}

	order, items, err := refreshStatus(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: order, Items: items}
	s.emitStatus(ctx, result, previous)
	return result, nil
}

// UpdateOrder replaces the order's items and header fields. A new line takes
// the caller's status, else the status of the replaced line with the same
// product, else Pending.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderResult, error) {
	header, err := validateHeader(req.TableNumber, req.TotalAmount, req.PaymentMethod, req.EstimatedTime)
	if err != nil {
		return nil, err
	}
	items, err := prepareItems(req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOrder(ctx, store, req.BusinessID, req.OrderID)
	if err != nil {
		return nil, err
	}

	existing, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	previous := make(map[int64]string, len(existing))
	for _, it := range existing {
		if _, ok := previous[it.ProductID]; !ok {
			previous[it.ProductID] = it.Status
		}
	}

	if err := store.DeleteOrderItems(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}

	created := make([]database.OrderItem, 0, len(items))
	for i, item := range items {
		status := item.status
		if status == "" {
			status = previous[item.productID]
		}
		if status == "" {
			status = enum.OrderItemStatusPending
		}
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: item.productID,
			Name:      item.name,
			Quantity:  item.quantity,
			UnitPrice: decimalToNumeric(item.price),
			Status:    status,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item[%d]: %w", i, err)
		}
		created = append(created, row)
	}

	updated, err := store.UpdateOrderHeader(ctx, database.UpdateOrderHeaderParams{
		ID:            order.ID,
		TableNumber:   req.TableNumber,
		TotalAmount:   decimalToNumeric(header.total),
		PaymentMethod: header.paymentMethod,
		EstimatedTime: header.estimatedTime,
		Status:        DeriveOrderStatus(created),
	})
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: updated, Items: created}
	s.notifier.Emit(ctx, req.BusinessID, events.OrderUpdated, newOrderEvent(result))
	return result, nil
}

func (s *OrderService) emitStatus(ctx context.Context, result *OrderResult, previous string) {
	eventType := events.OrderUpdated
	if result.Order.Status != previous {
		eventType = events.OrderStatusChanged
	}
	s.notifier.Emit(ctx, result.Order.BusinessID, eventType, newOrderEvent(result))
}

// ReconcileStatus returns the status derived from items for a stored order.
// A stored value that disagrees is logged; the derived value wins.
func ReconcileStatus(order database.Order, items []database.OrderItem) string {
	derived := DeriveOrderStatus(items)
	if derived != order.Status {
		log.Printf("WARN: order %d stored status %q differs from derived %q", order.ID, order.Status, derived)
	}
	return derived
}

type orderEvent struct {
	ID          int64  `json:"id"`
	OrderID     string `json:"order_id"`
	TableNumber int32  `json:"table_number"`
	Status      string `json:"status"`
	ItemCount   int    `json:"item_count"`
}

func newOrderEvent(r *OrderResult) orderEvent {
	return orderEvent{
		ID:          r.Order.ID,
		OrderID:     FormatOrderTag(r.Order.ID),
		TableNumber: r.Order.TableNumber,
		Status:      r.Order.Status,
		ItemCount:   len(r.Items),
	}
}

type sideEffectEvent struct {
	OrderID int64 `json:"order_id"`
	SideEffectResult
}
