package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Bill struct {
	ID            int64              `json:"id"`
	BusinessID    int64              `json:"business_id"`
	OrderID       int64              `json:"order_id"`
	Subtotal      pgtype.Numeric     `json:"subtotal"`
	CouponCode    pgtype.Text        `json:"coupon_code"`
	Discount      pgtype.Numeric     `json:"discount"`
	TaxPercent    pgtype.Numeric     `json:"tax_percent"`
	TaxAmount     pgtype.Numeric     `json:"tax_amount"`
	Total         pgtype.Numeric     `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type Business struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        pgtype.Text        `json:"phone"`
	Address      pgtype.Text        `json:"address"`
	LogoUrl      pgtype.Text        `json:"logo_url"`
	ProfileEdits int32              `json:"profile_edits"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type BusinessOwner struct {
	ID             int64              `json:"id"`
	BusinessID     int64              `json:"business_id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	HashedPassword string             `json:"hashed_password"`
	Role           string             `json:"role"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Category struct {
	ID         int64              `json:"id"`
	BusinessID int64              `json:"business_id"`
	Name       string             `json:"name"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

type Coupon struct {
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
	UsedCount     int32              `json:"used_count"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type Customer struct {
	ID             int64              `json:"id"`
	BusinessID     int64              `json:"business_id"`
	CustomerSeq    int64              `json:"customer_seq"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Phone          pgtype.Text        `json:"phone"`
	HashedPassword pgtype.Text        `json:"hashed_password"`
	TotalOrders    int32              `json:"total_orders"`
	TotalSpent     pgtype.Numeric     `json:"total_spent"`
	LoyaltyPoints  int32              `json:"loyalty_points"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type InventoryItem struct {
	ID                int64              `json:"id"`
	BusinessID        int64              `json:"business_id"`
	Name              string             `json:"name"`
	Quantity          pgtype.Numeric     `json:"quantity"`
	Unit              string             `json:"unit"`
	LowStockThreshold pgtype.Numeric     `json:"low_stock_threshold"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

type Order struct {
	ID            int64              `json:"id"`
	BusinessID    int64              `json:"business_id"`
	TableNumber   int32              `json:"table_number"`
	CustomerID    pgtype.Int8        `json:"customer_id"`
	TotalAmount   pgtype.Numeric     `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	EstimatedTime string             `json:"estimated_time"`
	Status        string             `json:"status"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type OrderItem struct {
	ID        int64          `json:"id"`
	OrderID   int64          `json:"order_id"`
	ProductID int64          `json:"product_id"`
	Name      string         `json:"name"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	Status    string         `json:"status"`
}

type PasswordReset struct {
	ID            int64              `json:"id"`
	PrincipalType string             `json:"principal_type"`
	PrincipalID   int64              `json:"principal_id"`
	TokenHash     string             `json:"token_hash"`
	ExpiresAt     pgtype.Timestamptz `json:"expires_at"`
	UsedAt        pgtype.Timestamptz `json:"used_at"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}

type Plan struct {
	ID         int64              `json:"id"`
	BusinessID int64              `json:"business_id"`
	Name       string             `json:"name"`
	Price      pgtype.Numeric     `json:"price"`
	Status     string             `json:"status"`
	StartedAt  pgtype.Timestamptz `json:"started_at"`
	ExpiresAt  pgtype.Timestamptz `json:"expires_at"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type Product struct {
	ID          int64              `json:"id"`
	BusinessID  int64              `json:"business_id"`
	CategoryID  pgtype.Int8        `json:"category_id"`
	Name        string             `json:"name"`
	Description pgtype.Text        `json:"description"`
	Price       pgtype.Numeric     `json:"price"`
	ImageUrl    pgtype.Text        `json:"image_url"`
	IsActive    bool               `json:"is_active"`
	Metadata    []byte             `json:"metadata"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type Table struct {
	ID          int64              `json:"id"`
	BusinessID  int64              `json:"business_id"`
	TableNumber int32              `json:"table_number"`
	Capacity    int32              `json:"capacity"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

type WhatsappCredential struct {
	BusinessID  int64              `json:"business_id"`
	EndpointID  string             `json:"endpoint_id"`
	AccessToken string             `json:"access_token"`
	SenderID    string             `json:"sender_id"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}
