//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/ratelimit"
	"github.com/dineflow/api/internal/router"
	"github.com/dineflow/api/internal/ws"
	"github.com/dineflow/api/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow exercises the full API lifecycle against a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := migrations.Up(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Environment:       "development",
		DatabaseURL:       connStr,
		JWTSecret:         "integration-test-secret",
		BusinessUTCOffset: "+05:30",
		AllowedOrigins:    []string{"http://localhost:5173"},
		ResetTokenTTL:     time.Hour,
		BroadcastWorkers:  2,
	}
	hub := ws.NewHub()
	go hub.Run(ctx)

	r := router.New(cfg, database.New(pool), pool, hub, ratelimit.NewMemoryLimiter(3, time.Minute), nil)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Sign up a business; the owner is signed in straight away ---
	signup := httpPostJSON(t, server, "/auth/register", map[string]interface{}{
		"business_name":  "Spice Route",
		"business_email": "hello@spiceroute.test",
		"owner_name":     "Nila",
		"owner_email":    "nila@spiceroute.test",
		"password":       "owner-pass-1",
	}, "")
	token := signup["access_token"].(string)
	businessID := int64(signup["business"].(map[string]interface{})["id"].(float64))

	// --- 2. New businesses start on an active trial plan ---
	plan := httpGetJSON(t, server, "/plan", token)
	if plan["status"] != enum.PlanStatusActive {
		t.Errorf("trial plan status: got %v, want %s", plan["status"], enum.PlanStatusActive)
	}

	// --- 3. Catalog: category, product with a recipe, stocked ingredient ---
	category := httpPostJSON(t, server, "/categories", map[string]interface{}{"name": "Mains"}, token)
	product := httpPostJSON(t, server, "/products", map[string]interface{}{
		"category_id": category["id"],
		"name":        "Lemon Rice",
		"price":       "250",
		"metadata": map[string]interface{}{
			"ingredients": []map[string]interface{}{{"name": "Rice", "quantity": "0.2"}},
		},
	}, token)
	productID := int64(product["id"].(float64))
	rice := httpPostJSON(t, server, "/inventory", map[string]interface{}{
		"name": "Rice", "quantity": "10", "unit": "kg", "low_stock_threshold": "2",
	}, token)
	riceID := int64(rice["id"].(float64))

	// --- 4. Tables register once; a repeat is not an error ---
	httpPostJSON(t, server, "/tables", map[string]interface{}{"table_number": 1, "capacity": 4}, token)
	if status, _ := httpDo(t, server, "POST", "/tables", map[string]interface{}{"table_number": 1, "capacity": 4}, token); status != http.StatusOK && status != http.StatusCreated {
		t.Fatalf("re-register table: got %d", status)
	}

	// --- 5. Customer signs up on the storefront ---
	signupCustomer := httpPostJSON(t, server, fmt.Sprintf("/businesses/%d/auth/register", businessID), map[string]interface{}{
		"name": "Asha", "email": "asha@example.test", "phone": "+919800000001", "password": "asha-pass-1",
	}, "")
	customerTok := signupCustomer["access_token"].(string)

	// --- 6. Customer places an order for table 1 ---
	order := httpPostJSON(t, server, fmt.Sprintf("/businesses/%d/orders", businessID), map[string]interface{}{
		"table_number":   1,
		"payment_method": "upi",
		"estimated_time": "20 min",
		"total_amount":   "500",
		"items": []map[string]interface{}{
			{"product_id": productID, "name": "Lemon Rice", "quantity": 2, "price": "250"},
		},
	}, customerTok)
	orderID := int64(order["id"].(float64))
	if order["order_id"] != fmt.Sprintf("ORD%05d", orderID) {
		t.Errorf("order tag: got %v", order["order_id"])
	}
	if order["customer_id"] == nil {
		t.Error("order not linked to the signed-in customer")
	}

	// --- 7. Side effects: stock decremented, loyalty accrued ---
	stock := httpGetJSON(t, server, fmt.Sprintf("/inventory/%d", riceID), token)
	if stock["quantity"] != "9.600" {
		t.Errorf("rice stock: got %v, want 9.600", stock["quantity"])
	}
	me := httpGetJSON(t, server, "/customer/me", customerTok)
	if me["loyalty_points"] != float64(5) || me["total_orders"] != float64(1) {
		t.Errorf("customer after order: %v", me)
	}

	// --- 8. Table 1 stays Booked while the order is open ---
	if got := tableStatus(t, server, token, 1); got != enum.TableStatusBooked {
		t.Errorf("table 1 with open order: got %q, want %q", got, enum.TableStatusBooked)
	}
	if status, body := httpDo(t, server, "PATCH", fmt.Sprintf("/orders/%d/items/%d/status", orderID, productID), map[string]interface{}{"status": enum.OrderItemStatusPending}, token); status != http.StatusOK {
		t.Fatalf("update item status: status %d, body: %v", status, body)
	}
	assertStoredStatus(t, ctx, pool, server, token, orderID, enum.OrderStatusPending)
	if got := tableStatus(t, server, token, 1); got != enum.TableStatusBooked {
		t.Errorf("table 1 after item update: got %q, want %q", got, enum.TableStatusBooked)
	}

	// --- 9. Kitchen completes the order; the table frees up ---
	httpPostJSON(t, server, fmt.Sprintf("/orders/%d/complete", orderID), map[string]interface{}{}, token)
	assertStoredStatus(t, ctx, pool, server, token, orderID, enum.OrderStatusCompleted)
	if got := tableStatus(t, server, token, 1); got != enum.TableStatusAvailable {
		t.Errorf("table 1 after completion: got %q, want %q", got, enum.TableStatusAvailable)
	}

	// --- 10. Bill with a percentage coupon and tax ---
	httpPostJSON(t, server, "/coupons", map[string]interface{}{
		"code": "SAVE10", "discount_type": "percent", "discount_value": "10",
	}, token)
	bill := httpPostJSON(t, server, "/bills", map[string]interface{}{
		"order_id": orderID, "coupon_code": "SAVE10", "tax_percent": "5", "payment_method": "upi",
	}, token)
	if bill["discount"] != "50.00" || bill["tax_amount"] != "22.50" || bill["total"] != "472.50" {
		t.Errorf("bill amounts: %v", bill)
	}
	if status, _ := httpDo(t, server, "POST", "/bills", map[string]interface{}{"order_id": orderID}, token); status != http.StatusConflict {
		t.Errorf("second bill: got %d, want %d", status, http.StatusConflict)
	}

	// --- 11. Dashboard reflects the day's activity ---
	dash := httpGetJSON(t, server, "/dashboard", token)
	if dash["order_count"] != float64(1) || dash["customer_count"] != float64(1) {
		t.Errorf("dashboard: %v", dash)
	}

	// --- 12. Tenant isolation: another business cannot see the order ---
	other := httpPostJSON(t, server, "/auth/register", map[string]interface{}{
		"business_name": "Other", "business_email": "x@other.test",
		"owner_name": "Ravi", "owner_email": "ravi@other.test", "password": "other-pass-1",
	}, "")
	if status, _ := httpDo(t, server, "GET", fmt.Sprintf("/orders/%d", orderID), nil, other["access_token"].(string)); status != http.StatusNotFound {
		t.Errorf("cross-tenant order read: got %d, want %d", status, http.StatusNotFound)
	}

	// --- 13. Password reset for the owner ---
	forgot := httpPostJSON(t, server, "/auth/password/forgot", map[string]interface{}{"email": "nila@spiceroute.test"}, "")
	resetToken, _ := forgot["reset_token"].(string)
	if resetToken == "" {
		t.Fatal("development mode should expose the reset token")
	}
	httpPostJSON(t, server, "/auth/password/reset", map[string]interface{}{"token": resetToken, "password": "new-owner-pass"}, "")
	if status, _ := httpDo(t, server, "POST", "/auth/password/reset", map[string]interface{}{"token": resetToken, "password": "again-pass-1"}, ""); status != http.StatusBadRequest {
		t.Errorf("reused reset token: got %d, want %d", status, http.StatusBadRequest)
	}
	httpPostJSON(t, server, "/auth/login", map[string]interface{}{"email": "nila@spiceroute.test", "password": "new-owner-pass"}, "")

	t.Logf("Integration test passed: business=%d product=%d order=%d bill=%v",
		businessID, productID, orderID, bill["id"])
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dineflow_test"),
		tcpostgres.WithUsername("dineflow"),
		tcpostgres.WithPassword("dineflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

// --- HTTP helpers ---

// tableStatus reads GET /tables and returns the status of one table.
func tableStatus(t *testing.T, server *httptest.Server, token string, number int32) string {
	t.Helper()

	req, err := http.NewRequest("GET", server.URL+"/tables", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list tables: status %d", resp.StatusCode)
	}

	var tables []struct {
		TableNumber int32  `json:"table_number"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tables); err != nil {
		t.Fatalf("decode tables: %v", err)
	}
	for _, tbl := range tables {
		if tbl.TableNumber == number {
			return tbl.Status
		}
	}
	t.Fatalf("table %d not listed", number)
	return ""
}

// assertStoredStatus checks that the persisted order status matches both the
// API read and the expected value.
func assertStoredStatus(t *testing.T, ctx context.Context, pool *pgxpool.Pool, server *httptest.Server, token string, orderID int64, want string) {
	t.Helper()

	var stored string
	if err := pool.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1", orderID).Scan(&stored); err != nil {
		t.Fatalf("read stored status: %v", err)
	}
	read := httpGetJSON(t, server, fmt.Sprintf("/orders/%d", orderID), token)
	if read["status"] != stored {
		t.Errorf("order %d: read status %v diverges from stored %q", orderID, read["status"], stored)
	}
	if stored != want {
		t.Errorf("order %d: stored status %q, want %q", orderID, stored, want)
	}
}

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result) //nolint:errcheck
	return resp.StatusCode, result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	status, result := httpDo(t, server, "POST", path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("POST %s: status %d, body: %v", path, status, result)
	}
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	status, result := httpDo(t, server, "GET", path, nil, token)
	if status < 200 || status >= 300 {
		t.Fatalf("GET %s: status %d, body: %v", path, status, result)
	}
	return result
}
