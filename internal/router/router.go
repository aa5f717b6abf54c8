package router

import (
	"log"
	"net/http"

	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/handler"
	mw "github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/ratelimit"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/internal/storage"
	"github.com/dineflow/api/internal/whatsapp"
	"github.com/dineflow/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// limiter throttles password reset requests; publisher may be nil when no
// broker is configured.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, limiter ratelimit.Limiter, publisher events.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	loc, err := handler.ParseUTCOffset(cfg.BusinessUTCOffset)
	if err != nil {
		log.Printf("WARN: invalid BUSINESS_UTC_OFFSET %q, using UTC: %v", cfg.BusinessUTCOffset, err)
	}

	// Shared services
	notifier := events.NewDispatcher(hub, publisher)
	uploader := storage.NewHTTPUploader(cfg.StorageUploadURL, cfg.StorageUploadPreset)
	accounts := service.NewAccountService(pool, func(db database.DBTX) service.AccountStore {
		return database.New(db)
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, queries, notifier)
	billService := service.NewBillService(pool, func(db database.DBTX) service.BillStore {
		return database.New(db)
	}, notifier)
	resetService := service.NewPasswordResetService(pool, func(db database.DBTX) service.ResetStore {
		return database.New(db)
	}, queries, limiter, cfg.ResetTokenTTL)
	promotionService := service.NewPromotionService(queries, whatsapp.NewClient(cfg.WhatsAppBaseURL), notifier, cfg.BroadcastWorkers)

	authHandler := handler.NewAuthHandler(queries, accounts, handler.TokenConfig{
		Secret:      cfg.JWTSecret,
		OwnerTTL:    cfg.OwnerTokenTTL,
		CustomerTTL: cfg.CustomerTokenTTL,
	})
	passwordHandler := handler.NewPasswordHandler(resetService, cfg.IsDevelopment())
	orderHandler := handler.NewOrderHandler(orderService, queries, loc)
	tableHandler := handler.NewTableHandler(service.NewTableService(queries), queries)
	couponHandler := handler.NewCouponHandler(queries, service.NewCouponService(queries))
	productHandler := handler.NewProductHandler(queries, uploader)
	customerHandler := handler.NewCustomerHandler(queries, accounts)
	planHandler := handler.NewPlanHandler(service.NewPlanService(queries))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler.RegisterRoutes(r)
	passwordHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Method(http.MethodGet, "/ws/businesses/{bid}/orders", ws.NewHandler(hub, cfg.JWTSecret, cfg.AllowedOrigins))

	// Storefront routes, scoped by the business in the path. A customer
	// token is attached when present so orders can be linked to the account.
	r.Route("/businesses/{bid}", func(r chi.Router) {
		r.Use(mw.OptionalCustomer(cfg.JWTSecret))

		authHandler.RegisterPublicRoutes(r)
		orderHandler.RegisterPublicRoutes(r)
		tableHandler.RegisterPublicRoutes(r)
		couponHandler.RegisterPublicRoutes(r)
		productHandler.RegisterPublicRoutes(r)
	})

	// Signed-in customer routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthenticateCustomer(cfg.JWTSecret))

		orderHandler.RegisterCustomerRoutes(r)
		customerHandler.RegisterSelfRoutes(r)
	})

	// Owner routes, scoped to the business in the token
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/tables", tableHandler.RegisterRoutes)
		r.Route("/plan", planHandler.RegisterRoutes)
		r.Route("/coupons", couponHandler.RegisterRoutes)
		r.Route("/bills", handler.NewBillHandler(billService, queries, loc).RegisterRoutes)
		r.Route("/categories", handler.NewCategoryHandler(queries).RegisterRoutes)
		r.Route("/products", productHandler.RegisterRoutes)
		r.Route("/inventory", handler.NewInventoryHandler(queries).RegisterRoutes)
		r.Route("/customers", customerHandler.RegisterRoutes)
		r.Route("/promotions", handler.NewPromotionHandler(promotionService).RegisterRoutes)
		r.Route("/dashboard", handler.NewReportsHandler(queries, loc).RegisterRoutes)
		handler.NewBusinessHandler(queries, uploader).RegisterRoutes(r)

		// Platform administration
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.OwnerRoleSuperAdmin))
			r.Route("/admin/businesses/{bid}/plan", planHandler.RegisterAdminRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
