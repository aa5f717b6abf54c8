package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/service"
	"github.com/dineflow/api/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Platform admin email address")
	password := flag.String("password", "", "Platform admin password")
	name := flag.String("name", "", "Platform admin full name")
	business := flag.String("business", "", "Name of the business the admin belongs to")
	flag.Parse()

	// Fall back to environment variables, then defaults
	*email = firstNonEmpty(*email, os.Getenv("SEED_EMAIL"), "admin@dineflow.local")
	*name = firstNonEmpty(*name, os.Getenv("SEED_NAME"), "Platform Admin")
	*business = firstNonEmpty(*business, os.Getenv("SEED_BUSINESS"), "Dineflow HQ")
	*password = firstNonEmpty(*password, os.Getenv("SEED_PASSWORD"))
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}

	cfg := config.Load()
	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Business, admin and trial plan are created in one transaction.
	accounts := service.NewAccountService(pool, func(db database.DBTX) service.AccountStore {
		return database.New(db)
	})
	b, owner, err := accounts.RegisterBusiness(ctx, service.RegisterBusinessRequest{
		BusinessName:  *business,
		BusinessEmail: *email,
		OwnerName:     *name,
		OwnerEmail:    *email,
		Password:      *password,
		Role:          enum.OwnerRoleSuperAdmin,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		log.Printf("Admin '%s' already exists, skipping", *email)
		return
	}
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Business ID: %d", b.ID)
	log.Printf("Admin ID: %d", owner.ID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
