package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dineflow/api/internal/config"
	"github.com/dineflow/api/internal/database"
	"github.com/dineflow/api/internal/events"
	"github.com/dineflow/api/internal/ratelimit"
	"github.com/dineflow/api/internal/router"
	"github.com/dineflow/api/internal/ws"
	"github.com/dineflow/api/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.Load()

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	log.Println("Migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(cfg.RedisURL, "password_reset", cfg.ResetMaxAttempts, cfg.ResetWindow)
		if err != nil {
			log.Fatalf("Unable to connect to redis: %v", err)
		}
		defer rl.Close()
		limiter = rl
	} else {
		log.Println("REDIS_URL not set, password reset limits are per instance")
		limiter = ratelimit.NewMemoryLimiter(cfg.ResetMaxAttempts, cfg.ResetWindow)
	}

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, database.New(pool), pool, hub, limiter, publisher),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
