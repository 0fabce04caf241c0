package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/decidefyi/decide/internal/auth"
	"github.com/decidefyi/decide/internal/common/logging"
	"github.com/decidefyi/decide/internal/config"
	"github.com/decidefyi/decide/internal/handlers"
	"github.com/decidefyi/decide/internal/idempotency"
	"github.com/decidefyi/decide/internal/middleware"
	"github.com/decidefyi/decide/internal/policy"
	"github.com/decidefyi/decide/internal/ratelimit"
	"github.com/decidefyi/decide/internal/rules"
	"github.com/decidefyi/decide/internal/server"
	"github.com/decidefyi/decide/internal/watch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	table, err := rules.Load()
	if err != nil {
		log.Fatalf("failed to load rules table: %v", err)
	}
	logger.Info("rules table loaded",
		logging.String("version", table.Version()),
		logging.Int("vendors", len(table.All())),
	)

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddress, err)
		}
		cancel()
		defer redisClient.Close()
	}

	store := newIdempotencyStore(cfg, redisClient)
	evaluator := policy.NewEvaluator(table)

	var detector *watch.Detector
	if cfg.WatchEnabled {
		detector = watch.NewDetector(table, cfg.WatchTimeout)
		if err := detector.Start(cfg.WatchSchedule); err != nil {
			log.Fatalf("failed to start policy page watcher: %v", err)
		}
		defer detector.Stop()
	}

	h := handlers.New(evaluator, table, store, detector, cfg)

	publicLimit := newLimiter(cfg, redisClient, cfg.PublicRateLimit, cfg.PublicRateWindow, "public")
	workflowLimit := newLimiter(cfg, redisClient, cfg.WorkflowRateLimit, cfg.WorkflowRateWindow, "workflow")
	adminLimit := newLimiter(cfg, redisClient, cfg.AdminRateLimit, cfg.AdminRateWindow, "admin")

	adminAuth := auth.New(cfg.JWTSecret)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Public decision endpoints share one quota.
	public := router.PathPrefix("/api/decide").Subrouter()
	public.Use(ratelimit.Middleware(publicLimit, cfg.RateLimitEnabled))
	public.HandleFunc("/refund", h.DecideRefund).Methods("POST")
	public.HandleFunc("/cancellation", h.DecideCancellation).Methods("POST")
	public.HandleFunc("/trial", h.DecideTrial).Methods("POST")

	rulesAPI := router.PathPrefix("/api/rules").Subrouter()
	rulesAPI.Use(ratelimit.Middleware(publicLimit, cfg.RateLimitEnabled))
	rulesAPI.HandleFunc("/version", h.RulesVersion).Methods("GET")

	rpc := router.PathPrefix("/rpc").Subrouter()
	rpc.Use(ratelimit.Middleware(publicLimit, cfg.RateLimitEnabled))
	rpc.Handle("", h.RPCRouter()).Methods("POST")

	// The ticket-driven workflow endpoint has its own, tighter quota.
	workflow := router.PathPrefix("/api/workflow").Subrouter()
	workflow.Use(ratelimit.Middleware(workflowLimit, cfg.RateLimitEnabled))
	workflow.HandleFunc("", h.Workflow).Methods("POST")

	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(ratelimit.Middleware(adminLimit, cfg.RateLimitEnabled))
	admin.Use(adminAuth.RequireAdmin)
	admin.HandleFunc("/rules/export", h.ExportRules).Methods("GET")
	admin.HandleFunc("/watch", h.WatchSnapshots).Methods("GET")
	admin.HandleFunc("/watch/check", h.WatchCheck).Methods("POST")

	srv := server.New(router, cfg.Port)
	srv.Start()
	logger.Info("server started",
		logging.String("port", cfg.Port),
		logging.Bool("rate_limiting", cfg.RateLimitEnabled),
		logging.Bool("watch", cfg.WatchEnabled),
		logging.Duration("idempotency_ttl", cfg.IdempotencyTTL),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	logger.Info("server exited")
}

// newLimiter builds one rate limiter for an endpoint class, backed by
// memory or Redis per configuration. Each class gets its own window.
func newLimiter(cfg *config.Config, client *redis.Client, requests int, window time.Duration, class string) ratelimit.Checker {
	if cfg.RateLimitBackend == "redis" {
		return ratelimit.NewRedisLimiter(client, requests, window, "ratelimit:"+class+":")
	}
	return ratelimit.NewLimiter(requests, window)
}

func newIdempotencyStore(cfg *config.Config, client *redis.Client) idempotency.Store {
	if cfg.IdempotencyBackend == "redis" {
		return idempotency.NewRedisStore(client, cfg.IdempotencyTTL, "idempotency:")
	}
	return idempotency.NewCache(cfg.IdempotencyTTL)
}
