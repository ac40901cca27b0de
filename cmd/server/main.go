package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/scheduler"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel, logFormat := cfg.Log.Level, cfg.Log.Format
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	if logFormat == "" {
		logFormat = "json"
		if cfg.Server.Environment == "development" {
			logFormat = "console"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting storefront backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"db_driver":   cfg.Database.Driver,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Cart and checkout serialize per user; across replicas that needs Redis
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		locker = lock.NewRedisLocker(redis.GetClient(), cfg.Redis.LockTTL, cfg.Redis.LockWait)
	} else {
		logger.Warn("Redis disabled: using in-process cart locks and no token revocation", nil)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		handler, shutdownMetrics, err := metrics.Init(cfg.Metrics.ServiceName, cfg.Metrics.Version)
		if err != nil {
			logger.Fatal("Failed to initialize metrics", err)
		}
		metricsHandler = handler
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				logger.Error("Failed to shut down metrics provider", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	conn := db.GetDB()
	userRepo := repository.NewUserRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	cartRepo := repository.NewCartRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)
	addressRepo := repository.NewAddressRepository(conn)
	tx := repository.NewTransactor(conn)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo, cfg.Cart.DefaultMaxItemsPerOrder)
	cartService := service.NewCartService(cartRepo, productRepo, tx, locker)
	orderService := service.NewOrderService(orderRepo, addressRepo, tx, locker, hub, cfg.Cart.CheckoutAttempts)

	if cfg.Order.ExpiryEnabled {
		expiry := scheduler.NewOrderExpiryScheduler(orderService, cfg.Order.ExpirySchedule, cfg.Order.ExpiryAfter)
		if err := expiry.Start(); err != nil {
			logger.Fatal("Failed to start order expiry scheduler", err)
		}
		defer expiry.Stop()
	}

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService),
		controller.NewOrderStreamController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.JWT.Secret),
		metricsHandler,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shut down", err)
	}

	logger.Info("Server stopped successfully")
}
