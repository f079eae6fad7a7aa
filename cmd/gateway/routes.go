package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"barbershop-system/config"
	"barbershop-system/internal/commission"
	"barbershop-system/internal/database"
	"barbershop-system/internal/events"
	"barbershop-system/internal/gateway/clients"
	"barbershop-system/internal/gateway/handlers"
	"barbershop-system/internal/gateway/middleware"
	catalog "barbershop-system/internal/services/catalog/handler"
	commissions "barbershop-system/internal/services/commissions/handler"
	finance "barbershop-system/internal/services/finance/handler"
	pos "barbershop-system/internal/services/pos/handler"
	users "barbershop-system/internal/services/user/handler"
	"barbershop-system/internal/session"
)

func main() {
	cfg := config.LoadConfig()
	logger := config.NewLogger(cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	db, err := database.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	redisClient, err := config.NewRedisClient(cfg.Redis, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	reconciler, err := clients.NewReconcilerClient(cfg.HTTP.ReconcilerAddr)
	if err != nil {
		logger.WithError(err).Warn("reconciler health checks disabled")
	}
	defer reconciler.Close()

	eps, err := decimal.NewFromString(cfg.Worker.Epsilon)
	if err != nil {
		eps = commission.DefaultEpsilon
	}

	bus := events.NewRedisBus(redisClient)
	commissionService := commissions.NewCommissionHandler(db, redisClient, logger, bus, eps)
	userService := users.NewUserHandler(db, redisClient, logger, bus, commissionService)
	posService := pos.NewPOSHandler(db, logger, bus, commissionService, eps)
	catalogService := catalog.NewCatalogHandler(db, redisClient, logger, cfg.Locale.PhoneRegion)
	financeService := finance.NewFinanceHandler(db, logger, bus, commissionService)

	sessions := session.NewManager(userService, session.NewRedisRevocations(redisClient), []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	rateLimit, err := middleware.RateLimit(cfg.HTTP.RateLimit)
	if err != nil {
		logger.WithError(err).Fatal("invalid RATE_LIMIT")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(rateLimit)

	timeout := cfg.HTTP.RequestTimeout
	userHandler := handlers.NewUserHTTPHandler(sessions, userService, timeout)

	// --- Public API Group ---
	public := r.Group("/api/v1")
	userHandler.RegisterPublic(public)

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(sessions))
	userHandler.Register(protected)
	handlers.NewCatalogHTTPHandler(catalogService, timeout).Register(protected)
	handlers.NewPOSHTTPHandler(posService, timeout).Register(protected)
	handlers.NewCommissionsHTTPHandler(commissionService, timeout).Register(protected)
	handlers.NewEventsHTTPHandler(bus).Register(protected)

	managers := protected.Group("")
	managers.Use(middleware.RequireRole(session.RoleAdmin, session.RoleManager))
	handlers.NewFinanceHTTPHandler(financeService, timeout).Register(managers)

	r.GET("/health", healthCheckHandler(db, redisClient))
	r.GET("/health/detailed", detailedHealthCheckHandler(db, redisClient, reconciler))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTP.Port).Info("starting gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
	logger.Info("gateway stopped")
}

func healthCheckHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK

		unavailable := []string{}
		if checkDB(ctx, db) != nil {
			unavailable = append(unavailable, "database")
		}
		if rdb.Ping(ctx).Err() != nil {
			unavailable = append(unavailable, "redis")
		}
		if len(unavailable) > 0 {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(db *gorm.DB, rdb *redis.Client, reconciler *clients.ReconcilerClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services := map[string]map[string]interface{}{
			"database": checkServiceHealth(checkDB(ctx, db)),
			"redis":    checkServiceHealth(rdb.Ping(ctx).Err()),
		}
		serving, err := reconciler.Check(ctx)
		if err == nil && !serving {
			err = errors.New("reconciler is not serving")
		}
		services["reconciler"] = checkServiceHealth(err)

		overallStatus := "healthy"
		for _, service := range services {
			if service["status"] != "healthy" {
				overallStatus = "degraded"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func checkDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func checkServiceHealth(err error) map[string]interface{} {
	if err != nil {
		logrus.WithError(err).Debug("health check failed")
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Service is responding",
	}
}
