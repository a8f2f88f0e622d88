package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/parkandgreet/booking-backend/internal/cache"
	"github.com/parkandgreet/booking-backend/internal/config"
	"github.com/parkandgreet/booking-backend/internal/database"
	"github.com/parkandgreet/booking-backend/internal/handlers"
	"github.com/parkandgreet/booking-backend/internal/middleware"
	"github.com/parkandgreet/booking-backend/internal/services"
	"github.com/parkandgreet/booking-backend/pkg/metrics"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Park & Greet Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Redis cache
	logger.Info("Connecting to Redis...")
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTL)
	defer redisCache.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.Fatalf("Failed to ping Redis: %v", err)
	}
	cancelPing()
	logger.Info("Redis connection established")

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// Initialize repositories
	draftRepository := database.NewDraftRepository(db)
	auditRepository := database.NewAuditRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	catalogService := services.NewFlightCatalogService(cfg.Services, redisCache, logger)
	availabilityService := services.NewAvailabilityService(redisCache, cfg.Booking, logger)
	matcherService := services.NewReturnMatcherService(logger)
	pricingService := services.NewPricingService(cfg.Services, logger)
	promoService := services.NewPromoService(cfg.Services, logger)
	customerService := services.NewCustomerService(cfg.Services, logger)
	auditService := services.NewAuditService(auditRepository, logger)

	wizardService := services.NewWizardService(
		draftRepository,
		catalogService,
		availabilityService,
		matcherService,
		pricingService,
		promoService,
		customerService,
		auditService,
		cfg.Booking,
		logger,
	).WithMetrics(appMetrics)
	logger.Info("Services initialized")

	// Initialize handlers
	wizardHandler := handlers.NewWizardHandler(wizardService, logger)
	flightHandler := handlers.NewFlightHandler(wizardService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(middleware.MetricsMiddleware(appMetrics))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", services.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, redisCache))

	// Prometheus metrics endpoint
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.SessionMiddleware())
	{
		wizard := v1.Group("/wizard")
		{
			wizard.GET("/draft", wizardHandler.GetDraft)
			wizard.PATCH("/draft", wizardHandler.UpdateDraft)
			wizard.DELETE("/draft", wizardHandler.ClearDraft)

			wizard.POST("/advance", wizardHandler.Advance)
			wizard.POST("/retreat", wizardHandler.Retreat)

			wizard.GET("/slots", flightHandler.GetSlots)
			wizard.GET("/return-flight", flightHandler.GetReturnFlight)

			wizard.GET("/quote", wizardHandler.GetQuote)
			wizard.POST("/promo", wizardHandler.ApplyPromo)
			wizard.DELETE("/promo", wizardHandler.RemovePromo)
		}

		flights := v1.Group("/flights")
		{
			flights.GET("/departures", flightHandler.GetDepartures)
			flights.GET("/arrivals", flightHandler.GetArrivals)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if sessionID, exists := c.Get("wizard_session_id"); exists {
			fields["session_id"] = sessionID
		}

		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports process and dependency health
func healthCheckHandler(db database.DB, redisCache *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "healthy",
			"version":   version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK

		if err := db.Ping(); err != nil {
			health["status"] = "degraded"
			health["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "ok"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["cache"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			health["cache"] = "ok"
		}

		c.JSON(status, health)
	}
}
