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
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/config"
	"github.com/smarttransit/booking-engine/internal/database"
	"github.com/smarttransit/booking-engine/internal/handlers"
	"github.com/smarttransit/booking-engine/internal/middleware"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/services"
	"github.com/smarttransit/booking-engine/pkg/events"
	"github.com/smarttransit/booking-engine/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		gin.SetMode(gin.DebugMode)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	logger.Info("Starting SmartTransit booking engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Database
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	store := database.NewPostgresStore(db, logger)
	defer store.Close()
	logger.Info("Database connection established")

	// Domain events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Messaging.RabbitURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Messaging.RabbitURL, cfg.Messaging.Exchange)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		publisher = amqpPublisher
		logger.WithField("exchange", cfg.Messaging.Exchange).Info("Publishing booking events to RabbitMQ")
	} else {
		logger.Warn("RABBITMQ_URL not set, booking events are dropped")
	}
	defer publisher.Close()

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	feePolicy := models.NewFeePolicy(cfg.Booking.CancellationFeeTiers)

	auditService := services.NewAuditService(store, logger)
	ticketService := services.NewTicketService(store, logger)
	seatService := services.NewSeatInventoryService(services.SeatInventoryConfig{
		Store:     store,
		Audit:     auditService,
		Publisher: publisher,
		Logger:    logger,
	})
	bookingService := services.NewBookingService(services.BookingServiceConfig{
		Store:     store,
		Audit:     auditService,
		Tickets:   ticketService,
		Publisher: publisher,
		Logger:    logger,
	})
	cancellationService := services.NewCancellationService(services.CancellationServiceConfig{
		Store:     store,
		Audit:     auditService,
		Publisher: publisher,
		FeePolicy: feePolicy,
		Logger:    logger,
	})
	sweeper := services.NewOrphanSweeper(services.OrphanSweeperConfig{
		Store:          store,
		Audit:          auditService,
		Publisher:      publisher,
		Logger:         logger,
		HoldWindow:     cfg.Booking.HoldWindow,
		BatchSize:      cfg.Booking.OrphanSweepBatchSize,
		AllowSeatReset: cfg.Booking.AllowSeatReset,
	})
	fleetService := services.NewFleetService(store, auditService, seatService, logger, nil)
	userService := services.NewUserService(store, auditService, nil)
	paymentService := services.NewPaymentService(store, auditService, publisher, logger, nil)
	analyticsService := services.NewAnalyticsService(database.NewAnalyticsRepository(store.DB()), nil)

	// Background jobs
	var cronService *services.CronService
	if cfg.Booking.EnableCron {
		cronService = services.NewCronService(sweeper, cancellationService, services.CronSchedules{
			OrphanSweep: cfg.Booking.OrphanSweepCron,
			Completion:  cfg.Booking.CompletionCron,
		}, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	} else {
		logger.Warn("Cron disabled, orphaned holds are only released on demand")
	}

	// Handlers
	h := handlers.Handlers{
		Health:    handlers.NewHealthHandler(store, version, logger),
		Bookings:  handlers.NewBookingHandler(bookingService, cancellationService, ticketService, sweeper, logger),
		Schedules: handlers.NewScheduleHandler(fleetService, seatService, logger),
		Fleet:     handlers.NewFleetHandler(fleetService, logger),
		Users:     handlers.NewUserHandler(userService, logger),
		Payments:  handlers.NewPaymentHandler(paymentService, logger),
		Audit:     handlers.NewAuditHandler(auditService, logger),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, logger),
	}

	// Initialize Gin router
	router := gin.New()
	// nil trusts no proxy, so ClientIP is the peer address
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	closeLimiter := func() error { return nil }
	if cfg.RateLimit.Enabled {
		limiterStore, closeFn, err := middleware.NewLimiterStore(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		closeLimiter = closeFn
		router.Use(middleware.RateLimiter(cfg.RateLimit, limiterStore, logger))
	}

	handlers.SetupRoutes(router, h, middleware.AuthMiddleware(jwtService, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

	if cronService != nil {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := closeLimiter(); err != nil {
		logger.WithError(err).Warn("Failed to close rate limiter store")
	}

	logger.Info("Server exited successfully")
}

// requestLogger logs every request once it completes
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
