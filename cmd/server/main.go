package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata" // business time zone must resolve in slim containers

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/config"
	"github.com/tourbooking/booking-backend/internal/database"
	"github.com/tourbooking/booking-backend/internal/handlers"
	"github.com/tourbooking/booking-backend/internal/middleware"
	"github.com/tourbooking/booking-backend/internal/services"
	"github.com/tourbooking/booking-backend/pkg/jwt"
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

	logger.Info("Starting Tour Booking Backend")
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

	location := cfg.Server.Location()
	logger.WithField("time_zone", location.String()).Info("Business time zone loaded")

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.MigrateOnStart {
		migrator, err := database.NewMigrator(db.DB.DB, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize migrator: %v", err)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = migrator.Up(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize repositories
	tourRepo := database.NewTourRepository(db.DB)
	scheduleRepo := database.NewScheduleRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB, cfg.Booking.CodePrefix)
	voucherRepo := database.NewVoucherRepository(db.DB)
	paymentRepo := database.NewPaymentRepository(db.DB)
	notificationRepo := database.NewNotificationRepository(db.DB)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	capacityService := services.NewCapacityService(scheduleRepo, location, logger)
	voucherService := services.NewVoucherService(voucherRepo, logger)
	cancellationPolicy := services.NewCancellationPolicy(cfg.Cancellation, location)
	bookingService := services.NewBookingService(
		tourRepo,
		scheduleRepo,
		bookingRepo,
		paymentRepo,
		capacityService,
		voucherService,
		cancellationPolicy,
		notificationService,
		cfg.Booking.MaxParticipants,
		logger,
	)
	suggestionService := services.NewSuggestionService(tourRepo, location, logger)
	receiptService := services.NewReceiptService(bookingService, tourRepo, scheduleRepo)
	remediationService := services.NewRemediationService(
		scheduleRepo,
		tourRepo,
		bookingService,
		voucherService,
		suggestionService,
		notificationService,
		cfg.Remediation,
		location,
		logger,
	)

	// Initialize and start cron service
	cronService := services.NewCronService(remediationService, cfg.Remediation, location, logger)
	if cfg.Remediation.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		logger.Info("✓ Cron service started - Low-occupancy remediation enabled")
	} else {
		logger.Warn("Low-occupancy remediation is disabled")
	}

	if cfg.Payment.CallbackSecret == "" {
		logger.Warn("PAYMENT_CALLBACK_SECRET is not set; payment callbacks will be rejected")
	}

	// Initialize handlers
	api := &handlers.Handlers{
		Bookings:      handlers.NewBookingHandler(bookingService, receiptService, logger),
		Payments:      handlers.NewPaymentHandler(bookingService, logger),
		Vouchers:      handlers.NewVoucherHandler(voucherService, logger),
		Tours:         handlers.NewTourHandler(capacityService, suggestionService, location, logger),
		Notifications: handlers.NewNotificationHandler(notificationRepo, logger),
		Admin:         handlers.NewAdminHandler(cronService, logger),
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	api.Register(v1,
		middleware.AuthMiddleware(jwtService, logger),
		middleware.RequirePaymentSignature(cfg.Payment.CallbackSecret))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
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

	// Stop cron service (waits for a running pass)
	cronService.Stop()

	// Flush pending outbox writes
	notificationService.Wait()

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
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		// Add user context if available
		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
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

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
