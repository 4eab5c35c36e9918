package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexystyles/storefront-backend/config"
	"github.com/flexystyles/storefront-backend/internal/app/controller"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/cart"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/flexystyles/storefront-backend/internal/identity"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/flexystyles/storefront-backend/internal/router"
	"github.com/flexystyles/storefront-backend/internal/scheduler"
	"github.com/flexystyles/storefront-backend/internal/storage"
	ws "github.com/flexystyles/storefront-backend/internal/websocket"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/payment/razorpay"
	pkgredis "github.com/flexystyles/storefront-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting FlexyStyles storefront server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"cart_store":  cfg.Cart.Store,
		"log_level":   logLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	if err := db.SeedAdmin(db.GetDB(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Warn("Failed to seed admin account", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Guest carts and the token blacklist live in Redis
	redisClient, err := pkgredis.Init(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer pkgredis.Close()

	remoteCarts, err := remoteCartStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize cart store", err)
	}

	razorpayClient, err := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Payment.Razorpay.KeyID,
		KeySecret: cfg.Payment.Razorpay.KeySecret,
		BaseURL:   cfg.Payment.Razorpay.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway client", err)
	}

	// Cart engine
	hub := ws.NewHub()
	go hub.Run(ctx)

	writer := cart.NewWriter(cfg.Cart.WriteTimeout, cfg.Cart.MaxWriteAttempts)
	go writer.Run(ctx)

	manager := cart.NewManager(cart.Backend{
		Local:    storage.NewGuestCartStore(redisClient, cfg.Cart.GuestTTL),
		Remote:   remoteCarts,
		Writer:   writer,
		Strategy: cart.ParseMergeStrategy(cfg.Cart.MergeStrategy),
	}, hub)

	bus := identity.NewBus()
	events, unsubscribe := bus.Subscribe(64)
	go manager.Listen(ctx, events)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	addressRepo := repository.NewAddressRepository(db.GetDB())
	verificationRepo := repository.NewPaymentVerificationRepository(db.GetDB())

	// Initialize services
	blacklist := pkgredis.NewTokenBlacklist(redisClient)
	authService := service.NewAuthService(
		userRepo,
		bus,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(manager, productService)
	orderService := service.NewOrderService(orderRepo, manager)
	paymentService := service.NewPaymentService(razorpayClient, verificationRepo)
	checkoutService := service.NewCheckoutService(
		cartService,
		productService,
		paymentService,
		orderService,
		cfg.Payment.Razorpay.Currency,
		cfg.Payment.CheckoutTTL,
	)
	addressService := service.NewAddressService(addressRepo)

	var uploadController *controller.UploadController
	if cfg.S3.Bucket != "" {
		uploadController = controller.NewUploadController(storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		))
	}

	// Housekeeping
	cartScheduler := scheduler.NewCartScheduler(writer, manager, checkoutService, scheduler.CartSchedule{
		Spec:           cfg.Cart.RetrySchedule,
		SessionIdleTTL: cfg.Cart.SessionIdleTTL,
		CheckoutTTL:    cfg.Payment.CheckoutTTL,
	})
	if err := cartScheduler.Start(); err != nil {
		logger.Fatal("Failed to start cart scheduler", err)
	}

	// Setup router
	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService, hub, cfg.CORS.AllowedOrigins),
		controller.NewCheckoutController(checkoutService),
		controller.NewOrderController(orderService),
		controller.NewAddressController(addressService),
		uploadController,
		middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist),
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
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

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}

	cartScheduler.Stop()
	unsubscribe()
	bus.Close()

	// flush queued cart writes before the stores go away
	writer.Retry()
	writer.Drain(shutdownCtx)

	logger.Info("Server stopped successfully", map[string]interface{}{
		"writes": writer.Stats(),
	})
}

// remoteCartStore picks where signed-in carts are persisted.
func remoteCartStore(ctx context.Context, cfg *config.Config) (cart.RemoteStore, error) {
	if cfg.Cart.Store != "mongo" {
		return repository.NewCartRepository(db.GetDB()), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	database, err := storage.ConnectMongoDB(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	store := storage.NewMongoCartStore(database)
	if err := store.CreateIndexes(connectCtx); err != nil {
		return nil, err
	}

	logger.Info("Using MongoDB cart store", map[string]interface{}{
		"database": cfg.Mongo.Database,
	})
	return store, nil
}
