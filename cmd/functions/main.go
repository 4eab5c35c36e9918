package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexystyles/storefront-backend/config"
	"github.com/flexystyles/storefront-backend/internal/app/controller"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/flexystyles/storefront-backend/internal/router"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/payment/razorpay"
)

// functions serves the public createOrder and verifyPayment endpoints that the
// storefront calls directly from the browser.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:  "info",
		Format: "json",
	})

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

	gateway, err := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Payment.Razorpay.KeyID,
		KeySecret: cfg.Payment.Razorpay.KeySecret,
		BaseURL:   cfg.Payment.Razorpay.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway client", err)
	}

	paymentService := service.NewPaymentService(gateway, repository.NewPaymentVerificationRepository(db.GetDB()))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.FunctionsPort),
		Handler:           router.SetupFunctions(cfg, controller.NewPaymentFunctionsController(paymentService)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Payment functions listening", map[string]interface{}{
			"address":         srv.Addr,
			"allowed_origins": cfg.Functions.AllowedOrigins,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start payment functions", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Payment functions shutdown failed", err)
	}
	logger.Info("Payment functions stopped")
}
