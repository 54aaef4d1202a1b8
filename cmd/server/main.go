package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/database"
	"rekrut-portal/internal/email"
	"rekrut-portal/internal/notify"
	"rekrut-portal/internal/server"
	"rekrut-portal/pkg/logger"

	"go.uber.org/zap"
)

// @title Rekrut Portal API
// @version 1.0
// @description REST API untuk portal rekrutmen dan penempatan kerja

// @contact.name API Support
// @contact.email support@rekrut-portal.id

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Cfg

	// Initialize logger
	if err := logger.Init(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting Rekrut Portal API",
		zap.String("version", "1.0.0"),
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	// Connect to database
	if err := database.Connect(cfg, logger.Logger); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Seed development data
	if cfg.IsDevelopment() && cfg.Dev.SeedData {
		if err := database.SeedDatabase(database.DB); err != nil {
			logger.Error("Failed to seed development data", zap.Error(err))
		}
	}

	// Initialize server
	srv, err := server.New(cfg, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	// Background workers stop when this context is cancelled
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Notification dispatcher delivers queued emails with retry
	sender := email.NewEmailService(cfg, logger.Logger)
	dispatcher := notify.NewDispatcher(database.DB, sender, cfg.Notify, logger.Logger)
	go dispatcher.Run(workerCtx)

	// Periodic placement sweep: activations, expiry alerts, expirations
	go runPlacementSweeps(workerCtx, srv)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Router,

		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,

		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", httpServer.Addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Failed to close database connection", zap.Error(err))
	}

	logger.Info("Server shutdown complete")
}

// runPlacementSweeps runs the placement lifecycle sweeps on a fixed interval.
func runPlacementSweeps(ctx context.Context, srv *server.Server) {
	interval := config.Cfg.Notify.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.PlacementManager.ActivateDue(); err != nil {
				logger.Error("Placement activation sweep failed", zap.Error(err))
			}
			if _, err := srv.PlacementManager.SendExpiryAlerts(); err != nil {
				logger.Error("Expiry alert sweep failed", zap.Error(err))
			}
			if _, err := srv.PlacementManager.ExpireDue(); err != nil {
				logger.Error("Placement expiry sweep failed", zap.Error(err))
			}
		}
	}
}
