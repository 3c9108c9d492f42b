package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomstout/gifter/internal/database"
	"github.com/tomstout/gifter/internal/email"
	"github.com/tomstout/gifter/internal/logging"
	"github.com/tomstout/gifter/internal/media"
	"github.com/tomstout/gifter/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("GIFTER_LOG_LEVEL"))

	port := os.Getenv("GIFTER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("GIFTER_DB_PATH")
	if dbPath == "" {
		dbPath = "gifter.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	baseURL := os.Getenv("GIFTER_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}
	emailClient := email.NewClient(
		os.Getenv("GIFTER_POSTMARK_TOKEN"),
		os.Getenv("GIFTER_EMAIL_FROM"),
		os.Getenv("GIFTER_ADMIN_EMAIL"),
		baseURL,
	)
	if !emailClient.Configured() {
		logger.Warn("email not configured, registration notices disabled")
	}

	mediaStorage := media.NewStorage(media.Config{
		Endpoint:  os.Getenv("GIFTER_S3_ENDPOINT"),
		Bucket:    os.Getenv("GIFTER_S3_BUCKET"),
		Region:    os.Getenv("GIFTER_S3_REGION"),
		AccessKey: os.Getenv("GIFTER_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("GIFTER_S3_SECRET_KEY"),
	})
	if !mediaStorage.Configured() {
		logger.Warn("object storage not configured, image uploads disabled")
	}

	srv := server.New(db, emailClient, mediaStorage, logger)

	// Hourly sweep of expired sessions and stale rate-limit buckets.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Warn("session cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("gifter listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(cleanupDone)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
