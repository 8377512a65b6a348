package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tbessard/devismail/internal"
	"github.com/tbessard/devismail/internal/email"
	"github.com/tbessard/devismail/internal/handler"
	"github.com/tbessard/devismail/internal/metrics"
	"github.com/tbessard/devismail/internal/middleware"
	"github.com/tbessard/devismail/internal/service"
	"github.com/tbessard/devismail/internal/storage"
	"github.com/tbessard/devismail/internal/store"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize quote store
	quotes, err := store.NewFileStore(store.Config{
		Path:       cfg.StorePath,
		StrictRead: cfg.StoreStrictRead,
	}, logger)
	if err != nil {
		return fmt.Errorf("quote store initialization failed: %w", err)
	}
	logger.Info("Quote store ready", "path", cfg.StorePath)

	// Initialize attachment storage
	var attachments storage.Storage
	switch cfg.StorageProvider {
	case "r2":
		attachments, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("r2 storage initialization failed: %w", err)
		}
	default:
		attachments, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("local storage initialization failed: %w", err)
		}
	}

	// Initialize mail transport
	var mailer email.Mailer
	switch cfg.MailProvider {
	case "api":
		mailer, err = email.NewAPIMailer(email.APIConfig{
			URL:      cfg.MailAPIURL,
			Token:    cfg.MailAPIToken,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}, logger)
		if err != nil {
			return fmt.Errorf("mail API initialization failed: %w", err)
		}
	default:
		mailer = email.NewSMTPMailer(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}, logger)
	}

	// Initialize dispatch service
	branding := email.Branding{
		CompanyName:  cfg.CompanyName,
		LogoURL:      cfg.CompanyLogo,
		WebsiteURL:   cfg.WebsiteURL,
		SupportEmail: cfg.SupportEmail,
		ReplyURL:     cfg.ReplyURL,
	}
	dispatcher := service.NewDispatcher(quotes, mailer, attachments, branding, service.Options{
		ReplyTo:        cfg.MailReplyTo,
		MaxRetries:     cfg.MailMaxRetries,
		RetryBaseDelay: cfg.MailRetryBaseDelay,
		SendTimeout:    cfg.MailSendTimeout,
	}, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsMw := metrics.Middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	rateLimitMw := middleware.NewRateLimitMiddleware(rateLimiter, logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	quoteHandler := handler.NewQuoteHandler(dispatcher, quotes, logger)
	attachmentHandler := handler.NewAttachmentHandler(attachments, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Quote API
	quoteHandler.RegisterRoutes(mux)
	attachmentHandler.RegisterRoutes(mux)

	// Middleware chain: security headers -> metrics -> logging -> rate limit
	root := securityMw.Handler(metricsMw(loggingMw.Handler(rateLimitMw.Limit(mux))))

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
