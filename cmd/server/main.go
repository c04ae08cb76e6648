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

	"github.com/rotaops/ingest/internal/cache"
	"github.com/rotaops/ingest/internal/config"
	"github.com/rotaops/ingest/internal/db"
	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/middleware"
	"github.com/rotaops/ingest/internal/organization"
	"github.com/rotaops/ingest/internal/ratelimit"
	"github.com/rotaops/ingest/internal/repository"
	"github.com/rotaops/ingest/internal/upload"

	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	orgRepo := repository.NewOrganizationRepository(conn)
	dataRepo := repository.NewUploadDataRepository(conn.Pool)
	logRepo := repository.NewUploadLogRepository(conn.Pool)
	errRepo := repository.NewUploadErrorRepository(conn.Pool)

	// Create the upload pipeline
	validator := upload.NewValidator(cfg.Upload.MaxFiles, cfg.Upload.MaxFileBytes)
	inserter := upload.NewBatchInserter(dataRepo, cfg.Upload.BatchSize, cfg.Upload.RPCTimeout)
	limiter := ratelimit.New(cfg.Upload.RateLimitMax, cfg.Upload.RateLimitWindow)
	refresher := upload.NewRefresher(dataRepo, cfg.Upload.RefreshTimeout)
	service := upload.NewService(validator, inserter, dataRepo, logRepo, errRepo, limiter, refresher)

	// Organization lookups are cached per process
	orgCache := cache.New[domain.Organization](256, 5*time.Minute)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := http.NewServeMux()
	mux.Handle("/organizations", organization.NewHandler(orgRepo))
	mux.Handle("/upload", upload.NewHTTPHandler(service, orgRepo, orgCache))
	mux.Handle("/uploads", upload.NewHistoryHandler(logRepo))
	mux.Handle("/uploads/errors", upload.NewErrorsHandler(errRepo))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := corsHandler.Handler(middleware.LoggingMiddleware(middleware.OrganizationScopeMiddleware(mux)))

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Expire stale rate-limit entries in the background
	go func() {
		ticker := time.NewTicker(cfg.Upload.RateLimitWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.CleanupExpired()
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		log.Printf("Starting ingestion server on :%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
