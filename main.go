// Package main provides the main entry point for the Copyforge generation service
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

	"github.com/gofiber/fiber/v3"
	"github.com/mzare/copyforge/app/handlers"
	"github.com/mzare/copyforge/app/router"
	"github.com/mzare/copyforge/app/services"
	businessflow "github.com/mzare/copyforge/business_flow"
	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Copyforge application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	services.SetupLogging(&cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start metrics server in goroutine
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, promhttp.Handler())
			address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port)
			log.Printf("Metrics server starting on %s%s", address, cfg.Metrics.Path)
			if err := http.ListenAndServe(address, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError turns unique-index violations into gorm.ErrDuplicatedKey,
	// which the idempotency insert path depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	generationRepo := repository.NewGenerationRepository(db)
	templateRepo := repository.NewPromptTemplateRepository(db)

	// Initialize services
	templateCache := services.NewTemplateCache(rc, &cfg.Cache)
	aiClient := services.NewOpenAIClient(&cfg.AI)
	keystoreClient := services.NewKeystoreClient(cfg.Keystore.BaseURL, cfg.Keystore.APIKey, cfg.Keystore.Timeout)
	ledgerClient := services.NewLedgerClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey, cfg.Ledger.Timeout,
		cfg.Ledger.MaxAttempts, cfg.Ledger.RetryBackoff)

	var tokenService services.TokenService
	if cfg.ServiceAuth.Enabled {
		tokenService, err = services.NewTokenService(cfg.ServiceAuth.SecretKey, cfg.ServiceAuth.TokenTTL,
			cfg.ServiceAuth.Issuer, cfg.ServiceAuth.Audience)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
		log.Printf("Service auth enabled with issuer: %s, audience: %s", cfg.ServiceAuth.Issuer, cfg.ServiceAuth.Audience)
	}

	// Initialize flows
	generationFlow := businessflow.NewGenerationFlow(
		generationRepo,
		templateRepo,
		templateCache,
		aiClient,
		keystoreClient,
		ledgerClient,
		&cfg.Generation,
	)

	templateFlow := businessflow.NewTemplateFlow(templateRepo, templateCache)

	reportFlow := businessflow.NewReportFlow(generationRepo)

	// Initialize handlers
	generationHandler := handlers.NewGenerationHandler(generationFlow)
	templateHandler := handlers.NewTemplateAdminHandler(templateFlow)
	reportHandler := handlers.NewReportAdminHandler(reportFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		generationHandler,
		templateHandler,
		reportHandler,
		tokenService,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
