// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/mzare/copyforge/app/dto"
	"github.com/mzare/copyforge/app/handlers"
	"github.com/mzare/copyforge/app/middleware"
	"github.com/mzare/copyforge/app/services"
	"github.com/mzare/copyforge/config"
	"github.com/mzare/copyforge/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app               *fiber.App
	cfg               *config.ProductionConfig
	generationHandler handlers.GenerationHandlerInterface
	templateHandler   handlers.TemplateAdminHandlerInterface
	reportHandler     handlers.ReportAdminHandlerInterface
	tokenService      services.TokenService
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	generationHandler handlers.GenerationHandlerInterface,
	templateHandler handlers.TemplateAdminHandlerInterface,
	reportHandler handlers.ReportAdminHandlerInterface,
	tokenService services.TokenService,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Copyforge API",
		ServerHeader: "Copyforge",
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:               app,
		cfg:               cfg,
		generationHandler: generationHandler,
		templateHandler:   templateHandler,
		reportHandler:     reportHandler,
		tokenService:      tokenService,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting, no auth)
	api.Get("/health", r.healthCheck)

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Generation endpoints: organization identity required, plus the
	// optional internal service token.
	generate := api.Group("/generate",
		middleware.ServiceAuth(r.tokenService, r.cfg.ServiceAuth.Enabled),
		middleware.OrganizationAuth(),
	)
	generate.Post("/", r.generationHandler.GenerateFromTemplate)
	generate.Post("/content", r.generationHandler.GenerateContent)
	generate.Post("/calendar", r.generationHandler.GenerateCalendar)

	// Administrative endpoints: service token only, no organization scoping
	admin := api.Group("/admin",
		middleware.ServiceAuth(r.tokenService, r.cfg.ServiceAuth.Enabled),
	)
	admin.Put("/templates", r.templateHandler.UpsertTemplate)
	admin.Get("/templates/:app_id", r.templateHandler.ListTemplates)
	admin.Get("/reports/usage", r.reportHandler.UsageReport)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		ContentTypeNosniff: r.cfg.Security.XContentTypeOptions,
		XFrameOptions:      r.cfg.Security.XFrameOptions,
		ReferrerPolicy:     r.cfg.Security.ReferrerPolicy,
	}))

	// CORS middleware; callers are internal services, so origins default empty
	if len(r.cfg.Security.AllowedOrigins) > 0 {
		r.app.Use(cors.New(cors.Config{
			AllowOrigins:     r.cfg.Security.AllowedOrigins,
			AllowMethods:     r.cfg.Security.AllowedMethods,
			AllowHeaders:     r.cfg.Security.AllowedHeaders,
			AllowCredentials: r.cfg.Security.AllowCredentials,
			MaxAge:           r.cfg.Security.CORSMaxAge,
		}))
	}

	// Compression middleware
	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	// Structured access logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Prometheus metrics
	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.cfg.Deployment.Version,
			"service":   "copyforge-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
		},
	})
}

// generateRequestID creates a random request identifier
func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(bytes)
}
