// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/handlers"
	"github.com/clearlens/campaign-engine/app/middleware"
	"github.com/clearlens/campaign-engine/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	authHandler      *handlers.AuthHandler
	campaignHandler  *handlers.CampaignHandler
	recipientHandler *handlers.RecipientHandler
	templateHandler  *handlers.TemplateHandler
	segmentHandler   *handlers.SegmentHandler
	analyticsHandler *handlers.AnalyticsHandler
	authMiddleware   *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	authHandler *handlers.AuthHandler,
	campaignHandler *handlers.CampaignHandler,
	recipientHandler *handlers.RecipientHandler,
	templateHandler *handlers.TemplateHandler,
	segmentHandler *handlers.SegmentHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	// Configure Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ClearLens Campaign Engine API",
		ServerHeader: "ClearLens",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		authHandler:      authHandler,
		campaignHandler:  campaignHandler,
		recipientHandler: recipientHandler,
		templateHandler:  templateHandler,
		segmentHandler:   segmentHandler,
		analyticsHandler: analyticsHandler,
		authMiddleware:   authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Prometheus scrape endpoint
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API documentation route (development only)
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "local" {
		api.Get("/docs", r.getAPIDocumentation)
		log.Println("API documentation enabled for development")
	}

	// Apply general rate limiting to all API routes (aligned with nginx)
	api.Use(limiter.New(limiter.Config{
		Max:        2000,            // Maximum 2000 requests (matches nginx api zone)
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
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
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")

	// Apply stricter rate limiting to auth endpoints (aligned with nginx)
	auth.Use(limiter.New(limiter.Config{
		Max:        20,              // Maximum 20 requests (matches nginx auth zone)
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
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
	}))

	// Auth endpoints
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.RefreshToken)

	// Everything below requires a valid staff token
	authenticated := api.Group("", r.authMiddleware.Authenticate())

	// Campaign endpoints
	campaigns := authenticated.Group("/campaigns")
	campaigns.Post("/", r.campaignHandler.CreateCampaign)
	campaigns.Get("/", r.campaignHandler.ListCampaigns)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign)
	campaigns.Patch("/:uuid", r.campaignHandler.UpdateCampaign)
	campaigns.Delete("/:uuid", r.campaignHandler.DeleteCampaign)
	campaigns.Post("/:uuid/activate", r.campaignHandler.ActivateCampaign)
	campaigns.Post("/:uuid/pause", r.campaignHandler.PauseCampaign)
	campaigns.Post("/:uuid/archive", r.campaignHandler.ArchiveCampaign)
	campaigns.Post("/:uuid/run", r.campaignHandler.TriggerCampaignRun)

	// Recipient endpoints (nested under campaigns)
	campaigns.Post("/:uuid/recipients", r.recipientHandler.EnrollCustomer)
	campaigns.Get("/:uuid/recipients", r.recipientHandler.ListRecipients)
	campaigns.Delete("/:uuid/recipients/:recipient_uuid", r.recipientHandler.RemoveRecipient)

	// Analytics endpoints (nested under campaigns)
	campaigns.Get("/:uuid/analytics", r.analyticsHandler.GetCampaignAnalytics)
	campaigns.Get("/:uuid/analytics/export", r.analyticsHandler.ExportCampaignAnalytics)
	campaigns.Get("/:uuid/runs", r.analyticsHandler.ListCampaignRuns)

	// Message template endpoints
	templates := authenticated.Group("/templates")
	templates.Post("/", r.templateHandler.CreateTemplate)
	templates.Get("/", r.templateHandler.ListTemplates)
	templates.Get("/:uuid", r.templateHandler.GetTemplate)
	templates.Patch("/:uuid", r.templateHandler.UpdateTemplate)
	templates.Delete("/:uuid", r.templateHandler.DeleteTemplate)

	// Segment endpoints
	segments := authenticated.Group("/segments")
	segments.Post("/preview", r.segmentHandler.PreviewSegment)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
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
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://clearlens.io",
			"https://api.clearlens.io",
			"https://app.clearlens.io",
			"https://monitoring.clearlens.io",
		},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for spreadsheet exports, xlsx is already deflated
			contentType := c.Get("Content-Type")
			return contains(contentType, "application/vnd.openxmlformats")
		},
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks and metrics scrapes in production
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Request metrics middleware
	r.app.Use(middleware.Metrics())

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
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

// Custom security middleware
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	// Add security headers
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "ClearLens")

	// IP validation (if configured)
	clientIP := c.IP()

	// Simple IP blocking example
	blockedIPs := []string{
		"127.0.0.2", // Example blocked IP
	}

	for _, blockedIP := range blockedIPs {
		if clientIP == blockedIP {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Access denied from this IP address",
				Error: dto.ErrorDetail{
					Code: "ACCESS_DENIED",
				},
			})
		}
	}

	// Continue to next middleware
	return c.Next()
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
			"version":   "1.0.0",
			"service":   "campaign-engine-api",
		},
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	docs := GetRouteDocumentation()
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "ClearLens Campaign Engine API Documentation",
			"version":     "1.0.0",
			"description": "Campaign management, enrollment, and drip scheduling API",
			"endpoints":   docs,
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	return strings.Contains(str, substr)
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "POST",
			"path":        "/api/v1/auth/login",
			"description": "Authenticate staff with email and password",
			"parameters": map[string]any{
				"email":    "string (required) - Staff email address",
				"password": "string (required) - Staff password",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/auth/refresh",
			"description": "Exchange a refresh token for a new token pair",
			"parameters": map[string]any{
				"refresh_token": "string (required) - Refresh token from login",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns",
			"description": "Create a new campaign in draft status",
			"parameters": map[string]any{
				"name":               "string (required) - Campaign name",
				"description":        "string (optional) - Campaign description",
				"segment":            "object (required) - Segment criteria the campaign targets",
				"steps":              "array (required) - Ordered drip steps",
				"enrollment_mode":    "string (optional) - auto|manual (default: manual)",
				"stop_on_conversion": "bool (optional) - Stop messaging converted recipients",
				"cooldown_days":      "number (optional) - Re-enrollment cooldown in days",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns",
			"description": "List campaigns with optional status filter and pagination",
			"parameters": map[string]any{
				"status": "string (optional) - draft|active|paused|archived",
				"page":   "number (optional) - Page number (default: 1)",
				"limit":  "number (optional) - Page size (default: 25)",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns/:uuid",
			"description": "Get a single campaign by UUID",
			"parameters":  map[string]any{},
		},
		{
			"method":      "PATCH",
			"path":        "/api/v1/campaigns/:uuid",
			"description": "Update a draft or paused campaign",
			"parameters": map[string]any{
				"name":        "string (optional) - New campaign name",
				"description": "string (optional) - New description",
				"segment":     "object (optional) - New segment criteria",
				"steps":       "array (optional) - New drip steps",
			},
		},
		{
			"method":      "DELETE",
			"path":        "/api/v1/campaigns/:uuid",
			"description": "Delete a draft campaign",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/activate",
			"description": "Activate a draft or paused campaign",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/pause",
			"description": "Pause an active campaign",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/archive",
			"description": "Archive a campaign permanently",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/run",
			"description": "Trigger an immediate processing run (admin only)",
			"parameters":  map[string]any{},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/campaigns/:uuid/recipients",
			"description": "Manually enroll a customer into a campaign",
			"parameters": map[string]any{
				"customer_uuid": "string (required) - Customer to enroll",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns/:uuid/recipients",
			"description": "List campaign recipients with optional status filter",
			"parameters": map[string]any{
				"status": "string (optional) - active|converted|completed|removed",
				"page":   "number (optional) - Page number (default: 1)",
				"limit":  "number (optional) - Page size (default: 25, max: 100)",
			},
		},
		{
			"method":      "DELETE",
			"path":        "/api/v1/campaigns/:uuid/recipients/:recipient_uuid",
			"description": "Remove a recipient from a campaign",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns/:uuid/analytics",
			"description": "Get aggregate campaign analytics",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns/:uuid/analytics/export",
			"description": "Download campaign analytics as an xlsx workbook",
			"parameters":  map[string]any{},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/campaigns/:uuid/runs",
			"description": "List processing runs for a campaign",
			"parameters": map[string]any{
				"page":  "number (optional) - Page number (default: 1)",
				"limit": "number (optional) - Page size (default: 20)",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/templates",
			"description": "Create a message template",
			"parameters": map[string]any{
				"name":    "string (required) - Unique template name",
				"channel": "string (required) - sms|email",
				"subject": "string (optional) - Email subject line",
				"body":    "string (required) - Template body with placeholders",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/templates",
			"description": "List message templates with optional channel filter",
			"parameters": map[string]any{
				"channel": "string (optional) - sms|email",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/segments/preview",
			"description": "Preview the customers a segment would match",
			"parameters": map[string]any{
				"segment": "object (required) - Segment criteria to evaluate",
				"limit":   "number (optional) - Sample size (default: 25, max: 100)",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
	}
}
