package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/infrastructure/auth"
	"github.com/fablab/backend/internal/infrastructure/config"
	"github.com/fablab/backend/internal/infrastructure/logger"
	"github.com/fablab/backend/internal/interfaces/http/handler"
	"github.com/fablab/backend/internal/interfaces/http/middleware"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Invoice  *handler.InvoiceHandler
	Schedule *handler.ScheduleHandler
	Webhook  *handler.WebhookHandler
	System   *handler.SystemHandler
}

// Setup assembles the gin engine: middleware chain, probe endpoints and
// the versioned API surface.
func Setup(cfg *config.Config, tokens *auth.TokenService, handlers Handlers, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowedMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowedHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
		engine.Use(middleware.TraceEnrichment())
	}
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitRequests)
		engine.Use(middleware.RateLimit(limiter, cfg.HTTP.RateLimitRequests))
	}

	engine.GET("/health", handlers.System.Health)
	engine.GET("/ready", handlers.System.Ready)

	api := engine.Group("/api/v1")
	api.POST("/auth/login", handlers.Auth.Login)
	// gateway deliveries authenticate by signature, not by token
	api.POST("/webhooks/stripe", handlers.Webhook.Stripe)

	authed := api.Group("")
	authed.Use(middleware.JWT(tokens))

	authed.GET("/invoices", handlers.Invoice.List)
	authed.GET("/invoices/:id", handlers.Invoice.Get)
	authed.GET("/invoices/:id/download", handlers.Invoice.Download)

	authed.GET("/payment-schedules", handlers.Schedule.List)
	authed.GET("/payment-schedules/:id", handlers.Schedule.Get)
	authed.GET("/payment-schedules/:id/download", handlers.Schedule.Download)
	authed.POST("/payment-schedules/:id/sync",
		middleware.RequireRole(member.RoleAdmin), handlers.Schedule.Sync)
	authed.POST("/payment-schedules/items/:id/confirm", handlers.Schedule.Confirm)
	authed.POST("/payment-schedules/items/:id/cash-check",
		middleware.RequireRole(member.RoleAdmin, member.RoleManager), handlers.Schedule.CashCheck)

	return engine
}
