package router

import (
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/config"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/di"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/errors"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/jwt"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/middleware"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/shared/observability"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Request ID first so every later middleware logs with it.
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuth(r.Container.JWTService, r.Logger)
	optionalAuth := middleware.OptionalJWTAuth(r.Container.JWTService)
	agentOnly := middleware.RequireRole(jwt.RoleAgent)
	adminOnly := middleware.RequireRole(jwt.RoleAdmin)

	c := r.Container

	v1 := r.Engine.Group("/api/v1")

	// Auth
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", c.AuthHandler.Signup)
		auth.POST("/login", c.AuthHandler.Login)
		auth.GET("/me", jwtAuth, c.AuthHandler.Me)
	}

	// Catalog: reads are public, writes are admin.
	products := v1.Group("/products")
	{
		products.GET("", c.ProductHandler.List)
		products.GET("/:id", c.ProductHandler.Get)
		products.POST("", jwtAuth, adminOnly, c.ProductHandler.Create)
		products.PUT("/:id", jwtAuth, adminOnly, c.ProductHandler.Update)
		products.DELETE("/:id", jwtAuth, adminOnly, c.ProductHandler.Delete)
	}

	// Orders
	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", c.OrderHandler.Create)
		orders.GET("", c.OrderHandler.List)
		orders.GET("/:id", c.OrderHandler.Get)
		orders.PUT("/:id/status", adminOnly, c.OrderHandler.UpdateStatus)
	}

	// Chat: rooms accept both authenticated customers and guests, so only
	// optional auth sits in front; the handlers enforce room-level access.
	chat := v1.Group("/chat")
	{
		rooms := chat.Group("/rooms")
		{
			rooms.POST("", optionalAuth, c.RoomHandler.Create)
			rooms.GET("", jwtAuth, agentOnly, c.RoomHandler.List)
			rooms.GET("/:id", optionalAuth, c.RoomHandler.Get)
			rooms.GET("/:id/messages", optionalAuth, c.RoomHandler.Messages)
			rooms.POST("/:id/messages", optionalAuth, c.RoomHandler.PostMessage)
			rooms.POST("/:id/read", optionalAuth, c.RoomHandler.MarkRead)
			rooms.POST("/:id/escalate", optionalAuth, c.RoomHandler.RequestHuman)
			rooms.PUT("/:id", optionalAuth, c.RoomHandler.Update)
		}

		bot := chat.Group("/bot")
		{
			bot.POST("/query", c.BotHandler.Query)
			bot.POST("/rules", jwtAuth, adminOnly, c.BotHandler.CreateRule)
			bot.PUT("/rules/:id", jwtAuth, adminOnly, c.BotHandler.UpdateRule)
			bot.DELETE("/rules/:id", jwtAuth, adminOnly, c.BotHandler.DeleteRule)
		}

		agents := chat.Group("/agents", jwtAuth)
		{
			agents.GET("", adminOnly, c.AgentHandler.List)
			agents.POST("", adminOnly, c.AgentHandler.Create)
			agents.PUT("/status", agentOnly, c.AgentHandler.UpdateStatus)
			agents.POST("/heartbeat", agentOnly, c.AgentHandler.Heartbeat)
		}

		chat.GET("/stats", jwtAuth, agentOnly, c.AgentHandler.Stats)
	}

	// Admin user management
	admin := v1.Group("/admin", jwtAuth, adminOnly)
	{
		admin.PUT("/users/:id/role", c.AuthHandler.UpdateUserRole)
	}

	// Live chat socket
	r.Engine.GET("/ws/chat", optionalAuth, c.WSHandler.Serve)

	// Operational endpoints
	r.Engine.GET("/health", r.healthHandler())
	r.Engine.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
}

// corsMiddleware allows the storefront frontend and websocket upgrades.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
