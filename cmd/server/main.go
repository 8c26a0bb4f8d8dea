package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatmodels "github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/config"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/di"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/health"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/router"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/secrets"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/shared/observability"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/shared/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "env", cfg.Server.Env)

	// Vault is optional; without it secrets fall back to the environment.
	if os.Getenv("VAULT_ENABLED") == "true" {
		if err := secrets.Init(log); err != nil {
			log.LogError(err, "Failed to initialize secrets manager, falling back to environment")
		}
	}

	// Observability: traces to stdout, metrics scraped from /metrics.
	shutdownTracing := observability.SetupTracing("storefront-chat")
	defer shutdownTracing()
	meterProvider := observability.SetupPrometheusMetrics()

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Coupon{},
		&chatmodels.ChatRoom{},
		&chatmodels.ChatMessage{},
		&chatmodels.ChatAgent{},
		&chatmodels.ChatbotResponse{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Composite indexes the auto-migration does not cover.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created ON chat_messages(room_id, created_at)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_chat_messages_room_created")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chat_rooms_status_priority ON chat_rooms(status, priority, created_at)").Error; err != nil {
		log.LogError(err, "Failed to create room index", "index", "idx_chat_rooms_status_priority")
	}

	diConfig := di.DefaultConfig()
	diConfig.LoggerConfig = logConfig
	diConfig.JWTSecret = secrets.GetSecretWithDefault(context.Background(), "jwt_secret", cfg.JWT.Secret)
	diConfig.JWTExpiry = cfg.JWT.Expiry
	diConfig.CacheTTL = cfg.Cache.TTL
	diConfig.CachePurge = cfg.Cache.PurgeWindow

	container, err := di.New(db, diConfig)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	if metrics, err := observability.NewChatMetrics(meterProvider); err != nil {
		log.LogError(err, "Failed to register chat metrics")
	} else {
		container.RoomService.SetMetrics(metrics)
	}

	// Hydrate agent presence so routing works from the first request.
	if err := container.Registry.Load(); err != nil {
		log.LogError(err, "Failed to load agent registry")
		os.Exit(1)
	}

	// Redis mirrors presence for external observers; the engine runs fine
	// without it.
	var mirror *redis.PresenceMirror
	if cfg.Redis.Enabled {
		mirror, err = redis.NewPresenceMirror(cfg, log)
		if err != nil {
			log.LogError(err, "Failed to connect presence mirror, continuing without it")
			mirror = nil
		} else {
			container.Registry.SetMirror(mirror)
			defer mirror.Close()
		}
	}

	r := router.New(container)
	r.SetupRoutes()

	// Component-level health detail next to the flat /health endpoint.
	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})
	checker.RegisterChatHubCheck(container.Hub.ActiveConnections)
	if mirror != nil {
		checker.RegisterRedisCheck(mirror.Ping)
	}
	checker.Start()
	r.Engine.GET("/health/components", gin.WrapF(checker.HTTPHandler()))

	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
