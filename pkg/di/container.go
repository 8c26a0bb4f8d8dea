package di

import (
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/api"
	chatapi "github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/api"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/events"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	chatrepo "github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	chatservice "github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/service"
	chatws "github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/ws"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/cache"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/jwt"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB         *gorm.DB
	Logger     *logger.Logger
	JWTService *jwt.Service
	Cache      *cache.Cache

	// Storefront
	UserService    *service.UserService
	ProductService *service.ProductService
	OrderService   *service.OrderService
	AuthHandler    *api.AuthHandler
	ProductHandler *api.ProductHandler
	OrderHandler   *api.OrderHandler

	// Chat engine
	Hub          *events.Hub
	Registry     *presence.Registry
	BotMatcher   *chatservice.BotMatcher
	Assigner     *chatservice.Assigner
	RoomService  *chatservice.RoomService
	AgentService *chatservice.AgentService
	StatsService *chatservice.StatsService
	RoomHandler  *chatapi.RoomHandler
	BotHandler   *chatapi.BotHandler
	AgentHandler *chatapi.AgentHandler
	WSHandler    *chatws.Handler
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTExpiry    time.Duration
	CacheTTL     time.Duration
	CachePurge   time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
		JWTSecret:    "",
		JWTExpiry:    0, // Use default
		CacheTTL:     5 * time.Minute,
		CachePurge:   10 * time.Minute,
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, config *Config) (*Container, error) {
	if config == nil {
		config = DefaultConfig()
	}

	log := logger.New(config.LoggerConfig)
	jwtService := jwt.NewService(config.JWTSecret, config.JWTExpiry)
	c := cache.New(config.CacheTTL, config.CachePurge)

	// Storefront services
	userService := service.NewUserService(db, jwtService)
	productService := service.NewProductService(db, c)
	orderService := service.NewOrderService(db, userService, log)

	// Chat engine wiring: repositories feed the registry and matcher, the
	// assigner binds rooms to agents, and the room service ties it together
	// with the event hub.
	roomRepo := chatrepo.NewGormRoomRepository(db)
	messageRepo := chatrepo.NewGormMessageRepository(db)
	agentRepo := chatrepo.NewGormAgentRepository(db)
	botRepo := chatrepo.NewGormBotResponseRepository(db)

	hub := events.NewHub(log)
	registry := presence.NewRegistry(agentRepo, log)
	matcher := chatservice.NewBotMatcher(botRepo, c, log)
	assigner := chatservice.NewAssigner(roomRepo, registry, log)
	roomService := chatservice.NewRoomService(roomRepo, messageRepo, registry, matcher, assigner, hub, log)
	agentService := chatservice.NewAgentService(agentRepo, registry, log)
	statsService := chatservice.NewStatsService(roomRepo, registry)

	return &Container{
		DB:         db,
		Logger:     log,
		JWTService: jwtService,
		Cache:      c,

		UserService:    userService,
		ProductService: productService,
		OrderService:   orderService,
		AuthHandler:    api.NewAuthHandler(userService, jwtService, log),
		ProductHandler: api.NewProductHandler(productService, log),
		OrderHandler:   api.NewOrderHandler(orderService, log),

		Hub:          hub,
		Registry:     registry,
		BotMatcher:   matcher,
		Assigner:     assigner,
		RoomService:  roomService,
		AgentService: agentService,
		StatsService: statsService,
		RoomHandler:  chatapi.NewRoomHandler(roomService, log),
		BotHandler:   chatapi.NewBotHandler(matcher, log),
		AgentHandler: chatapi.NewAgentHandler(agentService, statsService, log),
		WSHandler:    chatws.NewHandler(roomService, hub, log),
	}, nil
}
