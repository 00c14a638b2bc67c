package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hlexec/internal/handlers"
	"hlexec/internal/metrics"
)

// ServerConfig contains server configuration
type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	APIKey         string
	Version        string
	RateLimit      int // requests per second per client, 0 disables
	CORSOrigins    []string
	ReadyTimeout   time.Duration
}

// Session is everything the HTTP surface needs from an account session
type Session interface {
	handlers.MarketService
	handlers.TradingService
	handlers.Wallet
}

// Server represents the API server
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
	startTime  time.Time
}

// NewServer creates the API server over session. collector may be nil.
func NewServer(config ServerConfig, session Session, collector *metrics.Collector, logger zerolog.Logger) (*Server, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	setConfigDefaults(&config)

	router := gin.New()

	server := &Server{
		config:    config,
		router:    router,
		logger:    logger,
		startTime: time.Now(),
	}

	server.setupMiddleware(collector)
	server.setupRoutes(session, collector)

	server.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", config.Port),
		Handler:        router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().
		Int("port", s.config.Port).
		Str("version", s.config.Version).
		Msg("Starting API server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupMiddleware(collector *metrics.Collector) {
	// Request ID middleware (always first)
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(ErrorMiddleware(s.logger))

	if collector != nil {
		s.router.Use(metrics.Middleware(collector))
	}

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(CORSMiddleware(CORSConfig{
			AllowOrigins:     s.config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	if s.config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(s.config.RateLimit))
	}
}

func (s *Server) setupRoutes(session Session, collector *metrics.Collector) {
	health := handlers.NewHealthHandlers(s.config.Version, s.startTime, session)
	s.router.GET("/health", health.HealthCheck())
	s.router.GET("/ready", health.Readiness(handlers.NewExchangeReadiness(session, s.config.ReadyTimeout)))
	if collector != nil {
		s.router.GET("/metrics", health.Metrics(collector))
	}

	api := s.router.Group("/api/v1")
	api.Use(AuthMiddleware(s.config.APIKey))

	marketHandlers := handlers.NewMarketHandlers(session)
	api.GET("/mids", marketHandlers.AllMids())
	api.GET("/price/:asset", marketHandlers.PriceOf())
	api.GET("/orderbook/:coin", marketHandlers.Orderbook())
	api.GET("/meta", marketHandlers.Meta())
	api.GET("/spot-pairs", marketHandlers.SpotPairs())
	api.GET("/candles/:coin", marketHandlers.Candles())

	accounts := api.Group("/accounts/:address")
	{
		accounts.GET("/balances", marketHandlers.Balances())
		accounts.GET("/fills", marketHandlers.Fills())
		accounts.GET("/open-orders", marketHandlers.OpenOrders())
	}

	orderHandlers := handlers.NewOrderHandlers(session, s.logger)
	orders := api.Group("/orders")
	orders.Use(ValidationMiddleware())
	{
		orders.POST("/swap", orderHandlers.Swap())
		orders.POST("/limit", orderHandlers.PlaceLimit())
		orders.POST("/buy", orderHandlers.Buy())
		orders.POST("/sell", orderHandlers.Sell())
		orders.POST("/cancel", orderHandlers.Cancel())
	}
}

func validateConfig(config *ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	if config.APIKey == "" {
		return fmt.Errorf("API key required")
	}

	if config.Version == "" {
		config.Version = "unknown"
	}

	return nil
}

func setConfigDefaults(config *ServerConfig) {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if config.MaxHeaderBytes == 0 {
		config.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	if config.ReadyTimeout == 0 {
		config.ReadyTimeout = 5 * time.Second
	}
}
