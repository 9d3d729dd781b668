package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/api/handlers"
	"github.com/churnwatch/churnwatch/api/middleware"
	"github.com/churnwatch/churnwatch/api/websocket"
	"github.com/churnwatch/churnwatch/internal/auth"
	"github.com/churnwatch/churnwatch/internal/events"
	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/config"
	"github.com/churnwatch/churnwatch/pkg/database"
	"github.com/churnwatch/churnwatch/pkg/database/queries"
)

// Dependencies carries the wired domain components the server exposes.
type Dependencies struct {
	Store    store.Store
	Registry *registry.Registry
	Monitor  *monitor.Monitor
	Pipeline *retrain.Pipeline
	Bus      *events.EventBus
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	db          *database.DB
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	deps        Dependencies
}

func NewServer(cfg config.APIConfig, wsCfg config.WebSocketConfig, db *database.DB, deps Dependencies) *Server {
	if cfg.JWTSecret == "" || cfg.JWTSecret == "change-me-in-production" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	authService := auth.NewService(auth.Config{
		Secret:        cfg.JWTSecret,
		TokenDuration: cfg.JWTDuration,
		Username:      cfg.OpsUsername,
		PasswordHash:  cfg.OpsPasswordHash,
	})
	wsHub := websocket.NewHub(websocket.HubConfig{BroadcastBuffer: wsCfg.BroadcastBuffer})

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		authService: authService,
		wsHub:       wsHub,
		deps:        deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	// Forward bus events to WebSocket clients.
	if deps.Bus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.Bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(s.corsConfig()))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) corsConfig() middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(s.config.CORS.AllowedOrigins) > 0 {
		cors.AllowOrigins = s.config.CORS.AllowedOrigins
	}
	if len(s.config.CORS.AllowedMethods) > 0 {
		cors.AllowMethods = s.config.CORS.AllowedMethods
	}
	if len(s.config.CORS.AllowedHeaders) > 0 {
		cors.AllowHeaders = s.config.CORS.AllowedHeaders
	}
	cors.AllowCredentials = s.config.CORS.AllowCredentials
	return cors
}

func (s *Server) setupRoutes() {
	expiresIn := int(s.authService.TokenDuration().Seconds())

	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(s.authService, expiresIn)
	predictionHandler := handlers.NewPredictionHandler(s.deps.Store, s.deps.Registry)
	monitorHandler := handlers.NewMonitorHandler(s.deps.Monitor, s.config.DefaultLimit, s.config.MaxLimit)
	retrainHandler := handlers.NewRetrainHandler(s.deps.Pipeline, s.config.DefaultLimit, s.config.MaxLimit)
	modelHandler := handlers.NewModelHandler(s.deps.Registry)

	var alertRepo *queries.AlertRepository
	if s.db != nil {
		alertRepo = queries.NewAlertRepository(s.db.DB)
	}
	alertHandler := handlers.NewAlertHandler(alertRepo, s.config.DefaultLimit, s.config.MaxLimit)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Protected routes
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		// Predictions
		protected.POST("/predictions", predictionHandler.Ingest)
		protected.GET("/predictions/stats", predictionHandler.Stats)

		// Monitoring
		protected.POST("/monitor/evaluate", monitorHandler.Evaluate)
		protected.GET("/monitor/status", monitorHandler.Status)
		protected.GET("/monitor/reports", monitorHandler.Reports)

		// Retraining
		protected.POST("/retrain", retrainHandler.Trigger)
		protected.GET("/retrain/history", retrainHandler.History)
		protected.GET("/retrain/runs/:id", retrainHandler.Get)
		protected.POST("/retrain/runs/:id/cancel", retrainHandler.Cancel)

		// Model
		protected.GET("/model", modelHandler.Get)

		// Alerts
		protected.GET("/alerts", alertHandler.List)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the event bridge first so no broadcast races the hub teardown.
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
