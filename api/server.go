package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/finy-forecast/api/handlers"
	"github.com/OldStager01/finy-forecast/api/middleware"
	"github.com/OldStager01/finy-forecast/api/websocket"
	"github.com/OldStager01/finy-forecast/internal/engine"
	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/config"
	"github.com/OldStager01/finy-forecast/pkg/database"
	"github.com/OldStager01/finy-forecast/pkg/database/queries"
	"github.com/OldStager01/finy-forecast/pkg/models"
)

// Deps are the collaborators the server routes to. Forecaster, DB, Metrics
// and Events are optional; prediction routes use Engine when Forecaster is
// nil.
type Deps struct {
	Engine     *engine.Engine
	Forecaster handlers.Forecaster
	DB         *database.DB
	Metrics    http.Handler
	Events     <-chan *models.Event
	WebSocket  config.WebSocketConfig
	Mode       string
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	deps       Deps
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg config.APIConfig, deps Deps) *Server {
	if deps.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if deps.Mode == "test" {
		gin.SetMode(gin.TestMode)
	}

	wsHub := websocket.NewHub(websocket.NewSettings(deps.WebSocket))

	s := &Server{
		router: gin.New(),
		config: cfg,
		deps:   deps,
		wsHub:  wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.Events != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.Events)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.config.CORS))

	if s.config.RateLimit > 0 {
		s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, s.config.RateBurst)))
	}
}

func (s *Server) setupRoutes() {
	var db handlers.Pinger
	if s.deps.DB != nil {
		db = s.deps.DB
	}
	healthHandler := handlers.NewHealthHandler(db, s.deps.Engine)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	var forecaster handlers.Forecaster = s.deps.Engine
	if s.deps.Forecaster != nil {
		forecaster = s.deps.Forecaster
	}
	defaults := s.deps.Engine.Config().Defaults
	predictionHandler := handlers.NewPredictionHandler(forecaster, defaults, s.config.MaxBatchSize)

	v1 := s.router.Group("/api/v1")
	if s.config.MaxBodyBytes > 0 {
		v1.Use(middleware.RequestSizeLimit(s.config.MaxBodyBytes))
	}
	{
		v1.POST("/predictions", predictionHandler.Predict)
		v1.POST("/predictions/batch", predictionHandler.Batch)
		v1.POST("/intervals", predictionHandler.Intervals)
		v1.POST("/evaluate", predictionHandler.Evaluate)
		v1.POST("/backtest", predictionHandler.Backtest)

		if s.deps.DB != nil {
			forecastHandler := handlers.NewForecastHandler(queries.NewForecastRepository(s.deps.DB.DB), s.config.HistoryLimit)
			v1.GET("/forecasts/:metric_id", forecastHandler.History)
			v1.GET("/runs/:id", forecastHandler.Get)
		}
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Infof("API server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

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
