package server

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gerdinv/exec-engine/internal/config"
	"github.com/gerdinv/exec-engine/internal/engine"
	"github.com/gerdinv/exec-engine/internal/logging"
	"github.com/gerdinv/exec-engine/internal/monitoring"
	"github.com/gerdinv/exec-engine/internal/ws"
)

// Server wraps the HTTP surface and the execution service.
type Server struct {
	router *gin.Engine
	svc    *engine.Service
	log    *logging.Logger
}

// New builds the server: supervisor, service, routes. The runtime image is
// loaded eagerly so the first request does not pay the startup cost.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()
	sup := engine.NewSupervisor(engine.OptionsFromConfig(cfg.Engine), log, metrics)
	svc := engine.NewService(sup, log, metrics)

	if err := svc.Initialize(context.Background(), ""); err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Accept", "Origin", "Authorization"},
	}))
	if cfg.RateLimit.Enabled {
		router.Use(rateLimit(cfg.RateLimit))
	}

	handlers := NewHandlers(svc, log)
	wsHandler := ws.NewHandler(svc, log, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/execute", handlers.Execute)
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{router: router, svc: svc, log: log.Named("server")}, nil
}

// Run starts the server on the given address.
func (s *Server) Run(addr string) error {
	s.log.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close tears down the execution service.
func (s *Server) Close() error {
	s.svc.Close()
	return nil
}
