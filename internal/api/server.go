package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/api/handlers"
	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/services"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceContainer

	// baseCtx parents every request context. Cancelling it ends WebSocket
	// sessions, which http.Server.Shutdown does not track.
	baseCtx context.Context
	cancel  context.CancelFunc

	healthHandler    *handlers.HealthHandler
	systemHandler    *handlers.SystemHandler
	intrusionHandler *handlers.IntrusionHandler
}

func NewServer(cfg *config.Config) (*Server, error) {
	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}
	return newServer(cfg, container), nil
}

func newServer(cfg *config.Config, sc *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:        cfg,
		router:        gin.New(),
		services:      sc,
		baseCtx:       baseCtx,
		cancel:        cancel,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID, sc.Metrics),
		intrusionHandler: handlers.NewIntrusionHandler(cfg, sc.Registry, sc.Capture, sc.Picker,
			sc.Sessions),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}
	return s
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting intrusion worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends live sessions, stops the HTTP server and releases services.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("🛑 Stopping intrusion worker API...")
	s.cancel()
	err := s.server.Shutdown(ctx)
	return errors.Join(err, s.services.Shutdown(ctx))
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
