package api

import (
	"github.com/gin-gonic/gin"

	"intrusion-worker-go/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS(s.config.AllowedOrigins))
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.POST("/getIntrusionImage", s.intrusionHandler.GetIntrusionImage)
	s.router.GET("/ws/intrusion", s.intrusionHandler.Stream)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}

	if s.config.MetricsEnabled && s.services.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))
	}
}
