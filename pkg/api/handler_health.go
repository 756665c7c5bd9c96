package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /health. Reports liveness plus which optional
// integrations are configured; the worker pool's own health folds in as
// "degraded" when no workers are running.
func (s *Server) healthHandler(c *gin.Context) {
	status := "healthy"
	if s.workerPool != nil {
		if ph := s.workerPool.Health(); ph != nil && !ph.IsHealthy {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Services:  s.cfg.Status(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
