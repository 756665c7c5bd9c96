package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/job"
)

// graphHandler handles GET /graph/{job_id}.
func (s *Server) graphHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	h, err := s.store.Get(jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.Status != job.StatusCompleted {
		writeError(c, http.StatusBadRequest, "job is not complete")
		return
	}
	c.JSON(http.StatusOK, GraphResponse{JobID: h.ID, DependencyGraph: h.Result.Graph})
}
