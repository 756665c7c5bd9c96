package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/job"
)

// statusHandler handles GET /status/{job_id}[?include_details]. Without
// include_details it returns only the lifecycle envelope; with it, the
// summary, issues, and any error are added.
func (s *Server) statusHandler(c *gin.Context) {
	jobID := c.Param("job_id")
	h, err := s.store.Get(jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := AnalysisStatusResponse{
		JobID:     h.ID,
		Status:    wireStatus(h.Status),
		CreatedAt: h.CreatedAt.UTC().Format(rfc3339),
	}
	if h.Status.Terminal() {
		resp.CompletedAt = h.UpdatedAt.UTC().Format(rfc3339)
	}

	if _, wantDetails := c.GetQuery("include_details"); wantDetails {
		resp.Summary = h.Result.Summary
		resp.Issues = h.Result.Issues
		if h.Status == job.StatusFailed || h.Status == job.StatusCancelled {
			resp.Error = h.Error
			if resp.Error == "" && h.Status == job.StatusCancelled {
				resp.Error = "cancelled"
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
