package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/render"
)

// reportHandler handles POST /report: renders a completed job in the
// requested format, 4xx if the job has never completed or the format is
// unrecognized.
func (s *Server) reportHandler(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.store.Get(req.JobID)
	if err != nil {
		respondError(c, err)
		return
	}

	switch render.Format(req.Format) {
	case render.FormatJSON:
		body, renderErr := render.JSON(h)
		if renderErr != nil {
			writeError(c, http.StatusBadRequest, renderErr.Error())
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	case render.FormatHTML:
		body, renderErr := render.HTML(h)
		if renderErr != nil {
			writeError(c, mapRenderStatus(renderErr), renderErr.Error())
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
	case render.FormatMarkdown:
		body, renderErr := render.Markdown(h)
		if renderErr != nil {
			writeError(c, mapRenderStatus(renderErr), renderErr.Error())
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
	default:
		writeError(c, http.StatusBadRequest, "unrecognized format; expected json, html, or md")
	}
}

func mapRenderStatus(err error) int {
	if errors.Is(err, render.ErrNotComplete) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
