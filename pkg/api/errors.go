package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
)

// respondError maps a package-layer error to an HTTP status and writes the
// uniform error envelope. Unexpected errors are logged with full detail
// but never surfaced to the client beyond "internal server error".
func respondError(c *gin.Context, err error) {
	var validErr *config.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validErr.Error()})
		return
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) && fetchErr.Kind == fetch.KindInputValidation {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fetchErr.Error()})
		return
	}
	if errors.Is(err, job.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}

	slog.Error("unexpected API error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
