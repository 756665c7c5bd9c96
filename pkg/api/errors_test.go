package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation error maps to 400",
			err:        config.NewValidationError("repo_url", "is required"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "is required",
		},
		{
			name:       "fetch input validation maps to 400",
			err:        fmt.Errorf("wrapped: %w", &fetch.Error{Kind: fetch.KindInputValidation, Message: "bad path"}),
			expectCode: http.StatusBadRequest,
			expectMsg:  "bad path",
		},
		{
			name:       "not found maps to 404",
			err:        fmt.Errorf("wrapped: %w", job.ErrNotFound),
			expectCode: http.StatusNotFound,
			expectMsg:  "job not found",
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.expectCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectMsg)
		})
	}
}
