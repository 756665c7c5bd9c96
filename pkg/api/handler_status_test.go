package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/model"
)

func TestStatusHandler(t *testing.T) {
	t.Run("unknown job id returns 404", func(t *testing.T) {
		s := newTestServer()
		c, rec := newTestContext()
		c.Params = gin.Params{{Key: "job_id", Value: "nope"}}
		c.Request = httptest.NewRequest(http.MethodGet, "/status/nope", nil)

		s.statusHandler(c)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("without include_details omits summary and issues", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})
		handle, err := s.store.Handle(j.ID)
		require.NoError(t, err)
		handle.SetResult(job.Result{Issues: []model.CodeIssue{{ID: "a", Title: "x"}}})
		handle.SetStatus(job.StatusCompleted)

		c, rec := newTestContext()
		c.Params = gin.Params{{Key: "job_id", Value: j.ID}}
		c.Request = httptest.NewRequest(http.MethodGet, "/status/"+j.ID, nil)

		s.statusHandler(c)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp AnalysisStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "COMPLETED", resp.Status)
		assert.NotEmpty(t, resp.CompletedAt)
		assert.Nil(t, resp.Issues)
	})

	t.Run("with include_details surfaces issues and failure reason", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})
		handle, err := s.store.Handle(j.ID)
		require.NoError(t, err)
		handle.SetError(errors.New("boom"))

		c, rec := newTestContext()
		c.Params = gin.Params{{Key: "job_id", Value: j.ID}}
		c.Request = httptest.NewRequest(http.MethodGet, "/status/"+j.ID+"?include_details=true", nil)

		s.statusHandler(c)

		var resp AnalysisStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "FAILED", resp.Status)
		assert.Equal(t, "boom", resp.Error)
	})
}
