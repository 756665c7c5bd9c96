package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/job"
)

func TestReportHandler(t *testing.T) {
	t.Run("rejects an incomplete job", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})

		c, rec := newTestContext()
		body := `{"job_id":"` + j.ID + `","format":"json"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		s.reportHandler(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job id returns 404", func(t *testing.T) {
		s := newTestServer()
		c, rec := newTestContext()
		body := `{"job_id":"nope","format":"json"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		s.reportHandler(c)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects an unrecognized format", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})
		handle, err := s.store.Handle(j.ID)
		require.NoError(t, err)
		handle.SetStatus(job.StatusCompleted)

		c, rec := newTestContext()
		body := `{"job_id":"` + j.ID + `","format":"pdf"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		s.reportHandler(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("renders json for a completed job", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})
		handle, err := s.store.Handle(j.ID)
		require.NoError(t, err)
		handle.SetStatus(job.StatusCompleted)

		c, rec := newTestContext()
		body := `{"job_id":"` + j.ID + `","format":"json"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		s.reportHandler(c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), j.ID)
	})

	t.Run("renders markdown for a completed job", func(t *testing.T) {
		s := newTestServer()
		j := s.store.Create(job.SourceRef{Kind: "remote", Location: "https://example.com/x"})
		handle, err := s.store.Handle(j.ID)
		require.NoError(t, err)
		handle.SetStatus(job.StatusCompleted)

		c, rec := newTestContext()
		body := `{"job_id":"` + j.ID + `","format":"md"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")

		s.reportHandler(c)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "# Code Quality Report"))
	})
}
