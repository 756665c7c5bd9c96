package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer builds a Server with a fresh store and a default config,
// no worker pool — handlers exercised directly here never reach it except
// through healthHandler's nil check.
func newTestServer() *Server {
	cfg := config.Load()
	return &Server{
		cfg:     cfg,
		store:   job.NewStore(),
		fetcher: fetch.New(cfg.Fetch, ""),
	}
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}
