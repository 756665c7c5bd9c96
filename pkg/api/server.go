// Package api provides HTTP handlers for the code-quality analysis
// service: submission, polling, graph retrieval, and report rendering.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/orchestrator"
	"github.com/codequality/codequality-server/pkg/queue"
)

// Server wires the HTTP surface to the job store, fetcher, LLM registry,
// and worker pool.
type Server struct {
	cfg        *config.Config
	store      *job.Store
	fetcher    *fetch.Fetcher
	llm        *llmclient.Registry
	workerPool *queue.WorkerPool
}

// NewServer constructs a Server. workerPool may be nil in tests that
// don't exercise /health's pool section.
func NewServer(cfg *config.Config, store *job.Store, fetcher *fetch.Fetcher, llm *llmclient.Registry, workerPool *queue.WorkerPool) *Server {
	return &Server{cfg: cfg, store: store, fetcher: fetcher, llm: llm, workerPool: workerPool}
}

// Router builds the gin engine with every route this service exposes.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.GET("/health", s.healthHandler)
	r.POST("/analyze/remote", s.analyzeRemoteHandler)
	r.POST("/analyze/upload", s.analyzeUploadHandler)
	r.GET("/status/:job_id", s.statusHandler)
	r.GET("/graph/:job_id", s.graphHandler)
	r.POST("/report", s.reportHandler)
	return r
}

// deps builds the orchestrator.Deps for one HTTP handler call, resolving
// the requested LLM service by name.
func (s *Server) deps(service string) orchestrator.Deps {
	return orchestrator.Deps{
		Fetcher:  s.fetcher,
		LLM:      s.llm.Get(service),
		MaxFiles: s.cfg.Fetch.MaxFiles,
	}
}

// NewDepsFactory builds the queue.DepsFactory the worker pool uses to
// resolve each claimed job's own orchestrator.Deps — every job may name a
// different LLM service or max-files override at submission time.
func NewDepsFactory(cfg *config.Config, fetcher *fetch.Fetcher, llm *llmclient.Registry) queue.DepsFactory {
	return func(src job.SourceRef) orchestrator.Deps {
		maxFiles := cfg.Fetch.MaxFiles
		if src.MaxFiles > 0 {
			maxFiles = src.MaxFiles
		}
		return orchestrator.Deps{Fetcher: fetcher, LLM: llm.Get(src.Service), MaxFiles: maxFiles}
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}
