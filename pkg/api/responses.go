package api

import (
	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/model"
)

// SubmitResponse is returned by POST /analyze/remote and /analyze/upload.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// AnalysisStatusResponse is returned by GET /status/{job_id}.
type AnalysisStatusResponse struct {
	JobID       string                 `json:"job_id"`
	Status      string                 `json:"status"`
	CreatedAt   string                 `json:"created_at"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Summary     *model.AnalysisSummary `json:"summary,omitempty"`
	Issues      []model.CodeIssue      `json:"issues,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// GraphResponse is returned by GET /graph/{job_id}.
type GraphResponse struct {
	JobID           string                 `json:"job_id"`
	DependencyGraph *model.DependencyGraph `json:"dependency_graph"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Services  config.IntegrationStatus `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ErrorResponse is the uniform error envelope for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
