package api

// AnalyzeRemoteRequest is the HTTP request body for POST /analyze/remote.
type AnalyzeRemoteRequest struct {
	RepoURL              string   `json:"repo_url"`
	Service               string   `json:"service"` // "llm_a" or "llm_b"
	IncludeExternalReport bool     `json:"include_external_report"`
	MaxFiles              int      `json:"max_files"`
	IncludePatterns       []string `json:"include_patterns"`
}

// AnalyzeUploadRequest is the multipart form's non-file fields for
// POST /analyze/upload.
type AnalyzeUploadRequest struct {
	Service               string `form:"service"`
	IncludeExternalReport bool   `form:"include_external_report"`
	MaxFiles              int    `form:"max_files"`
}

// ReportRequest is the HTTP request body for POST /report.
type ReportRequest struct {
	JobID  string `json:"job_id"`
	Format string `json:"format"` // "json", "html", or "md"
}
