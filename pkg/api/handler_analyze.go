package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
)

// analyzeRemoteHandler handles POST /analyze/remote. Validation happens
// synchronously; the fetch and analysis run in the background under the
// worker pool.
func (s *Server) analyzeRemoteHandler(c *gin.Context) {
	var req AnalyzeRemoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.RepoURL == "" {
		respondError(c, config.NewValidationError("repo_url", "is required"))
		return
	}

	j := s.store.Create(job.SourceRef{
		Kind:                  "remote",
		Location:              req.RepoURL,
		IncludeExt:            req.IncludePatterns,
		Service:               req.Service,
		MaxFiles:              req.MaxFiles,
		IncludeExternalReport: req.IncludeExternalReport,
	})

	c.JSON(http.StatusAccepted, SubmitResponse{
		JobID:     j.ID,
		Status:    wireStatus(j.Status),
		CreatedAt: j.CreatedAt.UTC().Format(rfc3339),
	})
}

// analyzeUploadHandler handles POST /analyze/upload. Files are fetched
// (size/type filtered) at request time, since an uploaded bundle's bytes
// only exist for the duration of this request; the resulting working set
// is stashed on the job so the worker that later claims it can skip the
// fetch stage entirely.
func (s *Server) analyzeUploadHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, http.StatusBadRequest, "expected multipart/form-data")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		respondError(c, config.NewValidationError("files", "at least one file is required"))
		return
	}

	maxFiles := s.cfg.Fetch.MaxFiles
	if n := c.PostForm("max_files"); n != "" {
		if parsed, ok := parsePositiveInt(n); ok {
			maxFiles = parsed
		}
	}
	if len(fileHeaders) > maxFiles {
		writeError(c, http.StatusRequestEntityTooLarge, "too many files in upload")
		return
	}

	uploads := make([]fetch.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		content, readErr := readMultipartFile(fh)
		if readErr != nil {
			respondError(c, config.NewValidationError("files", readErr.Error()))
			return
		}
		uploads = append(uploads, fetch.UploadFile{Filename: fh.Filename, Content: content})
	}

	files, err := s.fetcher.FetchUpload(uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	j := s.store.Create(job.SourceRef{
		Kind:                  "upload",
		Service:               c.PostForm("service"),
		MaxFiles:              maxFiles,
		IncludeExternalReport: c.PostForm("include_external_report") == "true",
	})
	j.SetResult(job.Result{Files: files})

	c.JSON(http.StatusAccepted, SubmitResponse{
		JobID:     j.ID,
		Status:    wireStatus(j.Status),
		CreatedAt: j.CreatedAt.UTC().Format(rfc3339),
	})
}

func parsePositiveInt(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, n > 0
}
