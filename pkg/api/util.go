package api

import (
	"io"
	"mime/multipart"

	"github.com/codequality/codequality-server/pkg/job"
)

const rfc3339 = "2006-01-02T15:04:05Z07:00"

// wireStatus maps the job package's internal lowercase status values to
// the uppercase vocabulary the HTTP contract exposes. Cancellation is
// folded into FAILED, matching the externally observed status domain of
// {PENDING, PROCESSING, COMPLETED, FAILED}.
func wireStatus(s job.Status) string {
	switch s {
	case job.StatusPending:
		return "PENDING"
	case job.StatusRunning:
		return "PROCESSING"
	case job.StatusCompleted:
		return "COMPLETED"
	default:
		return "FAILED"
	}
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
