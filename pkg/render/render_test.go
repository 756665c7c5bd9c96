package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/model"
)

func completedJob(t *testing.T) job.Job {
	t.Helper()
	store := job.NewStore()
	j := store.Create(job.SourceRef{Kind: "upload"})
	line := 12
	issues := []model.CodeIssue{
		{ID: "a-12-x", Title: "Hardcoded secret", Category: model.CategorySecurity, Severity: model.SeverityCritical,
			FilePath: "app/main.py", LineNumber: &line, Description: "desc", Suggestion: "rotate it"},
	}
	j.SetResult(job.Result{
		Issues:  issues,
		Summary: &model.AnalysisSummary{TotalFiles: 1, TotalIssues: 1, SeverityDistribution: model.NewSeverityDistribution(issues)},
	})
	j.SetStatus(job.StatusCompleted)
	handle, err := store.Get(j.ID)
	require.NoError(t, err)
	return handle
}

func TestJSONRendersCompletedJob(t *testing.T) {
	h := completedJob(t)
	out, err := JSON(h)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Hardcoded secret")
	assert.Contains(t, string(out), h.ID)
}

func TestJSONRejectsIncompleteJob(t *testing.T) {
	store := job.NewStore()
	j := store.Create(job.SourceRef{Kind: "upload"})
	handle, _ := store.Get(j.ID)
	_, err := JSON(handle)
	assert.ErrorIs(t, err, ErrNotComplete)
}

func TestHTMLIncludesSeverityBadgeAndSnippet(t *testing.T) {
	h := completedJob(t)
	out, err := HTML(h)
	require.NoError(t, err)
	assert.Contains(t, out, "severity-critical")
	assert.Contains(t, out, "Hardcoded secret")
	assert.Contains(t, out, "app/main.py:12")
}

func TestMarkdownOrdersIssuesBySeverity(t *testing.T) {
	h := completedJob(t)
	out, err := Markdown(h)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "### Hardcoded secret"))
}

func TestMarkdownRejectsIncompleteJob(t *testing.T) {
	store := job.NewStore()
	j := store.Create(job.SourceRef{Kind: "upload"})
	handle, _ := store.Get(j.ID)
	_, err := Markdown(handle)
	assert.ErrorIs(t, err, ErrNotComplete)
}
