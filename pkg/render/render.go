// Package render implements the Report Renderer (C10): turning a completed
// job's accumulated result into JSON, HTML, Markdown, or an external
// block-document representation.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/model"
)

// Format selects the rendering the caller wants from /report.
type Format string

const (
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// ErrNotComplete is returned by every renderer when asked to render a job
// that has never reached StatusCompleted; callers map this to a 4xx.
var ErrNotComplete = fmt.Errorf("render: job is not complete")

// JSON renders the full job as a plain JSON tree. It never fails outward:
// a marshal error degrades to a minimal envelope carrying only the job id.
func JSON(j job.Job) ([]byte, error) {
	if j.Status != job.StatusCompleted {
		return nil, ErrNotComplete
	}
	doc := struct {
		JobID   string             `json:"job_id"`
		Status  string             `json:"status"`
		Summary *model.AnalysisSummary `json:"summary,omitempty"`
		Issues  []model.CodeIssue  `json:"issues,omitempty"`
		Graph   *model.DependencyGraph `json:"dependency_graph,omitempty"`
		Errors  []string           `json:"errors,omitempty"`
	}{
		JobID:   j.ID,
		Status:  string(j.Status),
		Summary: j.Result.Summary,
		Issues:  j.Result.Issues,
		Graph:   j.Result.Graph,
		Errors:  j.Result.Errors,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return json.Marshal(struct {
			JobID string `json:"job_id"`
			Error string `json:"error"`
		}{JobID: j.ID, Error: "serialization failed: " + err.Error()})
	}
	return out, nil
}

func sortedIssues(issues []model.CodeIssue) []model.CodeIssue {
	out := append([]model.CodeIssue(nil), issues...)
	sort.SliceStable(out, func(i, k int) bool { return out[i].Severity.Rank() < out[k].Severity.Rank() })
	return out
}

// HTML renders a self-contained document: summary table, severity
// distribution, and a per-severity issues section.
func HTML(j job.Job) (string, error) {
	if j.Status != job.StatusCompleted {
		return "", ErrNotComplete
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Code Quality Report</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>Code Quality Report: %s</h1>\n", html.EscapeString(j.ID))

	if s := j.Result.Summary; s != nil {
		b.WriteString("<h2>Summary</h2>\n<table border=\"1\">\n")
		fmt.Fprintf(&b, "<tr><td>Total Files</td><td>%d</td></tr>\n", s.TotalFiles)
		fmt.Fprintf(&b, "<tr><td>Total Issues</td><td>%d</td></tr>\n", s.TotalIssues)
		b.WriteString("</table>\n")

		d := s.SeverityDistribution
		b.WriteString("<h2>Severity Distribution</h2>\n<table border=\"1\">\n")
		fmt.Fprintf(&b, "<tr><th>Severity</th><th>Count</th><th>%%</th></tr>\n")
		fmt.Fprintf(&b, "<tr><td>Critical</td><td>%d</td><td>%.1f</td></tr>\n", d.Critical, d.CriticalPercent)
		fmt.Fprintf(&b, "<tr><td>High</td><td>%d</td><td>%.1f</td></tr>\n", d.High, d.HighPercent)
		fmt.Fprintf(&b, "<tr><td>Medium</td><td>%d</td><td>%.1f</td></tr>\n", d.Medium, d.MediumPercent)
		fmt.Fprintf(&b, "<tr><td>Low</td><td>%d</td><td>%.1f</td></tr>\n", d.Low, d.LowPercent)
		b.WriteString("</table>\n")
	}

	b.WriteString("<h2>Issues</h2>\n")
	for _, iss := range sortedIssues(j.Result.Issues) {
		line := ""
		if iss.LineNumber != nil {
			line = fmt.Sprintf(":%d", *iss.LineNumber)
		}
		b.WriteString("<div class=\"issue\">\n")
		fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(iss.Title))
		fmt.Fprintf(&b, "<p>%s%s &mdash; <span class=\"badge severity-%s\">%s</span> <span class=\"badge category-%s\">%s</span></p>\n",
			html.EscapeString(iss.FilePath), line, strings.ToLower(string(iss.Severity)), iss.Severity, strings.ToLower(string(iss.Category)), iss.Category)
		if iss.Description != "" {
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(iss.Description))
		}
		if iss.Suggestion != "" {
			fmt.Fprintf(&b, "<p><strong>Suggestion:</strong> %s</p>\n", html.EscapeString(iss.Suggestion))
		}
		if iss.AIReviewContext != "" {
			fmt.Fprintf(&b, "<p><em>%s</em></p>\n", html.EscapeString(iss.AIReviewContext))
		}
		if iss.CodeSnippet != "" {
			fmt.Fprintf(&b, "<pre><code>%s</code></pre>\n", html.EscapeString(iss.CodeSnippet))
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String(), nil
}

// Markdown renders the same content as HTML, flattened to a document.
func Markdown(j job.Job) (string, error) {
	if j.Status != job.StatusCompleted {
		return "", ErrNotComplete
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Code Quality Report: %s\n\n", j.ID)

	if s := j.Result.Summary; s != nil {
		fmt.Fprintf(&b, "## Summary\n\n")
		fmt.Fprintf(&b, "- Total files: %d\n", s.TotalFiles)
		fmt.Fprintf(&b, "- Total issues: %d\n\n", s.TotalIssues)

		d := s.SeverityDistribution
		fmt.Fprintf(&b, "## Severity Distribution\n\n")
		fmt.Fprintf(&b, "| Severity | Count | %% |\n|---|---|---|\n")
		fmt.Fprintf(&b, "| Critical | %d | %.1f |\n", d.Critical, d.CriticalPercent)
		fmt.Fprintf(&b, "| High | %d | %.1f |\n", d.High, d.HighPercent)
		fmt.Fprintf(&b, "| Medium | %d | %.1f |\n", d.Medium, d.MediumPercent)
		fmt.Fprintf(&b, "| Low | %d | %.1f |\n\n", d.Low, d.LowPercent)
	}

	fmt.Fprintf(&b, "## Issues\n\n")
	for _, iss := range sortedIssues(j.Result.Issues) {
		line := ""
		if iss.LineNumber != nil {
			line = fmt.Sprintf(":%d", *iss.LineNumber)
		}
		fmt.Fprintf(&b, "### %s\n\n", iss.Title)
		fmt.Fprintf(&b, "%s%s — **%s** / %s\n\n", iss.FilePath, line, iss.Severity, iss.Category)
		if iss.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", iss.Description)
		}
		if iss.Suggestion != "" {
			fmt.Fprintf(&b, "**Suggestion:** %s\n\n", iss.Suggestion)
		}
		if iss.AIReviewContext != "" {
			fmt.Fprintf(&b, "_%s_\n\n", iss.AIReviewContext)
		}
		if iss.CodeSnippet != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", iss.CodeSnippet)
		}
	}
	return b.String(), nil
}
