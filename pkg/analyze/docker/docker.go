// Package docker implements the Dockerfile analyzer (C3), ported from the
// original's pattern-dict checks: root-user detection, base-image tag
// hygiene, outdated base images, secret-shaped ENV values, ADD-vs-COPY,
// apt-get layering, and missing CMD/ENTRYPOINT.
package docker

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/codequality/codequality-server/pkg/analyze"
	"github.com/codequality/codequality-server/pkg/model"
)

// Analyzer implements analyze.Analyzer for Dockerfiles.
type Analyzer struct{}

func (Analyzer) Language() string { return "docker" }

func (a Analyzer) Analyze(filePath string, content []byte) ([]model.CodeIssue, model.FileMetrics) {
	lines := splitLines(content)
	metrics := model.FileMetrics{FilePath: filePath, Language: a.Language(), LOC: countNonBlank(lines)}

	if !hasDirective(lines, "FROM") {
		return []model.CodeIssue{newIssue(filePath, 1, model.SeverityHigh, model.CategoryCorrectness,
			"Missing FROM Instruction", "A Dockerfile must start from a base image.", 8.0)}, metrics
	}

	var issues []model.CodeIssue
	issues = append(issues, fromLineIssues(filePath, lines)...)
	issues = append(issues, userIssue(filePath, lines)...)
	issues = append(issues, secretEnvIssues(filePath, lines)...)
	issues = append(issues, addVsCopyIssues(filePath, lines)...)
	issues = append(issues, aptLayeringIssues(filePath, lines)...)
	issues = append(issues, entrypointIssue(filePath, lines)...)
	return issues, metrics
}

func splitLines(content []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func countNonBlank(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

func newIssue(filePath string, line int, sev model.Severity, cat model.Category, title, desc string, impact float64) model.CodeIssue {
	ln := line
	return model.CodeIssue{
		ID:          analyze.GenerateIssueID(filePath, line, title),
		Category:    cat,
		Severity:    sev,
		Title:       title,
		Description: desc,
		FilePath:    filePath,
		LineNumber:  &ln,
		ImpactScore: impact,
	}
}

func hasDirective(lines []string, directive string) bool {
	for _, l := range lines {
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(l)), directive) {
			return true
		}
	}
	return false
}

var fromRe = regexp.MustCompile(`(?i)^\s*FROM\s+([^\s]+)`)

var outdatedTags = map[string]bool{
	"ubuntu:14.04": true, "ubuntu:16.04": true,
	"debian:jessie": true, "debian:stretch": true,
}

func fromLineIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		m := fromRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		ref := m[1]
		lower := strings.ToLower(ref)
		if outdatedTags[lower] {
			out = append(out, newIssue(filePath, i+1, model.SeverityHigh, model.CategorySecurity,
				"Outdated Base Image", "Base image '"+ref+"' is an unsupported, outdated release.", 8.0))
			continue
		}
		if !strings.Contains(ref, ":") || strings.HasSuffix(lower, ":latest") {
			out = append(out, newIssue(filePath, i+1, model.SeverityMedium, model.CategoryMaintainability,
				"Unpinned Base Image Tag", "Base image '"+ref+"' has no pinned version tag (or uses ':latest').", 4.0))
		}
	}
	return out
}

func userIssue(filePath string, lines []string) []model.CodeIssue {
	if hasDirective(lines, "USER") {
		return nil
	}
	return []model.CodeIssue{newIssue(filePath, 1, model.SeverityMedium, model.CategorySecurity,
		"No USER Directive Found", "Container will run as root; add a USER instruction.", 5.0)}
}

var envRe = regexp.MustCompile(`(?i)^\s*ENV\s+([A-Za-z0-9_]+)[\s=]`)
var secretEnvNameRe = regexp.MustCompile(`(?i)password|secret|token|key`)

func secretEnvIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		m := envRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if secretEnvNameRe.MatchString(m[1]) {
			out = append(out, newIssue(filePath, i+1, model.SeverityHigh, model.CategorySecurity,
				"Secret-Like ENV Value", "Environment variable '"+m[1]+"' looks like it holds a credential.", 8.0))
		}
	}
	return out
}

var addRe = regexp.MustCompile(`(?i)^\s*ADD\s+`)
var archiveOrURLRe = regexp.MustCompile(`(?i)https?://|\.tar|\.gz|\.zip`)

func addVsCopyIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		if !addRe.MatchString(l) {
			continue
		}
		if archiveOrURLRe.MatchString(l) {
			continue // ADD's extraction/URL behavior is the legitimate use case
		}
		out = append(out, newIssue(filePath, i+1, model.SeverityLow, model.CategoryStyle,
			"ADD Used Where COPY Would Suffice", "Plain file copies should use COPY; ADD has surprising extraction/URL behavior.", 2.0))
	}
	return out
}

var runRe = regexp.MustCompile(`(?i)^\s*RUN\s+`)
var aptUpdateRe = regexp.MustCompile(`apt-get\s+update`)
var aptInstallRe = regexp.MustCompile(`apt-get\s+install`)
var noRecommendsRe = regexp.MustCompile(`--no-install-recommends`)

// aptLayeringIssues is a best-effort detector: real correctness would
// require parsing each RUN command's shell list, not just line-matching.
func aptLayeringIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		if !runRe.MatchString(l) {
			continue
		}
		if !aptUpdateRe.MatchString(l) {
			continue
		}
		sameLineInstall := aptInstallRe.MatchString(l)
		if !sameLineInstall || !noRecommendsRe.MatchString(l) {
			out = append(out, newIssue(filePath, i+1, model.SeverityLow, model.CategoryPerformance,
				"apt-get Layering Inefficiency",
				"apt-get update should be combined with apt-get install in the same RUN layer, using --no-install-recommends.", 3.0))
		}
	}
	return out
}

func entrypointIssue(filePath string, lines []string) []model.CodeIssue {
	if hasDirective(lines, "CMD") || hasDirective(lines, "ENTRYPOINT") {
		return nil
	}
	return []model.CodeIssue{newIssue(filePath, len(lines), model.SeverityMedium, model.CategoryCorrectness,
		"No CMD or ENTRYPOINT", "The image specifies no default command to run.", 5.0)}
}
