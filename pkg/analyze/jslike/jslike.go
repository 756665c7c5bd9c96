// Package jslike implements the JavaScript-family analyzer (C3): a
// line-scan heuristic pass, deliberately simpler than the Python-like
// analyzer's syntactic checks since JS/TS parsing is out of scope here.
package jslike

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/codequality/codequality-server/pkg/analyze"
	"github.com/codequality/codequality-server/pkg/model"
)

// Analyzer implements analyze.Analyzer for JS/TS-family sources.
type Analyzer struct{}

func (Analyzer) Language() string { return "js-like" }

func (a Analyzer) Analyze(filePath string, content []byte) ([]model.CodeIssue, model.FileMetrics) {
	lines := splitLines(content)
	metrics := model.FileMetrics{FilePath: filePath, Language: a.Language(), LOC: countNonBlank(lines)}

	var issues []model.CodeIssue
	issues = append(issues, lineScanIssues(filePath, lines)...)
	issues = append(issues, domQueryInLoopIssues(filePath, lines)...)
	issues = append(issues, longFunctionIssues(filePath, lines)...)
	issues = append(issues, secretIssues(filePath, lines)...)
	return issues, metrics
}

func splitLines(content []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
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

func isCommentLine(l string) bool {
	t := strings.TrimSpace(l)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/*")
}

var varDeclRe = regexp.MustCompile(`(^|\s)var\s+\w`)

func lineScanIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		if isCommentLine(l) {
			continue
		}
		if strings.Contains(l, "console.log") {
			out = append(out, newIssue(filePath, i+1, model.SeverityLow, model.CategoryStyle,
				"console.log Statement Found", "Debug logging left in source.", 2.0))
		}
		if varDeclRe.MatchString(l) {
			out = append(out, newIssue(filePath, i+1, model.SeverityLow, model.CategoryStyle,
				"var Declaration Used", "Use let/const instead of var.", 2.0))
		}
		if strings.Contains(l, "eval(") {
			out = append(out, newIssue(filePath, i+1, model.SeverityHigh, model.CategorySecurity,
				"Use of eval() Detected", "eval() executes arbitrary strings as code.", 8.0))
		}
		if strings.Contains(l, "innerHTML") || strings.Contains(l, "document.write") {
			out = append(out, newIssue(filePath, i+1, model.SeverityMedium, model.CategorySecurity,
				"Unsafe DOM Sink Detected", "innerHTML/document.write can enable cross-site scripting.", 6.0))
		}
	}
	return out
}

var loopStartRe = regexp.MustCompile(`^\s*(for|while)\s*\(`)
var domQueryRe = regexp.MustCompile(`getElementById|querySelector`)

// domQueryInLoopIssues scans a ±3 line window around every loop header for
// DOM-query calls, matching the original's windowed heuristic rather than
// a full control-flow analysis.
func domQueryInLoopIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		if !loopStartRe.MatchString(l) {
			continue
		}
		start := max(0, i-3)
		end := min(len(lines), i+4)
		for w := start; w < end; w++ {
			if domQueryRe.MatchString(lines[w]) {
				out = append(out, newIssue(filePath, i+1, model.SeverityMedium, model.CategoryPerformance,
					"DOM Query Inside Loop",
					"A DOM query call appears near a loop; cache the lookup outside the loop instead.", 5.0))
				break
			}
		}
	}
	return out
}

func longFunctionIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	funcStartRe := regexp.MustCompile(`function\s*\w*\s*\(|=>\s*\{`)
	for i, l := range lines {
		if !funcStartRe.MatchString(l) {
			continue
		}
		depth := strings.Count(l, "{") - strings.Count(l, "}")
		length := 1
		for j := i + 1; j < len(lines) && depth > 0; j++ {
			depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
			length++
		}
		if length > 50 {
			out = append(out, newIssue(filePath, i+1, model.SeverityMedium, model.CategoryComplexity,
				"Long Function Body", "Function body spans over 50 lines; consider decomposing it.", 5.0))
		}
	}
	return out
}

type secretPattern struct {
	re    *regexp.Regexp
	title string
	sev   model.Severity
}

// Same provider-specific shapes as the Python-like analyzer, with
// JS-appropriate assignment delimiters (`:`/`=`, single or double quotes,
// optional semicolon).
var secretPatterns = []secretPattern{
	{regexp.MustCompile(`(?i)apiKey\s*[:=]\s*["'][^"']{20,}["']`), "API Key", model.SeverityCritical},
	{regexp.MustCompile(`(?i)password\s*[:=]\s*["'][^"']{6,}["']`), "Password", model.SeverityHigh},
	{regexp.MustCompile(`(?i)token\s*[:=]\s*["'][^"']{20,}["']`), "Access Token", model.SeverityHigh},
	{regexp.MustCompile(`(?i)secret\s*[:=]\s*["'][^"']{16,}["']`), "Secret Key", model.SeverityHigh},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`), "OpenAI Secret Key Format", model.SeverityCritical},
	{regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`), "Google API Key Format", model.SeverityCritical},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "AWS Access Key Format", model.SeverityCritical},
}

var testIndicators = []string{
	"test", "example", "dummy", "fake", "mock", "sample", "your_key_here",
	"replace_me", "todo", "fixme", "123456", "abcdef", "xxxxxx",
}

func isLikelySecret(line string) bool {
	lower := strings.ToLower(line)
	if isCommentLine(line) {
		return false
	}
	if strings.Contains(lower, "process.env") {
		return false
	}
	for _, ind := range testIndicators {
		if strings.Contains(lower, ind) {
			return false
		}
	}
	return true
}

func secretIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		for _, p := range secretPatterns {
			if !p.re.MatchString(l) {
				continue
			}
			if !isLikelySecret(l) {
				break
			}
			impact := 7.0
			if p.sev == model.SeverityCritical {
				impact = 9.0
			}
			out = append(out, newIssue(filePath, i+1, p.sev, model.CategorySecurity,
				"Hardcoded "+p.title+" Detected", "A hardcoded credential-shaped value was found in source.", impact))
			break
		}
	}
	return out
}
