// Package python implements the Python-like language analyzer (C3).
// Ported line-for-line in spirit from the original radon/bandit-based
// analyzer: cyclomatic complexity, a static security scan, the fixed
// hardcoded-secret regex table, function-body-hash duplication, and
// nested-loop detection.
package python

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/codequality/codequality-server/pkg/analyze"
	"github.com/codequality/codequality-server/pkg/model"
)

// Analyzer implements analyze.Analyzer for Python-like sources.
type Analyzer struct{}

func (Analyzer) Language() string { return "python-like" }

func (a Analyzer) Analyze(filePath string, content []byte) ([]model.CodeIssue, model.FileMetrics) {
	lines := splitLines(content)
	metrics := model.FileMetrics{FilePath: filePath, Language: a.Language(), LOC: countNonBlank(lines)}

	if line, ok := findSyntaxError(lines); ok {
		issue := newIssue(filePath, line, model.SeverityHigh, model.CategoryCorrectness,
			"Syntax Error", "The file could not be parsed as Python.", "", 8.0)
		return []model.CodeIssue{issue}, metrics
	}

	var issues []model.CodeIssue
	functions := findFunctions(lines)

	issues = append(issues, complexityIssues(filePath, lines, functions)...)
	issues = append(issues, secretIssues(filePath, lines)...)
	issues = append(issues, duplicationIssues(filePath, lines, functions)...)
	issues = append(issues, nestedLoopIssues(filePath, lines)...)

	metrics.ComplexityScore = averageComplexity(lines, functions)
	return issues, metrics
}

func newIssue(filePath string, line int, sev model.Severity, cat model.Category, title, desc, snippet string, impact float64) model.CodeIssue {
	ln := line
	return model.CodeIssue{
		ID:          analyze.GenerateIssueID(filePath, line, title),
		Category:    cat,
		Severity:    sev,
		Title:       title,
		Description: desc,
		FilePath:    filePath,
		LineNumber:  &ln,
		CodeSnippet: snippet,
		ImpactScore: impact,
	}
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

// findSyntaxError is a light stand-in for a real parser: unterminated
// `def`/`if`/`for`/`class`/`while` headers (a trailing ':' never found
// before the file ends, or an unbalanced opening paren on a def line)
// are treated as a parse failure, matching the "emit one HIGH issue,
// still produce LOC-only metrics" contract.
func findSyntaxError(lines []string) (int, bool) {
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if !strings.HasPrefix(trimmed, "def ") {
			continue
		}
		if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
			return i + 1, true
		}
	}
	return 0, false
}

var funcDefRe = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(`)

type function struct {
	name      string
	startLine int // 1-based
	indent    int
	body      []string
}

func findFunctions(lines []string) []function {
	var funcs []function
	for i, l := range lines {
		m := funcDefRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		indent := len(m[1])
		body := bodyLines(lines, i+1, indent)
		funcs = append(funcs, function{name: m[2], startLine: i + 1, indent: indent, body: body})
	}
	return funcs
}

func bodyLines(lines []string, from int, parentIndent int) []string {
	var body []string
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			body = append(body, lines[i])
			continue
		}
		indent := len(lines[i]) - len(strings.TrimLeft(lines[i], " \t"))
		if indent <= parentIndent {
			break
		}
		body = append(body, lines[i])
	}
	return body
}

// complexityBranchRe counts constructs that add a decision point: a rough
// analogue of radon's cyclomatic complexity (1 + number of branches).
var complexityBranchRe = regexp.MustCompile(`^\s*(if|elif|for|while|except|with|and\s|or\s)`)

func complexity(body []string) int {
	c := 1
	for _, l := range body {
		if complexityBranchRe.MatchString(l) {
			c++
		}
		c += strings.Count(l, " and ") + strings.Count(l, " or ")
	}
	return c
}

func complexityIssues(filePath string, lines []string, functions []function) []model.CodeIssue {
	var out []model.CodeIssue
	for _, fn := range functions {
		c := complexity(fn.body)
		switch {
		case c > 15:
			out = append(out, newIssue(filePath, fn.startLine, model.SeverityHigh, model.CategoryComplexity,
				"High Cyclomatic Complexity",
				"Function '"+fn.name+"' has a cyclomatic complexity of "+strconv.Itoa(c)+".", "",
				minF(float64(c)/2, 10.0)))
		case c > 10:
			out = append(out, newIssue(filePath, fn.startLine, model.SeverityMedium, model.CategoryComplexity,
				"High Cyclomatic Complexity",
				"Function '"+fn.name+"' has a cyclomatic complexity of "+strconv.Itoa(c)+".", "",
				minF(float64(c)/2, 10.0)))
		}
	}
	return out
}

func averageComplexity(lines []string, functions []function) float64 {
	if len(functions) == 0 {
		return 0
	}
	total := 0
	for _, fn := range functions {
		total += complexity(fn.body)
	}
	return float64(total) / float64(len(functions))
}

// secretPattern mirrors the original's exact (regex, title, severity) table.
type secretPattern struct {
	re       *regexp.Regexp
	title    string
	severity model.Severity
	// providerFormat marks a fixed-shape provider secret token (sk-..., AIza...,
	// AKIA...). These are high-entropy by construction, so an incidental
	// substring match against testIndicators (e.g. "123456" inside a digit run,
	// "abcdef" inside a hex run) must not suppress them the way it correctly
	// suppresses a loose assignment like PASSWORD = "test123456".
	providerFormat bool
}

// title carries the secret_type only; the issue title is always rendered
// as "Hardcoded {type} Detected" to match the fixed "title matches
// 'Hardcoded ... Detected'" contract.
var secretPatterns = []secretPattern{
	{re: regexp.MustCompile(`(?i)["']?API_?KEY["']?\s*=\s*["'][^"']{20,}["']`), title: "API Key", severity: model.SeverityCritical},
	{re: regexp.MustCompile(`(?i)["']?GOOGLE_API_KEY["']?\s*=\s*["'][^"']{20,}["']`), title: "Google API Key", severity: model.SeverityCritical},
	{re: regexp.MustCompile(`(?i)["']?OPENAI_API_KEY["']?\s*=\s*["'][^"']{20,}["']`), title: "OpenAI API Key", severity: model.SeverityCritical},
	{re: regexp.MustCompile(`(?i)["']?AWS_ACCESS_KEY["']?\s*=\s*["'][^"']{16,}["']`), title: "AWS Access Key", severity: model.SeverityCritical},
	{re: regexp.MustCompile(`(?i)["']?PASSWORD["']?\s*=\s*["'][^"']{6,}["']`), title: "Password", severity: model.SeverityHigh},
	{re: regexp.MustCompile(`(?i)["']?DB_PASSWORD["']?\s*=\s*["'][^"']{6,}["']`), title: "Database Password", severity: model.SeverityHigh},
	{re: regexp.MustCompile(`(?i)["']?TOKEN["']?\s*=\s*["'][^"']{20,}["']`), title: "Access Token", severity: model.SeverityHigh},
	{re: regexp.MustCompile(`(?i)["']?SECRET["']?\s*=\s*["'][^"']{16,}["']`), title: "Secret Key", severity: model.SeverityHigh},
	{re: regexp.MustCompile(`["'][A-Za-z0-9]{32,}["']`), title: "Potential Secret (32+ chars)", severity: model.SeverityMedium},
	{re: regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`), title: "OpenAI Secret Key Format", severity: model.SeverityCritical, providerFormat: true},
	{re: regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`), title: "Google API Key Format", severity: model.SeverityCritical, providerFormat: true},
	{re: regexp.MustCompile(`AKIA[A-Z0-9]{16}`), title: "AWS Access Key Format", severity: model.SeverityCritical, providerFormat: true},
}

var testIndicators = []string{
	"test", "example", "dummy", "fake", "mock", "sample", "your_key_here",
	"replace_me", "todo", "fixme", "123456", "abcdef", "xxxxxx",
}

func isLikelySecret(line string) bool {
	lower := strings.ToLower(line)
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return false
	}
	if strings.Contains(lower, "os.getenv") || strings.Contains(lower, "environ") {
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
			if !p.providerFormat && !isLikelySecret(l) {
				break
			}
			impact := 7.0
			if p.severity == model.SeverityCritical {
				impact = 9.0
			}
			out = append(out, newIssue(filePath, i+1, p.severity, model.CategorySecurity,
				"Hardcoded "+p.title+" Detected", "A hardcoded credential-shaped value was found in source.", "", impact))
			break // one issue per line
		}
	}
	return out
}

func duplicationIssues(filePath string, lines []string, functions []function) []model.CodeIssue {
	seen := map[string]function{}
	var out []model.CodeIssue
	for _, fn := range functions {
		normalized := strings.Join(fn.body, "\n")
		sum := sha256.Sum256([]byte(normalized))
		hash := hex.EncodeToString(sum[:])
		if prior, ok := seen[hash]; ok && prior.name != fn.name {
			out = append(out, newIssue(filePath, prior.startLine, model.SeverityMedium, model.CategoryDuplication,
				"Duplicate Function Body Detected",
				"Functions '"+prior.name+"' and '"+fn.name+"' have identical bodies.", "", 6.0))
		} else if !ok {
			seen[hash] = fn
		}
	}
	return out
}

var forRe = regexp.MustCompile(`^\s*for\s`)

func nestedLoopIssues(filePath string, lines []string) []model.CodeIssue {
	var out []model.CodeIssue
	for i, l := range lines {
		if !forRe.MatchString(l) {
			continue
		}
		indent := len(l) - len(strings.TrimLeft(l, " \t"))
		body := bodyLines(lines, i+1, indent)
		for _, bl := range body {
			if forRe.MatchString(bl) {
				out = append(out, newIssue(filePath, i+1, model.SeverityMedium, model.CategoryPerformance,
					"Nested Loop Detected",
					"A loop starting here contains another nested loop, which can degrade to quadratic time.", "", 5.0))
				break
			}
		}
	}
	return out
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
