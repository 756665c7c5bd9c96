// Package review implements the AI Review stage (C5) and the Issue Merger
// (C6): one cross-file LLM pass over the accumulated issue set, a defensive
// JSON-repair pipeline, tiered line-number verification for AI-claimed
// snippets, and stable-id merge semantics into the final issue list.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/model"
)

// ContentWindow mirrors the C4 enhancer's per-file content budget.
const ContentWindow = 3000

// FileView is the bounded per-file context handed to the review prompt.
type FileView struct {
	Path      string
	Content   string
	Truncated bool
	Summary   string // used in place of Content when Truncated
}

// Issue is one AI-emitted issue, enhanced or newly found.
type Issue struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Severity        string  `json:"severity"`
	Category        string  `json:"category"`
	Suggestion      string  `json:"suggestion"`
	ImpactScore     float64 `json:"impact_score"`
	AIReviewContext string  `json:"ai_review_context"`
	CodeSnippet     string  `json:"code_snippet"`
	FilePath        string  `json:"file_path"`
}

// Envelope is the strict JSON shape the review prompt asks for.
type Envelope struct {
	ExecutiveSummary    string                 `json:"executive_summary"`
	ArchitectureAnalysis string                `json:"architecture_analysis"`
	EnhancedIssues      []Issue                `json:"enhanced_issues"`
	NewIssuesFound      []Issue                `json:"new_issues_found"`
	Recommendations     []string               `json:"recommendations"`
	QualityMetrics      map[string]interface{} `json:"quality_metrics"`
	TechnicalDebt       string                 `json:"technical_debt"`
	Error               string                 `json:"error,omitempty"`
}

// Run executes the single AI review pass. It never returns an error for
// LLM/parse failure — those degrade to a best-effort partial envelope, per
// the "retry once, then fall back" contract. A non-nil error is only
// returned when ctx is cancelled before the retry completes.
func Run(ctx context.Context, client llmclient.LLMClient, issues []model.CodeIssue, files []FileView) Envelope {
	if client == nil || !client.Available() {
		return Envelope{}
	}

	prompt := buildPrompt(issues, files)
	env, ok := attempt(ctx, client, prompt, false)
	if ok {
		return env
	}
	env, ok = attempt(ctx, client, prompt, true)
	if ok {
		return env
	}
	return partialEnvelope("AI review response could not be parsed as JSON after retry")
}

func attempt(ctx context.Context, client llmclient.LLMClient, prompt string, strict bool) (Envelope, bool) {
	sys := systemPrompt
	if strict {
		sys = "Your previous JSON was malformed. " + systemPrompt
	}
	resp, err := client.Generate(ctx, llmclient.GenerateRequest{
		SystemPrompt: sys,
		UserPrompt:   prompt,
		MaxTokens:    4096,
		Temperature:  0.2,
		JSONMode:     true,
	})
	if err != nil {
		return Envelope{}, false
	}
	return parseEnvelope(resp.Text)
}

const systemPrompt = `You are reviewing an entire codebase's accumulated analysis findings. Respond with a single JSON object only, no prose, matching exactly:
{"executive_summary": string, "architecture_analysis": string, "enhanced_issues": [{"id": string, "title": string, "description": string, "severity": "CRITICAL"|"HIGH"|"MEDIUM"|"LOW", "category": string, "suggestion": string, "impact_score": number, "ai_review_context": string, "code_snippet": string, "file_path": string}], "new_issues_found": [...same shape, with a fresh id...], "recommendations": [string], "quality_metrics": object, "technical_debt": string}`

func buildPrompt(issues []model.CodeIssue, files []FileView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Existing issues (%d):\n", len(issues))
	for _, iss := range issues {
		fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", iss.ID, iss.Title, iss.Severity, iss.FilePath)
	}
	b.WriteString("\nFiles:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "\n### %s\n", f.Path)
		if f.Truncated {
			fmt.Fprintf(&b, "(truncated) %s\n", f.Summary)
			continue
		}
		content := f.Content
		if len(content) > ContentWindow {
			content = content[:ContentWindow]
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

// parseEnvelope runs the fence-strip -> outer-brace -> unmarshal pipeline,
// falling back to one repair pass (escape fixes, dangling-comma removal,
// truncation at the last balanced brace) before giving up.
func parseEnvelope(text string) (Envelope, bool) {
	cleaned := stripFences(text)
	braced, ok := outermostObject(cleaned)
	if !ok {
		return Envelope{}, false
	}

	var env Envelope
	if err := json.Unmarshal([]byte(braced), &env); err == nil {
		return env, true
	}

	repaired := repairJSON(braced)
	if err := json.Unmarshal([]byte(repaired), &env); err == nil {
		return env, true
	}
	return Envelope{}, false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func outermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

var danglingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON fixes the handful of malformations real models produce:
// trailing commas before a closing brace/bracket, and truncation
// mid-object by backing off to the last balanced `}`.
func repairJSON(s string) string {
	s = danglingCommaRe.ReplaceAllString(s, "$1")
	if json.Valid([]byte(s)) {
		return s
	}
	return truncateToLastBalancedBrace(s)
}

func truncateToLastBalancedBrace(s string) string {
	depth := 0
	lastBalanced := -1
	inString := false
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					lastBalanced = i
				}
			}
		}
	}
	if lastBalanced == -1 {
		return s
	}
	return s[:lastBalanced+1]
}

func partialEnvelope(reason string) Envelope {
	return Envelope{
		EnhancedIssues: []Issue{},
		NewIssuesFound: []Issue{},
		QualityMetrics: map[string]interface{}{"overall_score": 0},
		Error:          reason,
	}
}

// Merge applies Issue Merger (C6) semantics: enhanced_issues update matching
// existing issues by id (only the updatable fields); new_issues_found are
// inserted unless their id collides with an existing one, in which case
// they're dropped with a diagnostic; the result is sorted by severity
// descending then (file_path, line_number) ascending. fileContent maps each
// file's path to its full source, used to locate a line number for any
// AI-emitted issue carrying a non-empty code_snippet.
func Merge(existing []model.CodeIssue, env Envelope, fileContent map[string]string) (merged []model.CodeIssue, diagnostics []string) {
	byID := make(map[string]int, len(existing))
	out := make([]model.CodeIssue, len(existing))
	copy(out, existing)
	for i, iss := range out {
		byID[iss.ID] = i
	}

	for _, ai := range env.EnhancedIssues {
		idx, ok := byID[ai.ID]
		if !ok {
			out = append(out, fromAIIssue(ai, fileContent))
			byID[ai.ID] = len(out) - 1
			continue
		}
		applyEnhancement(&out[idx], ai)
	}

	for _, ai := range env.NewIssuesFound {
		if _, ok := byID[ai.ID]; ok {
			diagnostics = append(diagnostics, "dropped new_issues_found id collision: "+ai.ID)
			continue
		}
		out = append(out, fromAIIssue(ai, fileContent))
		byID[ai.ID] = len(out) - 1
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		li, lj := lineOrMax(out[i].LineNumber), lineOrMax(out[j].LineNumber)
		return li < lj
	})
	return out, diagnostics
}

func lineOrMax(ln *int) int {
	if ln == nil {
		return int(^uint(0) >> 1)
	}
	return *ln
}

func applyEnhancement(issue *model.CodeIssue, ai Issue) {
	if ai.Suggestion != "" {
		issue.Suggestion = ai.Suggestion
	}
	if ai.ImpactScore != 0 {
		issue.ImpactScore = ai.ImpactScore
	}
	if ai.AIReviewContext != "" {
		issue.AIReviewContext = ai.AIReviewContext
	}
	if sev, ok := model.ParseSeverity(ai.Severity); ok {
		issue.Severity = sev
	}
	if ai.Description != "" {
		issue.Description = ai.Description
	}
	if ai.Title != "" {
		issue.Title = ai.Title
	}
}

// fromAIIssue builds a model.CodeIssue from an AI-emitted Issue. Per §4.5,
// an issue whose code_snippet is non-empty gets a verified line_number when
// the snippet can be located in the file's content; otherwise line_number
// stays absent rather than guessed.
func fromAIIssue(ai Issue, fileContent map[string]string) model.CodeIssue {
	sev, ok := model.ParseSeverity(ai.Severity)
	if !ok {
		sev = model.SeverityMedium
	}
	cat, ok := model.ParseCategory(ai.Category)
	if !ok {
		cat = model.CategoryCorrectness
	}
	issue := model.CodeIssue{
		ID:              ai.ID,
		Category:        cat,
		Severity:        sev,
		Title:           ai.Title,
		Description:     ai.Description,
		FilePath:        ai.FilePath,
		CodeSnippet:     ai.CodeSnippet,
		Suggestion:      ai.Suggestion,
		ImpactScore:     ai.ImpactScore,
		AIReviewContext: ai.AIReviewContext,
	}
	if ai.CodeSnippet != "" {
		if content, ok := fileContent[ai.FilePath]; ok {
			issue.LineNumber = VerifyLineNumber(content, ai.CodeSnippet)
		}
	}
	return issue
}

// VerifyLineNumber locates an AI-claimed code snippet in file content using
// a tiered strategy, returning nil when no tier matches rather than
// guessing a line number.
func VerifyLineNumber(content, snippet string) *int {
	if strings.TrimSpace(snippet) == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	snippetLines := strings.Split(strings.TrimRight(snippet, "\n"), "\n")
	first := strings.TrimSpace(snippetLines[0])

	if ln, ok := exactMatch(lines, snippetLines, first); ok {
		return &ln
	}
	if ln, ok := fuzzyMatch(lines, snippet); ok {
		return &ln
	}
	if ln, ok := distinctiveSubstringMatch(lines, snippet); ok {
		return &ln
	}
	if ln, ok := domainPatternProbe(lines, snippet); ok {
		return &ln
	}
	return nil
}

func exactMatch(lines, snippetLines []string, first string) (int, bool) {
	if first == "" {
		return 0, false
	}
	for i, l := range lines {
		if strings.TrimSpace(l) != first {
			continue
		}
		if len(snippetLines) == 1 {
			return i + 1, true
		}
		matched := true
		for j := 1; j < len(snippetLines) && i+j < len(lines); j++ {
			if strings.TrimSpace(lines[i+j]) != strings.TrimSpace(snippetLines[j]) {
				matched = false
				break
			}
		}
		if matched {
			return i + 1, true
		}
	}
	return 0, false
}

// fuzzyMatch slides a window the height of the snippet across the file,
// accepting the first window with >= 60% character overlap.
func fuzzyMatch(lines []string, snippet string) (int, bool) {
	snippetLines := strings.Split(strings.TrimRight(snippet, "\n"), "\n")
	height := len(snippetLines)
	if height == 0 || height > len(lines) {
		return 0, false
	}
	target := strings.Join(snippetLines, "\n")
	for i := 0; i+height <= len(lines); i++ {
		window := strings.Join(lines[i:i+height], "\n")
		if overlapRatio(target, window) >= 0.6 {
			return i + 1, true
		}
	}
	return 0, false
}

func overlapRatio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	counts := map[rune]int{}
	for _, r := range a {
		counts[r]++
	}
	shared := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(shared) / float64(denom)
}

// distinctiveSubstringMatch looks for the longest token (>= 12 chars) from
// the snippet appearing verbatim on a single line.
func distinctiveSubstringMatch(lines []string, snippet string) (int, bool) {
	fields := strings.Fields(snippet)
	var longest string
	for _, f := range fields {
		if len(f) >= 12 && len(f) > len(longest) {
			longest = f
		}
	}
	if longest == "" {
		return 0, false
	}
	for i, l := range lines {
		if strings.Contains(l, longest) {
			return i + 1, true
		}
	}
	return 0, false
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{4,}`)

// domainPatternProbe is the last tier: reuse any identifier-shaped token
// from the snippet and look for a unique single-line match.
func domainPatternProbe(lines []string, snippet string) (int, bool) {
	tokens := identifierRe.FindAllString(snippet, -1)
	for _, tok := range tokens {
		count, lastLine := 0, 0
		for i, l := range lines {
			if strings.Contains(l, tok) {
				count++
				lastLine = i + 1
			}
		}
		if count == 1 {
			return lastLine, true
		}
	}
	return 0, false
}
