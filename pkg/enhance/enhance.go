// Package enhance implements the Analyzer Enhancer (C4): a single LLM call
// per file that attaches a summary, optional per-issue suggestion text, and
// architectural notes onto the analyzer's output. Failure at this stage is
// never fatal — a file simply keeps its bare analyzer result.
package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/model"
)

// ContentWindow bounds how much of a file's source is sent to the LLM per
// call, matching the shared C4/C5 content-window budget.
const ContentWindow = 3000

// envelope is the strict JSON shape the prompt asks for.
type envelope struct {
	Truncated             bool              `json:"truncated"`
	Description           string            `json:"description"`
	EnhancedSuggestions   map[string]string `json:"enhanced_suggestions"`
	BusinessImpact        string            `json:"business_impact"`
	ArchitecturalConcerns []string          `json:"architectural_concerns"`
}

// FileInput is one analyzed file awaiting enhancement.
type FileInput struct {
	Path    string
	Content []byte
	Issues  []model.CodeIssue
}

// Result pairs a file's (possibly mutated) issues with its new metadata.
type Result struct {
	Path   string
	Issues []model.CodeIssue
	Meta   model.FileMeta
}

// Run enhances a single file. It never returns an error: an LLM or parse
// failure degrades to returning the issues unchanged with a zero-value
// FileMeta, per the "tolerant to LLM failure" contract.
func Run(ctx context.Context, client llmclient.LLMClient, in FileInput) Result {
	if client == nil || !client.Available() || len(in.Issues) == 0 {
		return Result{Path: in.Path, Issues: in.Issues}
	}

	excerpt := in.Content
	truncated := false
	if len(excerpt) > ContentWindow {
		excerpt = excerpt[:ContentWindow]
		truncated = true
	}

	resp, err := client.Generate(ctx, llmclient.GenerateRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(in.Path, len(in.Issues), string(excerpt), truncated),
		MaxTokens:    800,
		Temperature:  0.2,
		JSONMode:     true,
	})
	if err != nil {
		return Result{Path: in.Path, Issues: in.Issues}
	}

	env, ok := parseEnvelope(resp.Text)
	if !ok {
		return Result{Path: in.Path, Issues: in.Issues}
	}

	issues := applySuggestions(in.Issues, env.EnhancedSuggestions)
	meta := model.FileMeta{
		Summary:               env.Description,
		EnhancedSuggestions:   env.EnhancedSuggestions,
		BusinessImpact:        env.BusinessImpact,
		ArchitecturalConcerns: env.ArchitecturalConcerns,
		Truncated:             env.Truncated || truncated,
	}
	return Result{Path: in.Path, Issues: issues, Meta: meta}
}

const systemPrompt = `You are a senior code reviewer. Respond with a single JSON object only, no prose, matching exactly:
{"truncated": bool, "description": string, "enhanced_suggestions": {"<issue_id>": string}, "business_impact": string, "architectural_concerns": [string]}`

func buildPrompt(path string, issueCount int, excerpt string, truncated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nIssues found: %d\n", path, issueCount)
	if truncated {
		b.WriteString("Content (truncated to first 3000 chars):\n")
	} else {
		b.WriteString("Content:\n")
	}
	b.WriteString(excerpt)
	return b.String()
}

func applySuggestions(issues []model.CodeIssue, suggestions map[string]string) []model.CodeIssue {
	if len(suggestions) == 0 {
		return issues
	}
	out := make([]model.CodeIssue, len(issues))
	copy(out, issues)
	for i, iss := range out {
		if s, ok := suggestions[iss.ID]; ok && s != "" {
			if out[i].Suggestion == "" {
				out[i].Suggestion = s
			} else {
				out[i].Suggestion = out[i].Suggestion + "\n" + s
			}
		}
	}
	return out
}

// parseEnvelope strips code fences, locates the outermost {...}, and
// unmarshals. On any failure it returns ok=false so the caller keeps the
// analyzer's unmodified output.
func parseEnvelope(text string) (envelope, bool) {
	var env envelope
	cleaned := stripFences(text)
	braced, ok := outermostObject(cleaned)
	if !ok {
		return env, false
	}
	if err := json.Unmarshal([]byte(braced), &env); err != nil {
		return env, false
	}
	return env, true
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
