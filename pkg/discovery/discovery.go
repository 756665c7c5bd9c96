// Package discovery implements File Discovery (C2): classifies a working
// set by language, applies the per-job file cap, and produces an advisory
// analysis-strategy hint.
package discovery

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/model"
)

const (
	LangPython = "python-like"
	LangJS     = "js-like"
	LangDocker = "docker"
)

// Classify buckets every working file into a language tag and returns the
// DiscoveredSet, applying maxFiles by round-robin truncation so every
// present language keeps representation.
func Classify(files []model.WorkingFile, maxFiles int) model.DiscoveredSet {
	buckets := map[string][]string{}
	for _, f := range files {
		if f.OverCap {
			continue // graphed later, never analyzed
		}
		lang := classifyOne(f.Path)
		if lang == "" {
			continue
		}
		buckets[lang] = append(buckets[lang], f.Path)
	}
	truncated := roundRobinCap(buckets, maxFiles)
	return model.DiscoveredSet{
		Languages: truncated,
		Strategy:  heuristicStrategy(truncated),
	}
}

func classifyOne(p string) string {
	base := path.Base(p)
	ext := path.Ext(base)
	switch {
	case ext == ".py":
		return LangPython
	case ext == ".js" || ext == ".jsx" || ext == ".ts" || ext == ".tsx":
		return LangJS
	case strings.HasPrefix(base, "Dockerfile"):
		return LangDocker
	default:
		return ""
	}
}

// roundRobinCap keeps every non-empty language bucket represented when the
// combined file count exceeds maxFiles, cycling through buckets in a
// stable order rather than draining one bucket before touching the next.
func roundRobinCap(buckets map[string][]string, maxFiles int) map[string][]string {
	total := 0
	for _, v := range buckets {
		total += len(v)
	}
	if maxFiles <= 0 || total <= maxFiles {
		return buckets
	}

	order := []string{LangPython, LangJS, LangDocker}
	for lang := range buckets {
		found := false
		for _, o := range order {
			if o == lang {
				found = true
				break
			}
		}
		if !found {
			order = append(order, lang)
		}
	}

	out := make(map[string][]string, len(buckets))
	idx := make(map[string]int, len(buckets))
	kept := 0
	for kept < maxFiles {
		progressed := false
		for _, lang := range order {
			files := buckets[lang]
			i := idx[lang]
			if i >= len(files) {
				continue
			}
			out[lang] = append(out[lang], files[i])
			idx[lang] = i + 1
			kept++
			progressed = true
			if kept >= maxFiles {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// heuristicStrategy is the deterministic fallback: parallel when at least
// two non-empty language groups are present; Python-like goes first when
// it has the most files, otherwise whichever language has the most.
func heuristicStrategy(buckets map[string][]string) model.AnalysisStrategy {
	nonEmpty := 0
	best := ""
	bestCount := -1
	for _, lang := range []string{LangPython, LangJS, LangDocker} {
		n := len(buckets[lang])
		if n > 0 {
			nonEmpty++
		}
		if n > bestCount {
			bestCount = n
			best = lang
		}
	}
	complexity := "low"
	total := 0
	for _, v := range buckets {
		total += len(v)
	}
	switch {
	case total > 100:
		complexity = "high"
	case total > 25:
		complexity = "medium"
	}
	return model.AnalysisStrategy{
		Parallel:      nonEmpty >= 2,
		FirstLanguage: best,
		Complexity:    complexity,
	}
}

// SynthesizeStrategy asks the LLM for a strategy hint, falling back to the
// deterministic heuristic on any failure or malformed response — the hint
// is advisory only, so a degraded LLM must never block discovery.
func SynthesizeStrategy(ctx context.Context, client llmclient.LLMClient, buckets map[string][]string) model.AnalysisStrategy {
	fallback := heuristicStrategy(buckets)
	if client == nil || !client.Available() {
		return fallback
	}
	summary := strings.Builder{}
	for _, lang := range []string{LangPython, LangJS, LangDocker} {
		summary.WriteString(lang)
		summary.WriteString(": ")
		summary.WriteString(strconv.Itoa(len(buckets[lang])))
		summary.WriteString(" files\n")
	}
	resp, err := client.Generate(ctx, llmclient.GenerateRequest{
		SystemPrompt: "Given per-language file counts, reply with a one-word language name to analyze first.",
		UserPrompt:   summary.String(),
		MaxTokens:    32,
	})
	if err != nil || resp == nil || resp.Text == "" {
		return fallback
	}
	candidate := strings.ToLower(strings.TrimSpace(resp.Text))
	for _, lang := range []string{LangPython, LangJS, LangDocker} {
		if strings.Contains(candidate, strings.TrimSuffix(lang, "-like")) {
			fallback.FirstLanguage = lang
			fallback.Synthesized = true
			return fallback
		}
	}
	return fallback
}
