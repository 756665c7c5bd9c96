// Package orchestrator implements the Workflow Orchestrator (C8): the
// fixed pipeline that carries a job from its raw source through discovery,
// per-language analysis, enhancement, AI review, and dependency-graph
// construction. Routing logic is ported from the original LangGraph
// workflow's conditional edges, collapsed into a straight-line Go
// function since this system has no chat/Q&A entry point.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/codequality/codequality-server/pkg/analyze"
	"github.com/codequality/codequality-server/pkg/analyze/docker"
	"github.com/codequality/codequality-server/pkg/analyze/jslike"
	"github.com/codequality/codequality-server/pkg/analyze/python"
	"github.com/codequality/codequality-server/pkg/depgraph"
	"github.com/codequality/codequality-server/pkg/discovery"
	"github.com/codequality/codequality-server/pkg/enhance"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/model"
	"github.com/codequality/codequality-server/pkg/review"
)

// Deps wires the stages the orchestrator drives. Fetcher and LLM may be
// nil-free-standing defaults; analyzers are fixed to the three supported
// languages.
type Deps struct {
	Fetcher  *fetch.Fetcher
	LLM      llmclient.LLMClient // used for both C4 enhancement and C5 review
	MaxFiles int
}

var analyzers = map[string]analyze.Analyzer{
	discovery.LangPython: python.Analyzer{},
	discovery.LangJS:     jslike.Analyzer{},
	discovery.LangDocker: docker.Analyzer{},
}

// Run carries j through the full pipeline, mutating it in place via its
// thread-safe setters. It returns an error only for the two stages the
// spec treats as fatal: source fetch and discovery. Every later stage
// failure is recorded in Result.Errors and does not abort the run.
func (d Deps) Run(ctx context.Context, j *job.Job) error {
	j.SetStatus(job.StatusRunning)

	files, err := d.fetchSource(ctx, j.Source)
	if err != nil {
		j.SetError(fmt.Errorf("source fetch: %w", err))
		return err
	}
	return d.RunWithFiles(ctx, j, files)
}

// RunWithFiles drives the pipeline from an already-materialized working
// set, skipping the fetch stage. Used for upload jobs, whose bytes are
// only available at request time and are fetched by the API handler
// before the job is queued.
func (d Deps) RunWithFiles(ctx context.Context, j *job.Job, files []model.WorkingFile) error {
	j.SetStatus(job.StatusRunning)

	byPath := make(map[string]model.WorkingFile, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	discovered := discovery.Classify(files, d.maxFiles())
	if len(discovered.Languages) == 0 {
		result := job.Result{Files: files, Discovered: &discovered}
		result.Summary = summaryPtr(model.NewAnalysisSummary(len(files), nil))
		j.SetResult(result)
		j.SetStatus(job.StatusCompleted)
		return nil
	}

	var allIssues []model.CodeIssue
	metrics := map[string]model.FileMetrics{}
	metadata := map[string]model.FileMeta{}
	var errs []string

	order := languageOrder(discovered)
	for _, lang := range order {
		langPaths := discovered.Languages[lang]
		analyzer, ok := analyzers[lang]
		if !ok {
			continue
		}
		langContents := make(map[string][]byte, len(langPaths))
		for _, p := range langPaths {
			langContents[p] = byPath[p].Bytes
		}
		results, stageErr := analyze.RunStage(ctx, analyzer, langContents, langPaths)
		if stageErr != nil {
			errs = append(errs, fmt.Sprintf("%s analysis: %v", lang, stageErr))
			continue
		}
		for _, r := range results {
			allIssues = append(allIssues, r.Issues...)
			metrics[r.Path] = r.Metrics
		}
	}

	allIssues, metadata = d.enhance(ctx, byPath, allIssues, metadata)

	fileViews := buildFileViews(byPath, metadata, discovered)
	envelope := review.Run(ctx, d.LLM, allIssues, fileViews)
	merged, diagnostics := review.Merge(allIssues, envelope, fileContents(byPath))
	errs = append(errs, diagnostics...)
	if envelope.Error != "" {
		errs = append(errs, envelope.Error)
	}

	graph := depgraph.Build(depgraphFiles(byPath, discovered))

	result := job.Result{
		Files:            files,
		Discovered:       &discovered,
		Issues:           merged,
		Metrics:          metrics,
		Metadata:         metadata,
		Graph:            &graph,
		Summary:          summaryPtr(model.NewAnalysisSummary(len(files), merged)),
		ExecutiveSummary: envelope.ExecutiveSummary,
		Errors:           errs,
	}
	j.SetResult(result)
	if ctx.Err() != nil {
		// The job may already have been marked Cancelled by j.Cancel(); don't
		// stamp Completed over a cancellation that raced the pipeline tail.
		return ctx.Err()
	}
	j.SetStatus(job.StatusCompleted)
	return nil
}

func (d Deps) maxFiles() int {
	if d.MaxFiles > 0 {
		return d.MaxFiles
	}
	return 500
}

func (d Deps) fetchSource(ctx context.Context, src job.SourceRef) ([]model.WorkingFile, error) {
	switch src.Kind {
	case "remote":
		return d.Fetcher.FetchRemote(ctx, src.Location, d.maxFiles(), src.IncludeExt)
	default:
		return nil, fmt.Errorf("unsupported source kind %q for orchestrated fetch; uploads must be pre-fetched by the API handler", src.Kind)
	}
}

// languageOrder ports route_language_analysis/check_analysis_completion:
// prefer the strategy's first-language hint, else python, then js, then
// docker, visiting only languages actually discovered.
func languageOrder(d model.DiscoveredSet) []string {
	has := func(lang string) bool { return len(d.Languages[lang]) > 0 }
	var order []string
	first := d.Strategy.FirstLanguage
	if first != "" && has(first) {
		order = append(order, first)
	}
	for _, lang := range []string{discovery.LangPython, discovery.LangJS, discovery.LangDocker} {
		if has(lang) && !contains(order, lang) {
			order = append(order, lang)
		}
	}
	return order
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (d Deps) enhance(ctx context.Context, byPath map[string]model.WorkingFile, issues []model.CodeIssue, metadata map[string]model.FileMeta) ([]model.CodeIssue, map[string]model.FileMeta) {
	if d.LLM == nil || !d.LLM.Available() {
		return issues, metadata
	}
	byFile := map[string][]model.CodeIssue{}
	for _, iss := range issues {
		byFile[iss.FilePath] = append(byFile[iss.FilePath], iss)
	}
	var out []model.CodeIssue
	for path, fileIssues := range byFile {
		res := enhance.Run(ctx, d.LLM, enhance.FileInput{
			Path:    path,
			Content: byPath[path].Bytes,
			Issues:  fileIssues,
		})
		out = append(out, res.Issues...)
		if res.Meta.Summary != "" || len(res.Meta.EnhancedSuggestions) > 0 {
			metadata[path] = res.Meta
		}
	}
	return out, metadata
}

func buildFileViews(byPath map[string]model.WorkingFile, metadata map[string]model.FileMeta, discovered model.DiscoveredSet) []review.FileView {
	var views []review.FileView
	for _, paths := range discovered.Languages {
		for _, p := range paths {
			meta, hasMeta := metadata[p]
			v := review.FileView{Path: p}
			if hasMeta && meta.Truncated {
				v.Truncated = true
				v.Summary = meta.Summary
			} else {
				v.Content = string(byPath[p].Bytes)
			}
			views = append(views, v)
		}
	}
	return views
}

// fileContents exposes each file's full, untruncated source for line-number
// verification, independent of whatever truncated view was sent to the LLM.
func fileContents(byPath map[string]model.WorkingFile) map[string]string {
	out := make(map[string]string, len(byPath))
	for p, f := range byPath {
		out[p] = string(f.Bytes)
	}
	return out
}

func depgraphFiles(byPath map[string]model.WorkingFile, discovered model.DiscoveredSet) []depgraph.File {
	var out []depgraph.File
	for lang, paths := range discovered.Languages {
		for _, p := range paths {
			out = append(out, depgraph.File{Path: p, Language: lang, Content: string(byPath[p].Bytes)})
		}
	}
	return out
}

func summaryPtr(s model.AnalysisSummary) *model.AnalysisSummary { return &s }
