// Package analyze hosts the shared contract for the per-language analyzers
// (C3) and the bounded fan-out that runs them across a working set.
// Analyzers are pure: given (path, bytes) they return (issues, metrics)
// with no network access and no shared mutable state, so they are safe to
// run concurrently.
package analyze

import (
	"context"
	"path"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codequality/codequality-server/pkg/model"
)

// MaxConcurrency bounds per-file fan-out within a single language stage,
// per the default of 4 in the concurrency model.
const MaxConcurrency = 4

// Analyzer is implemented by every per-language analyzer.
type Analyzer interface {
	// Language is the tag this analyzer handles ("python-like", "js-like",
	// "docker").
	Language() string
	// Analyze runs every check against one file's content and returns its
	// issues plus its FileMetrics. It must never panic on malformed input;
	// callers that want hard panic-safety wrap this with RunSafely.
	Analyze(filePath string, content []byte) ([]model.CodeIssue, model.FileMetrics)
}

// GenerateIssueID computes the deterministic stable id required by the
// id-stability invariant (spec §3): {basename(path)}-{line}-{normalized
// title}, where normalized title keeps only alphanumeric characters,
// lowercased.
func GenerateIssueID(filePath string, line int, title string) string {
	var b strings.Builder
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	normalized := strings.ToLower(b.String())
	return path.Base(filePath) + "-" + strconv.Itoa(line) + "-" + normalized
}

// FileResult pairs one file's path with the issues/metrics an analyzer
// produced for it, or the panic it recovered from.
type FileResult struct {
	Path    string
	Issues  []model.CodeIssue
	Metrics model.FileMetrics
}

// RunStage runs one analyzer across every path in files, bounded to
// MaxConcurrency concurrent goroutines via errgroup. A panic inside a
// single file's analysis (AnalyzerInternal) is recovered and yields an
// empty result for that file rather than aborting the stage.
func RunStage(ctx context.Context, a Analyzer, contents map[string][]byte, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrency)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() (err error) {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			defer func() {
				if r := recover(); r != nil {
					results[i] = FileResult{Path: p, Metrics: model.FileMetrics{FilePath: p, Language: a.Language()}}
				}
			}()
			issues, metrics := a.Analyze(p, contents[p])
			results[i] = FileResult{Path: p, Issues: issues, Metrics: metrics}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
