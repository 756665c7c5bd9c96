// Package depgraph implements the Dependency Graph Builder (C7): per-file
// import extraction for each supported language, resolution of symbolic
// targets against the working set's own paths, and assembly of the final
// {nodes, links} graph.
package depgraph

import (
	"path"
	"regexp"
	"strings"

	"github.com/codequality/codequality-server/pkg/model"
)

// File is one member of the working set, already classified by language.
type File struct {
	Path     string
	Language string // "python-like", "js-like", "docker"
	Content  string
}

var (
	pyImportRe     = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	pyFromImportRe = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s`)
	jsImportRe     = regexp.MustCompile(`import\s+.*?\s+from\s+["']([^"']+)["']`)
	jsRequireRe    = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)
	dockerFromRe   = regexp.MustCompile(`(?i)^\s*FROM\s+([^\s]+)`)
	dockerCopyRe   = regexp.MustCompile(`(?i)^\s*COPY\s+--from=([^\s]+)`)
)

// Build extracts import edges from every file and resolves them into a
// dependency graph over the working set's own nodes.
func Build(files []File) model.DependencyGraph {
	targets := make(map[string][]string, len(files)) // file path -> raw symbolic targets
	for _, f := range files {
		targets[f.Path] = extractTargets(f)
	}

	outDegree := make(map[string]int, len(files))
	seenLinks := map[string]bool{}
	var links []model.Link
	for _, f := range files {
		for _, raw := range targets[f.Path] {
			resolved, ok := resolve(raw, files)
			if !ok || resolved == f.Path {
				continue
			}
			key := f.Path + "\x00" + resolved
			if seenLinks[key] {
				continue
			}
			seenLinks[key] = true
			links = append(links, model.Link{Source: f.Path, Target: resolved, Value: 1})
			outDegree[f.Path]++
		}
	}

	nodes := make([]model.Node, 0, len(files))
	for _, f := range files {
		typ := "file"
		group := f.Language
		if f.Language == "docker" {
			typ = "image"
		}
		nodes = append(nodes, model.Node{
			ID:    f.Path,
			Name:  path.Base(f.Path),
			Group: group,
			Type:  typ,
			Size:  100 + 20*outDegree[f.Path],
		})
	}
	for _, external := range externalDockerNodes(files, targets) {
		nodes = append(nodes, external)
	}

	return model.DependencyGraph{Nodes: nodes, Links: links}
}

func extractTargets(f File) []string {
	switch f.Language {
	case "python-like":
		return pythonTargets(f.Content)
	case "js-like":
		return jsTargets(f.Content)
	case "docker":
		return dockerTargets(f.Content)
	default:
		return nil
	}
}

func pythonTargets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if m := pyFromImportRe.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

func jsTargets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if m := jsImportRe.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
		if m := jsRequireRe.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// dockerTargets prefixes FROM references with "docker:" per the node-id
// convention; COPY --from=name references a build stage or another node by
// its bare name, so it's left unprefixed for resolve to match directly.
func dockerTargets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if m := dockerFromRe.FindStringSubmatch(line); m != nil {
			out = append(out, "docker:"+m[1])
		}
		if m := dockerCopyRe.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

var sourceSuffixes = []string{".py", ".js", ".jsx", ".ts", ".tsx"}

// resolve matches a symbolic import target against the working set's own
// paths by suffix or basename; anything that doesn't resolve (stdlib and
// third-party modules, external base images) is dropped rather than
// invented as a synthetic node.
func resolve(target string, files []File) (string, bool) {
	if strings.HasPrefix(target, "docker:") {
		return target, true // external base image, represented as its own node below
	}
	relative := strings.TrimPrefix(strings.TrimPrefix(target, "../"), "./")
	normalized := strings.ReplaceAll(target, ".", "/")
	candidates := []string{target, normalized, relative}
	for _, suf := range sourceSuffixes {
		candidates = append(candidates, target+suf, normalized+suf, relative+suf)
	}
	base := path.Base(relative)
	for _, f := range files {
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if f.Path == c || strings.HasSuffix(f.Path, "/"+c) {
				return f.Path, true
			}
		}
		if path.Base(f.Path) == base || stripExt(path.Base(f.Path)) == base {
			return f.Path, true
		}
	}
	return "", false
}

func stripExt(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext)
}

// externalDockerNodes materializes one node per distinct unresolved
// "docker:" base-image reference, since those never match a working-set
// path but are still a real edge target the caller wants to see.
func externalDockerNodes(files []File, targets map[string][]string) []model.Node {
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}
	seen := map[string]bool{}
	var nodes []model.Node
	for _, raw := range targets {
		for _, t := range raw {
			if !strings.HasPrefix(t, "docker:") || seen[t] || known[t] {
				continue
			}
			seen[t] = true
			nodes = append(nodes, model.Node{
				ID:    t,
				Name:  strings.TrimPrefix(t, "docker:"),
				Group: "docker",
				Type:  "image",
				Size:  100,
			})
		}
	}
	return nodes
}
