// Package fetch implements the Source Fetcher (C1): materializing a
// working set of {path, bytes} from either an uploaded bundle or a remote
// repository reference, applying the configured size/type filters.
package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/model"
)

// UploadFile is one member of an uploaded bundle, as handed to the fetcher
// by the HTTP layer (already read into memory — multipart decoding is the
// API layer's job, not the fetcher's).
type UploadFile struct {
	Filename string
	Content  []byte
}

// Fetcher implements C1 against the configured caps.
type Fetcher struct {
	cfg    config.FetchConfig
	client *http.Client
	token  string
}

// New constructs a Fetcher. token is the optional remote-repo API token
// that raises host rate limits; an empty token still works for public
// repositories.
func New(cfg config.FetchConfig, token string) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{},
		token:  token,
	}
}

// FetchUpload materializes an uploaded bundle. Any filename containing
// ".." is rejected outright — this is the one fatal condition for an
// upload submission (InputValidation).
func (f *Fetcher) FetchUpload(files []UploadFile) ([]model.WorkingFile, error) {
	out := make([]model.WorkingFile, 0, len(files))
	for _, uf := range files {
		cleanPath := path.Clean(strings.ReplaceAll(uf.Filename, "\\", "/"))
		if strings.Contains(cleanPath, "..") || strings.HasPrefix(cleanPath, "/") {
			return nil, invalid(fmt.Sprintf("rejected path traversal in upload filename %q", uf.Filename), nil)
		}
		wf := model.WorkingFile{Path: cleanPath, Origin: "uploaded"}
		if int64(len(uf.Content)) > f.cfg.MaxFileBytes {
			wf.OverCap = true
		} else {
			wf.Bytes = capLines(uf.Content, f.cfg.MaxFileLines)
		}
		out = append(out, wf)
		if len(out) >= f.cfg.MaxFiles {
			break
		}
	}
	return out, nil
}

// repoEntry is one node in a remote tree listing, ahead of download.
type repoEntry struct {
	path  string
	isDir bool
}

// remoteAPIEntry mirrors a GitHub-contents-API-style tree entry.
type remoteAPIEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"` // "file" or "dir"
	DownloadURL string `json:"download_url"`
}

// conventionalSourceDirs get traversal priority per the deterministic
// ordering rule: directories before files, conventional names first.
var conventionalSourceDirs = map[string]bool{
	"src": true, "lib": true, "app": true, "pkg": true, "cmd": true,
}

// FetchRemote walks a remote {owner, repo} reference and returns a
// WorkingFile per eligible file, up to maxFiles. repoURL is expected in
// the form "https://host/owner/repo" (or "owner/repo").
func (f *Fetcher) FetchRemote(ctx context.Context, repoURL string, maxFiles int, includePatterns []string) ([]model.WorkingFile, error) {
	owner, repo, apiBase, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, invalid("malformed repository reference", err)
	}
	if maxFiles <= 0 || maxFiles > f.cfg.MaxFiles {
		maxFiles = f.cfg.MaxFiles
	}

	entries, err := f.listTreeRecursive(ctx, apiBase, owner, repo, "")
	if err != nil {
		return nil, err
	}
	ordered := orderEntriesDeterministically(entries)

	out := make([]model.WorkingFile, 0, maxFiles)
	for _, e := range ordered {
		if e.isDir {
			continue
		}
		if !f.extensionAllowed(e.path) {
			continue
		}
		if len(includePatterns) > 0 && !matchesAny(e.path, includePatterns) {
			continue
		}
		wf, err := f.downloadFile(ctx, apiBase, owner, repo, e.path)
		if err != nil {
			return nil, remoteErr("failed fetching "+e.path, err)
		}
		out = append(out, wf)
		if len(out) >= maxFiles {
			break
		}
	}
	return out, nil
}

func (f *Fetcher) extensionAllowed(p string) bool {
	base := path.Base(p)
	for _, ext := range f.cfg.AllowedExts {
		if strings.HasPrefix(ext, ".") {
			if strings.HasSuffix(base, ext) {
				return true
			}
		} else if base == ext {
			return true
		}
	}
	return false
}

func matchesAny(p string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, p); ok {
			return true
		}
		if strings.Contains(p, pat) {
			return true
		}
	}
	return false
}

func (f *Fetcher) listTreeRecursive(ctx context.Context, apiBase, owner, repo, dir string) ([]repoEntry, error) {
	for _, skip := range f.skipDirsSet() {
		if path.Base(dir) == skip {
			return nil, nil
		}
	}
	entries, err := f.listDir(ctx, apiBase, owner, repo, dir)
	if err != nil {
		return nil, err
	}
	var out []repoEntry
	for _, e := range entries {
		if e.Type == "dir" {
			out = append(out, repoEntry{path: e.Path, isDir: true})
			children, err := f.listTreeRecursive(ctx, apiBase, owner, repo, e.Path)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		} else {
			out = append(out, repoEntry{path: e.Path})
		}
	}
	return out, nil
}

func (f *Fetcher) skipDirsSet() []string {
	return f.cfg.SkipDirs
}

func (f *Fetcher) listDir(ctx context.Context, apiBase, owner, repo, dir string) ([]remoteAPIEntry, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", apiBase, owner, repo, dir)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unreachable remote host: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote returned status %d for %s", resp.StatusCode, u)
	}
	var entries []remoteAPIEntry
	if err := decodeJSONBody(resp.Body, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (f *Fetcher) downloadFile(ctx context.Context, apiBase, owner, repo, filePath string) (model.WorkingFile, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", apiBase, owner, repo, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.WorkingFile{}, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.WorkingFile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return model.WorkingFile{}, fmt.Errorf("remote returned status %d fetching %s", resp.StatusCode, filePath)
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		Size     int64  `json:"size"`
	}
	if err := decodeJSONBody(resp.Body, &payload); err != nil {
		return model.WorkingFile{}, err
	}
	wf := model.WorkingFile{Path: filePath, Origin: "remote"}
	if payload.Size > f.cfg.MaxFileBytes {
		wf.OverCap = true
		return wf, nil
	}
	raw := []byte(payload.Content)
	if payload.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
		if err != nil {
			return model.WorkingFile{}, fmt.Errorf("base64 decode %s: %w", filePath, err)
		}
		raw = decoded
	}
	wf.Bytes = capLines(raw, f.cfg.MaxFileLines)
	return wf, nil
}

// capLines truncates content exceeding maxLines, replacing it with a short
// marker rather than silently dropping the file from analysis.
func capLines(content []byte, maxLines int) []byte {
	if maxLines <= 0 {
		return content
	}
	lines := strings.SplitAfter(string(content), "\n")
	if len(lines) <= maxLines {
		return content
	}
	kept := strings.Join(lines[:maxLines], "")
	marker := fmt.Sprintf("\n# ... truncated: file exceeds %d lines (%s) ...\n",
		maxLines, humanize.Bytes(uint64(len(content))))
	return []byte(kept + marker)
}

func orderEntriesDeterministically(entries []repoEntry) []repoEntry {
	out := append([]repoEntry(nil), entries...)
	sort.SliceStable(out, func(i, k int) bool {
		a, b := out[i], out[k]
		if a.isDir != b.isDir {
			return a.isDir // directories before files
		}
		aConv, bConv := isConventional(a.path), isConventional(b.path)
		if aConv != bConv {
			return aConv
		}
		aSrc, bSrc := isSourceFile(a.path), isSourceFile(b.path)
		if !a.isDir && !b.isDir && aSrc != bSrc {
			return aSrc
		}
		return a.path < b.path
	})
	return out
}

func isConventional(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if conventionalSourceDirs[seg] {
			return true
		}
	}
	return false
}

var sourceExts = map[string]bool{".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".go": true, ".java": true, ".rb": true}

func isSourceFile(p string) bool {
	ext := path.Ext(p)
	return sourceExts[ext]
}

// parseRepoURL extracts {owner, repo, apiBase} from a repository
// reference URL. Supports "https://github.com/owner/repo" and bare
// "owner/repo"; any other host is treated as a GitHub-API-compatible
// remote at the same scheme+host.
func parseRepoURL(raw string) (owner, repo, apiBase string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", "", fmt.Errorf("empty repository reference")
	}
	if !strings.Contains(raw, "://") {
		parts := strings.Split(strings.Trim(raw, "/"), "/")
		if len(parts) != 2 {
			return "", "", "", fmt.Errorf("expected owner/repo, got %q", raw)
		}
		return parts[0], strings.TrimSuffix(parts[1], ".git"), "https://api.github.com", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", err
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return "", "", "", fmt.Errorf("expected /owner/repo path, got %q", u.Path)
	}
	apiBase = "https://api.github.com"
	if u.Host != "github.com" {
		apiBase = u.Scheme + "://" + u.Host + "/api/v3"
	}
	return segs[0], strings.TrimSuffix(segs[1], ".git"), apiBase, nil
}

func decodeJSONBody(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
