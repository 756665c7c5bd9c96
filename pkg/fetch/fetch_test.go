package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/config"
)

func newTestFetcher() *Fetcher {
	return New(config.FetchConfig{
		MaxFileBytes: 1024,
		MaxFileLines: 5,
		MaxFiles:     10,
		AllowedExts:  []string{".py"},
		SkipDirs:     []string{".git"},
	}, "")
}

func TestFetchUploadRejectsPathTraversal(t *testing.T) {
	f := newTestFetcher()
	_, err := f.FetchUpload([]UploadFile{{Filename: "../../etc/passwd", Content: []byte("x")}})
	require.Error(t, err)
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindInputValidation, fe.Kind)
}

func TestFetchUploadAcceptsCleanRelativePath(t *testing.T) {
	f := newTestFetcher()
	files, err := f.FetchUpload([]UploadFile{{Filename: "src/main.py", Content: []byte("print(1)\n")}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main.py", files[0].Path)
	assert.Equal(t, "uploaded", files[0].Origin)
}

func TestFetchUploadMarksOverCapWithoutDroppingFile(t *testing.T) {
	f := newTestFetcher()
	big := strings.Repeat("a", 2048)
	files, err := f.FetchUpload([]UploadFile{{Filename: "big.py", Content: []byte(big)}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].OverCap)
	assert.Nil(t, files[0].Bytes)
}

func TestCapLinesTruncatesOversizedFiles(t *testing.T) {
	content := strings.Repeat("x\n", 20)
	out := capLines([]byte(content), 5)
	assert.Contains(t, string(out), "truncated")
	assert.Less(t, len(out), len(content)+200)
}

func TestParseRepoURLVariants(t *testing.T) {
	owner, repo, base, err := parseRepoURL("https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
	assert.Equal(t, "https://api.github.com", base)

	owner, repo, _, err = parseRepoURL("acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestParseRepoURLRejectsMalformed(t *testing.T) {
	_, _, _, err := parseRepoURL("not-a-valid-ref")
	assert.Error(t, err)
}

func TestOrderEntriesDeterministically(t *testing.T) {
	entries := []repoEntry{
		{path: "z.py"},
		{path: "src", isDir: true},
		{path: "a.py"},
		{path: "src/main.py"},
	}
	ordered := orderEntriesDeterministically(entries)
	assert.Equal(t, "src", ordered[0].path)
}
