package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_HOST", "LISTEN_PORT", "LLM_A_API_KEY", "LLM_B_API_KEY",
		"EXTERNAL_REPORTER_TOKEN", "EXTERNAL_REPORTER_PAGE_ID", "QUEUE_WORKER_COUNT", "FETCH_MAX_FILES"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	require.NotNil(t, cfg)
	assert.Equal(t, "0.0.0.0", cfg.ListenHost)
	assert.Equal(t, "8000", cfg.ListenPort)
	assert.Equal(t, 4, cfg.Queue.WorkerCount)
	assert.False(t, cfg.ExternalReportingEnabled())

	status := cfg.Status()
	assert.Equal(t, "ready", status.Analyzer)
	assert.Equal(t, "not_configured", status.LLMA)
	assert.Equal(t, "not_configured", status.ExternalReporter)
}

func TestExternalReportingRequiresBoth(t *testing.T) {
	cfg := &Config{ExternalReporterToken: "tok"}
	assert.False(t, cfg.ExternalReportingEnabled())
	cfg.ExternalReporterPageID = "page"
	assert.True(t, cfg.ExternalReportingEnabled())
}

func TestQueueWorkerCountOverride(t *testing.T) {
	t.Setenv("QUEUE_WORKER_COUNT", "9")
	defer os.Unsetenv("QUEUE_WORKER_COUNT")
	cfg := Load()
	assert.Equal(t, 9, cfg.Queue.WorkerCount)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Load()
	err := cfg.LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.NoError(t, err)
}

func TestLoadFileOverlaysFetchLists(t *testing.T) {
	cfg := Load()
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	content := "fetch:\n  include_patterns:\n    - \".rs\"\n    - \".kt\"\n  skip_dirs:\n    - \"vendor\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, []string{".rs", ".kt"}, cfg.Fetch.AllowedExts)
	assert.Equal(t, []string{"vendor"}, cfg.Fetch.SkipDirs)
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	cfg := Load()
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch: [this is not a map"), 0o644))

	assert.Error(t, cfg.LoadFile(path))
}
