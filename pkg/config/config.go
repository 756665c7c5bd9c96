// Package config loads the service's environment-driven configuration.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration, populated once at startup from
// the environment (after .env has been loaded by the caller).
type Config struct {
	ListenHost string
	ListenPort string

	LLMAAPIKey string
	LLMBAPIKey string

	RemoteRepoAPIToken string

	ExternalReporterToken  string
	ExternalReporterPageID string

	Queue QueueConfig
	Fetch FetchConfig
}

// QueueConfig controls the worker pool that drives the orchestrator.
// Mirrors the shape of a teacher-style DefaultQueueConfig constructor:
// a typed struct with explicit field-by-field defaults, no framework magic.
type QueueConfig struct {
	WorkerCount             int
	PollInterval            time.Duration
	PollIntervalJitter      time.Duration
	JobTimeout              time.Duration
	GracefulShutdownTimeout time.Duration
}

// FetchConfig bounds the Source Fetcher (C1).
type FetchConfig struct {
	MaxFileBytes  int64
	MaxFileLines  int
	MaxFiles      int
	AllowedExts   []string
	SkipDirs      []string
}

func defaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:             4,
		PollInterval:            500 * time.Millisecond,
		PollIntervalJitter:      250 * time.Millisecond,
		JobTimeout:              10 * time.Minute,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

func defaultFetchConfig() FetchConfig {
	return FetchConfig{
		MaxFileBytes: 512 * 1024,
		MaxFileLines: 500,
		MaxFiles:     200,
		AllowedExts: []string{
			".py", ".js", ".jsx", ".ts", ".tsx", ".go", ".java", ".rb",
			".json", ".yaml", ".yml", ".toml", ".cfg", ".ini", ".md",
			"Dockerfile",
		},
		SkipDirs: []string{".git", "node_modules", "__pycache__", "venv", ".venv", "env"},
	}
}

// Load reads the Config from the process environment, applying documented
// defaults for anything unset. It never fails: missing optional
// integrations simply report "not_configured" from IntegrationStatus.
func Load() *Config {
	cfg := &Config{
		ListenHost: getEnv("LISTEN_HOST", "0.0.0.0"),
		ListenPort: getEnv("LISTEN_PORT", "8000"),

		LLMAAPIKey: os.Getenv("LLM_A_API_KEY"),
		LLMBAPIKey: os.Getenv("LLM_B_API_KEY"),

		RemoteRepoAPIToken: os.Getenv("REMOTE_REPO_API_TOKEN"),

		ExternalReporterToken:  os.Getenv("EXTERNAL_REPORTER_TOKEN"),
		ExternalReporterPageID: os.Getenv("EXTERNAL_REPORTER_PAGE_ID"),

		Queue: defaultQueueConfig(),
		Fetch: defaultFetchConfig(),
	}
	if n, err := strconv.Atoi(os.Getenv("QUEUE_WORKER_COUNT")); err == nil && n > 0 {
		cfg.Queue.WorkerCount = n
	}
	if n, err := strconv.Atoi(os.Getenv("FETCH_MAX_FILES")); err == nil && n > 0 {
		cfg.Fetch.MaxFiles = n
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ExternalReportingEnabled reports whether both required env vars are set;
// the spec requires both together to enable the integration.
func (c *Config) ExternalReportingEnabled() bool {
	return c.ExternalReporterToken != "" && c.ExternalReporterPageID != ""
}

// IntegrationStatus reports the "ready"/"not_configured" state of every
// optional integration, for the /health endpoint.
type IntegrationStatus struct {
	Analyzer        string `json:"analyzer"`
	RemoteRepoAPI   string `json:"remote_repo_api"`
	LLMA            string `json:"llm_a"`
	LLMB            string `json:"llm_b"`
	ExternalReporter string `json:"external_reporter"`
}

func readyOr(configured bool) string {
	if configured {
		return "ready"
	}
	return "not_configured"
}

// Status builds the IntegrationStatus snapshot for /health.
func (c *Config) Status() IntegrationStatus {
	return IntegrationStatus{
		Analyzer:         "ready",
		RemoteRepoAPI:    readyOr(c.RemoteRepoAPIToken != ""),
		LLMA:             readyOr(c.LLMAAPIKey != ""),
		LLMB:             readyOr(c.LLMBAPIKey != ""),
		ExternalReporter: readyOr(c.ExternalReportingEnabled()),
	}
}
