// codequality-server analyzes submitted source trees and reports findings
// over HTTP: fetch, discover, analyze, enhance, review, merge, graph, render.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codequality/codequality-server/pkg/api"
	"github.com/codequality/codequality-server/pkg/config"
	"github.com/codequality/codequality-server/pkg/fetch"
	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/queue"
	"github.com/codequality/codequality-server/pkg/version"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to a directory holding .env")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("no .env file loaded, continuing with process environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}

	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg := config.Load()
	analyzerYAML := filepath.Join(*configDir, "analyzer.yaml")
	if err := cfg.LoadFile(analyzerYAML); err != nil {
		slog.Error("failed to load analyzer.yaml overlay", "path", analyzerYAML, "error", err)
		os.Exit(1)
	}
	slog.Info("starting "+version.AppName, "version", version.Full(), "listen_port", cfg.ListenPort)

	store := job.NewStore()
	fetcher := fetch.New(cfg.Fetch, cfg.RemoteRepoAPIToken)
	llm := llmclient.NewRegistry(cfg.LLMAAPIKey, cfg.LLMBAPIKey)

	depsFactory := api.NewDepsFactory(cfg, fetcher, llm)
	pool := queue.NewWorkerPool(store, depsFactory, queue.Config{
		PollInterval:       cfg.Queue.PollInterval,
		PollIntervalJitter: cfg.Queue.PollIntervalJitter,
		JobTimeout:         cfg.Queue.JobTimeout,
	}, cfg.Queue.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pool.Start(ctx); err != nil {
		slog.Error("failed to start worker pool", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, store, fetcher, llm, pool)
	httpServer := &http.Server{
		Addr:    cfg.ListenHost + ":" + cfg.ListenPort,
		Handler: server.Router(),
	}

	go func() {
		slog.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight jobs")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown did not complete cleanly", "error", err)
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("worker pool stopped gracefully")
	case <-time.After(cfg.Queue.GracefulShutdownTimeout):
		slog.Warn("graceful shutdown timeout elapsed, exiting with jobs possibly still running")
	}
}
