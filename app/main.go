package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkazmer/approval-watch/app/api"
	"github.com/mkazmer/approval-watch/app/cfg"
	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/tasks"
	"github.com/mkazmer/approval-watch/app/watch"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting approval-watch", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	schemaVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", schemaVersion, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	runRepo := database.NewRunRepository(db)
	docRepo := database.NewDocumentRepository(db)

	configCache := watch.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.SourcesDir)

	if !appCfg.Serve {
		if code := runOnce(appCfg, configCache, sourceRepo, runRepo, docRepo); code != 0 {
			db.Close()
			os.Exit(code)
		}
		return
	}

	serve(appCfg, configCache, sourceRepo, runRepo, docRepo)
}

// runOnce checks every enabled source (or only the one selected with
// --source) a single time and returns a non-zero exit code if any
// source failed fatally. Archive write failures inside a run are
// logged by the task and do not remove the artifacts on disk.
func runOnce(appCfg *cfg.Cfg, configCache *watch.ConfigCache, sourceRepo database.SourceRepository,
	runRepo database.RunRepository, docRepo database.DocumentRepository) int {

	configs := configCache.GetEnabledConfigs()
	if appCfg.Source != "" {
		sourceConfig, err := configCache.GetConfig(appCfg.Source)
		if err != nil {
			slog.Error("Source not found", "source", appCfg.Source, "error", err)
			return 1
		}
		configs = map[string]*watch.Config{appCfg.Source: sourceConfig}
	}

	if len(configs) == 0 {
		slog.Info("No enabled sources to check")
		return 0
	}

	ctx := context.Background()
	exitCode := 0

	for name, sourceConfig := range configs {
		syncTask := tasks.NewSyncSourceTask(name, sourceConfig, sourceRepo)
		if err := syncTask.Execute(ctx); err != nil {
			slog.Error("Source sync failed", "source", name, "error", err)
			exitCode = 1
		}

		// The crawl proceeds even when the archive sync failed: the
		// master store and artifacts live on disk, not in the database.
		watchTask := tasks.NewWatchSourceTask(name, sourceConfig, sourceRepo, runRepo, docRepo,
			appCfg.DataDir, appCfg.UserAgent)
		if err := watchTask.Execute(ctx); err != nil {
			slog.Error("Source check failed", "source", name, "error", err)
			exitCode = 1
		}
	}

	return exitCode
}

// serve runs the background scheduler and the HTTP API until the
// process receives SIGINT or SIGTERM.
func serve(appCfg *cfg.Cfg, configCache *watch.ConfigCache, sourceRepo database.SourceRepository,
	runRepo database.RunRepository, docRepo database.DocumentRepository) {

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, sourceRepo, runRepo, docRepo)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(configCache, sourceRepo, runRepo, docRepo, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
}
