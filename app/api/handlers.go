package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkazmer/approval-watch/app/cfg"
	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/tasks"
	"github.com/mkazmer/approval-watch/app/watch"
)

func NewHandler(configCache *watch.ConfigCache, sourceRepo database.SourceRepository,
	runRepo database.RunRepository, docRepo database.DocumentRepository,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:  sourceRepo,
		runRepo:     runRepo,
		docRepo:     docRepo,
		generator:   watch.NewGenerator(),
		configCache: configCache,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.Status(http.StatusNotFound)
		return
	}

	docs, err := h.docRepo.GetDocuments(name, sourceConfig.Settings.FeedItems)
	if err != nil {
		slog.Error("Database error", "operation", "get_documents", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*source, docs)
	if err != nil {
		slog.Error("RSS generation error", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(docs)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", source.UpdatedAt.Format(time.RFC3339))

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIGetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = sourceCount
	}

	if runCount, err := h.runRepo.GetRunCount(); err == nil {
		stats["runs"] = runCount
	}

	if documentTotal, err := h.docRepo.GetDocumentTotal(); err == nil {
		stats["documents"] = documentTotal
	}

	stats["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":           sourceConfig.Name,
			"url":            sourceConfig.URL,
			"kind":           string(sourceConfig.Kind),
			"enabled":        sourceConfig.Settings.Enabled,
			"check_interval": (time.Duration(sourceConfig.Settings.CheckInterval) * time.Second).String(),
			"filters":        len(sourceConfig.Filters),
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			sourceInfo["last_checked_at"] = source.LastCheckedAt
			sourceInfo["next_check_at"] = source.NextCheckAt
			sourceInfo["last_outcome"] = source.LastOutcome
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		if documentCount, err := h.docRepo.GetDocumentCount(sourceConfig.Name); err == nil {
			sourceInfo["document_count"] = documentCount
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":            name,
		"url":             sourceConfig.URL,
		"kind":            string(sourceConfig.Kind),
		"enabled":         sourceConfig.Settings.Enabled,
		"check_interval":  (time.Duration(sourceConfig.Settings.CheckInterval) * time.Second).String(),
		"timeout":         (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		"detail_timeout":  (time.Duration(sourceConfig.Settings.DetailTimeout) * time.Second).String(),
		"min_text_length": sourceConfig.Settings.MinTextLength,
		"filters":         sourceConfig.Filters,
	}

	details["database"] = map[string]interface{}{
		"name":            source.Name,
		"last_checked_at": source.LastCheckedAt,
		"next_check_at":   source.NextCheckAt,
		"last_outcome":    source.LastOutcome,
		"last_error":      source.LastError,
		"created_at":      source.CreatedAt,
		"updated_at":      source.UpdatedAt,
	}

	if documentCount, err := h.docRepo.GetDocumentCount(name); err == nil {
		details["documents"] = map[string]interface{}{
			"total": documentCount,
		}
	}

	if runs, err := h.runRepo.GetRecentRuns(name, 10); err == nil {
		recent := make([]map[string]interface{}, 0, len(runs))
		for _, run := range runs {
			recent = append(recent, map[string]interface{}{
				"id":          run.ID,
				"outcome":     run.Outcome,
				"candidates":  run.Candidates,
				"known":       run.Known,
				"filtered":    run.Filtered,
				"duplicates":  run.Duplicates,
				"skipped":     run.Skipped,
				"accepted":    run.Accepted,
				"artifact":    run.ArtifactPath,
				"error":       run.Error,
				"started_at":  run.StartedAt,
				"finished_at": run.FinishedAt,
			})
		}
		details["recent_runs"] = recent
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIGetSourceRecords(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		if parsed > 500 {
			parsed = 500
		}
		limit = parsed
	}

	docs, err := h.docRepo.GetDocuments(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_documents", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	records := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		records = append(records, map[string]interface{}{
			"fingerprint":   doc.Fingerprint,
			"name":          doc.Name,
			"approval_date": doc.ApprovalDate,
			"detail_url":    doc.DetailURL,
			"description":   doc.Description,
			"run_id":        doc.RunID,
			"retrieved_at":  doc.RetrievedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"source":  name,
		"records": records,
		"total":   len(records),
	})
}

func (h *Handler) APIRunSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncSourceTask(name, sourceConfig, h.sourceRepo)
	err = h.scheduler.EnqueueTask(syncTask)
	if err != nil {
		slog.Error("Error enqueueing sync task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	watchTask := tasks.NewWatchSourceTask(name, sourceConfig, h.sourceRepo, h.runRepo, h.docRepo,
		cfg.Get().DataDir, cfg.Get().UserAgent)
	err = h.scheduler.EnqueueTask(watchTask)
	if err != nil {
		slog.Error("Error enqueueing watch task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue watch task",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncTask.ID,
				"type": syncTask.Type,
			},
			{
				"id":   watchTask.ID,
				"type": watchTask.Type,
			},
		},
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIRecleanSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	recleanTask := tasks.NewRecleanSourceTask(name, sourceConfig, h.docRepo, cfg.Get().DataDir)
	err = h.scheduler.EnqueueTask(recleanTask)
	if err != nil {
		slog.Error("Error enqueueing reclean task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue reclean task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reclean task enqueued successfully",
		"source": gin.H{
			"name": name,
			"url":  sourceConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   recleanTask.ID,
				"type": recleanTask.Type,
			},
		},
	})
}
