package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mkazmer/approval-watch/app/artifact"
	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/fetch"
	"github.com/mkazmer/approval-watch/app/store"
	"github.com/mkazmer/approval-watch/app/watch"
)

// Run locks with no heartbeat for this long belong to a crashed
// process and are taken over.
const lockTTL = 10 * time.Minute

type WatchSourceTask struct {
	Task
	SourceConfig *watch.Config
	sourceRepo   database.SourceRepository
	runRepo      database.RunRepository
	docRepo      database.DocumentRepository
	dataDir      string
	userAgent    string
}

func NewWatchSourceTask(sourceName string, sourceConfig *watch.Config, sourceRepo database.SourceRepository,
	runRepo database.RunRepository, docRepo database.DocumentRepository, dataDir, userAgent string) *WatchSourceTask {
	return &WatchSourceTask{
		Task:         NewTask(TaskTypeWatchSource, sourceName),
		SourceConfig: sourceConfig,
		sourceRepo:   sourceRepo,
		runRepo:      runRepo,
		docRepo:      docRepo,
		dataDir:      dataDir,
		userAgent:    userAgent,
	}
}

func (t *WatchSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	outputDir := t.SourceConfig.OutputDir(t.dataDir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	lock, err := store.AcquireLock(t.SourceConfig.LockPath(t.dataDir), lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock source: %w", err)
	}
	defer lock.Release()

	masterStore := store.NewFileStore(t.SourceConfig.MasterPath(t.dataDir))
	client := fetch.NewClient(
		fetch.WithRetryPolicy(t.SourceConfig.RetryPolicy()),
		fetch.WithLimitPolicy(t.SourceConfig.LimitPolicy()),
		fetch.WithUserAgent(t.userAgent),
	)
	client.WarmUp(ctx, t.SourceConfig.URL)

	engine := watch.NewEngine(t.SourceConfig, client, masterStore)

	startedAt := time.Now().UTC()
	result, err := engine.Run(ctx)
	finishedAt := time.Now().UTC()

	if err != nil {
		t.archiveFailure(err, startedAt, finishedAt)
		return fmt.Errorf("failed to check source: %w", err)
	}

	records := artifact.FromRun(result.Records)

	writer := artifact.NewWriter(outputDir)
	artifactPath, err := writer.Write(result.Outcome, records)
	if err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if t.SourceConfig.Output.Clean {
		cleaner := artifact.NewCleaner(t.SourceConfig.CleanDir(t.dataDir))
		if _, err := cleaner.Run(records); err != nil {
			return fmt.Errorf("failed to clean documents: %w", err)
		}

		if t.SourceConfig.Output.Combine {
			combiner := artifact.NewCombiner(t.SourceConfig.CleanDir(t.dataDir),
				t.SourceConfig.CorpusPath(t.dataDir), t.SourceConfig.Output.SourceTag)
			if _, err := combiner.Run(); err != nil {
				return fmt.Errorf("failed to combine corpus: %w", err)
			}
		}
	}

	t.archiveRun(result, artifactPath, startedAt, finishedAt)

	slog.Info("Task completed",
		"type", "WatchSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"outcome", string(result.Outcome),
		"candidates", result.Stats.Candidates,
		"known", result.Stats.Known,
		"filtered", result.Stats.Filtered,
		"duplicates", result.Stats.Duplicates,
		"skipped", result.Stats.Skipped,
		"accepted", result.Stats.Accepted,
		"artifact", artifactPath)

	return nil
}

// archiveRun copies the run summary and its accepted records into the
// database. Archive failures are logged and do not fail the task: the
// artifacts on disk already stand.
func (t *WatchSourceTask) archiveRun(result *watch.Result, artifactPath string, startedAt, finishedAt time.Time) {
	runID, err := t.runRepo.RecordRun(database.Run{
		SourceName:   t.SourceName,
		Outcome:      string(result.Outcome),
		Candidates:   result.Stats.Candidates,
		Known:        result.Stats.Known,
		Filtered:     result.Stats.Filtered,
		Duplicates:   result.Stats.Duplicates,
		Skipped:      result.Stats.Skipped,
		Accepted:     result.Stats.Accepted,
		ArtifactPath: artifactPath,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	})
	if err != nil {
		slog.Error("Failed to archive run", "source", t.SourceName, "error", err)
		runID = ""
	}

	for _, record := range result.Records {
		doc := database.Document{
			SourceName:   t.SourceName,
			Fingerprint:  record.Fingerprint,
			Name:         record.Name,
			ApprovalDate: record.ApprovalDate,
			DetailURL:    record.DetailURL,
			Description:  record.Description,
			FullText:     record.FullText,
			RunID:        runID,
			RetrievedAt:  record.RetrievedAt,
		}
		if err := t.docRepo.UpsertDocument(doc); err != nil {
			slog.Error("Failed to archive document", "source", t.SourceName, "fingerprint", record.Fingerprint, "error", err)
		}
	}

	t.updateSourceStatus(string(result.Outcome), "")
}

func (t *WatchSourceTask) archiveFailure(runErr error, startedAt, finishedAt time.Time) {
	_, err := t.runRepo.RecordRun(database.Run{
		SourceName: t.SourceName,
		Outcome:    "failed",
		Error:      runErr.Error(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	})
	if err != nil {
		slog.Error("Failed to archive run", "source", t.SourceName, "error", err)
	}

	t.updateSourceStatus("failed", runErr.Error())
}

func (t *WatchSourceTask) updateSourceStatus(outcome, errMsg string) {
	now := time.Now().UTC()
	nextCheck := now.Add(time.Duration(t.SourceConfig.Settings.CheckInterval) * time.Second)
	if err := t.sourceRepo.UpdateSourceStatus(t.SourceName, outcome, errMsg, now, nextCheck); err != nil {
		slog.Error("Failed to update source status", "source", t.SourceName, "error", err)
	}
}
