package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkazmer/approval-watch/app/artifact"
	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/watch"
)

// RecleanSourceTask rebuilds a source's clean documents from the
// archived full texts, so cleaning rule changes reach documents that
// were accepted in earlier runs.
type RecleanSourceTask struct {
	Task
	SourceConfig *watch.Config
	docRepo      database.DocumentRepository
	dataDir      string
}

func NewRecleanSourceTask(sourceName string, sourceConfig *watch.Config, docRepo database.DocumentRepository, dataDir string) *RecleanSourceTask {
	return &RecleanSourceTask{
		Task:         NewTask(TaskTypeRecleanSource, sourceName),
		SourceConfig: sourceConfig,
		docRepo:      docRepo,
		dataDir:      dataDir,
	}
}

func (t *RecleanSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	documents, err := t.docRepo.GetAllDocuments(t.SourceName)
	if err != nil {
		return fmt.Errorf("failed to get archived documents: %w", err)
	}

	if len(documents) == 0 {
		slog.Info("Task completed", "type", "RecleanSource", "source", t.SourceName,
			"duration", t.GetDuration(), "cleaned", 0)
		return nil
	}

	records := make([]artifact.Record, len(documents))
	for i, doc := range documents {
		records[i] = artifact.Record{
			Fingerprint:  doc.Fingerprint,
			Name:         doc.Name,
			ApprovalDate: doc.ApprovalDate,
			DetailURL:    doc.DetailURL,
			Description:  doc.Description,
			FullText:     doc.FullText,
			RetrievedAt:  doc.RetrievedAt,
		}
	}

	cleaner := artifact.NewCleaner(t.SourceConfig.CleanDir(t.dataDir))
	cleaned, err := cleaner.Run(records)
	if err != nil {
		return fmt.Errorf("failed to reclean documents: %w", err)
	}

	combined := 0
	if t.SourceConfig.Output.Combine {
		combiner := artifact.NewCombiner(t.SourceConfig.CleanDir(t.dataDir),
			t.SourceConfig.CorpusPath(t.dataDir), t.SourceConfig.Output.SourceTag)
		combined, err = combiner.Run()
		if err != nil {
			return fmt.Errorf("failed to combine corpus: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "RecleanSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"cleaned", cleaned,
		"combined", combined)

	return nil
}
