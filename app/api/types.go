package api

import (
	"github.com/mkazmer/approval-watch/app/database"
	"github.com/mkazmer/approval-watch/app/tasks"
	"github.com/mkazmer/approval-watch/app/watch"
)

type GeneratorInterface interface {
	Run(source database.Source, docs []database.Document) (string, error)
}

var _ GeneratorInterface = (*watch.Generator)(nil)

type Handler struct {
	sourceRepo  database.SourceRepository
	runRepo     database.RunRepository
	docRepo     database.DocumentRepository
	generator   GeneratorInterface
	configCache *watch.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
}
