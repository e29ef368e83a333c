package printer

import (
	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/model"
)

// Printer knows how to print task sync information in different formats.
type Printer interface {
	PrintTasks(tasks []model.Task) error
	PrintTask(task model.Task) error
	PrintBatchResult(res batch.Result) error
	PrintOperations(ops []model.Operation) error
	PrintMessage(msg string) error
}
