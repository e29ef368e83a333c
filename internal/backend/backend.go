package backend

import (
	"context"

	"github.com/slok/dlsync/internal/model"
)

// Backend is the command surface of the download backend service that executes the
// tasks. The client never does the download work itself.
type Backend interface {
	// ListActiveTasks returns the tasks that are not in a terminal state, in backend order.
	ListActiveTasks(ctx context.Context) ([]model.Task, error)
	// ListHistoryTasks returns the finished tasks.
	ListHistoryTasks(ctx context.Context) ([]model.Task, error)
	// ClearHistory removes the finished tasks from the backend.
	ClearHistory(ctx context.Context) error
	// GetTask returns a task by ID, model.ErrNotFound if missing.
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// CancelTask cancels a task, returns if the backend cancelled it.
	CancelTask(ctx context.Context, id string) (bool, error)
	// RetryTask retries the whole task.
	RetryTask(ctx context.Context, id string) error
	// RetryFailedFiles retries only the failed files of a task, the already
	// downloaded ones are left untouched.
	RetryFailedFiles(ctx context.Context, id string) error
	// StartBatch expands a URL into zero or more new tasks and returns their IDs.
	StartBatch(ctx context.Context, url string) ([]string, error)
}
