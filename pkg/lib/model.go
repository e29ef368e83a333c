package lib

import (
	"context"
	"errors"
	"time"

	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/store"
)

// Errors returned by the SDK, inspect them with [errors.Is].
var (
	// ErrNotFound is returned when the task doesn't exist on the backend.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when the input or the operation is not valid
	// (e.g. retrying a task that is still downloading).
	ErrNotValid = errors.New("not valid")
)

// BackendType identifies the download backend implementation.
type BackendType string

const (
	// BackendHTTP talks to a real download backend over its REST API.
	BackendHTTP BackendType = "http"

	// BackendFake uses an in-memory simulated backend.
	// Use this for testing and demos without a running backend.
	BackendFake BackendType = "fake"
)

// TaskStatus is the backend state of a task.
//
// A task starts pending, goes through parsing and downloading and ends in one of
// the terminal statuses. Terminal tasks are only returned by the history.
type TaskStatus string

const (
	TaskStatusPending       TaskStatus = "pending"
	TaskStatusParsing       TaskStatus = "parsing"
	TaskStatusDownloading   TaskStatus = "downloading"
	TaskStatusCompleted     TaskStatus = "completed"
	TaskStatusPartialFailed TaskStatus = "partial_failed"
	TaskStatusFailed        TaskStatus = "failed"
	TaskStatusCancelled     TaskStatus = "cancelled"
)

// Progress is the file level progress of a task.
type Progress struct {
	Current int
	Total   int
}

// Fraction returns the completed fraction in the [0, 1] range, false when unknown.
func (p Progress) Fraction() (float64, bool) {
	return model.Progress{Current: p.Current, Total: p.Total}.Fraction()
}

// Task is a backend download task.
//
// This is a read-only copy of the task at the time it was fetched.
type Task struct {
	ID       string
	URL      string
	Status   TaskStatus
	SavePath string
	Name     string
	// Error is empty when the task has no failure.
	Error    string
	Progress Progress
	// StartTime, CompleteTime and UpdatedAt are formatted by the backend.
	StartTime    string
	CompleteTime string
	UpdatedAt    string
	FailedCount  int
	Retryable    bool
	RetryCount   int
	MaxRetries   int
}

// Snapshot is the synced view of the backend tasks.
type Snapshot struct {
	ActiveTasks  []Task
	HistoryTasks []Task
	// RetryingTasks are the task IDs with a retry in flight from this client.
	RetryingTasks []string
	// Loading is true while the history is being loaded.
	Loading bool
}

// ActiveTasksCount returns the number of active tasks.
func (s Snapshot) ActiveTasksCount() int { return len(s.ActiveTasks) }

// --- Batch types ---

// BatchOpts are the options of a batch download. All the callbacks are optional.
type BatchOpts struct {
	// URL is the page to extract the download links from.
	URL string
	// OnStart is called once the URL is valid, before calling the backend.
	OnStart func()
	// OnError is called with the user facing error message.
	OnError func(msg string)
	// OnSuccess is called with the created task IDs and their count.
	OnSuccess func(taskIDs []string, extractedCount int)
}

// BatchCallbacks are the hooks of a [BatchHandler]. All are optional.
type BatchCallbacks struct {
	OnStart   func()
	OnSuccess func(taskIDs []string, url string, extractedCount int)
	OnError   func(msg string)
	// OnFinally is always called once, whatever the outcome.
	OnFinally func()
}

// BatchHandler starts a batch download for a URL.
type BatchHandler func(ctx context.Context, url string) BatchResult

// BatchResult is the outcome of a batch download. Batch downloads never return
// errors, failures are reported in Error.
type BatchResult struct {
	Success        bool
	TaskIDs        []string
	ExtractedCount int
	Error          string
}

// --- Journal types ---

// OperationKind is the kind of a control operation issued by the client.
type OperationKind string

const (
	OperationKindCancel      OperationKind = "cancel"
	OperationKindRetry       OperationKind = "retry"
	OperationKindRetryFailed OperationKind = "retry_failed"
	OperationKindBatch       OperationKind = "batch"
)

// Operation is a journal entry of a control operation issued by the client.
type Operation struct {
	ID     string
	Kind   OperationKind
	TaskID string
	// URL and TaskIDs are only set on batch operations.
	URL     string
	TaskIDs []string
	// Error is empty when the operation succeeded.
	Error     string
	CreatedAt time.Time
}

// --- Internal conversion helpers ---

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:           t.ID,
		URL:          t.URL,
		Status:       TaskStatus(t.Status),
		SavePath:     t.SavePath,
		Name:         t.Name,
		Error:        t.Error,
		Progress:     Progress{Current: t.Progress.Current, Total: t.Progress.Total},
		StartTime:    t.StartTime,
		CompleteTime: t.CompleteTime,
		UpdatedAt:    t.UpdatedAt,
		FailedCount:  t.FailedCount,
		Retryable:    t.Retryable,
		RetryCount:   t.RetryCount,
		MaxRetries:   t.MaxRetries,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalSnapshot(s store.Snapshot) Snapshot {
	return Snapshot{
		ActiveTasks:   fromInternalTaskList(s.ActiveTasks),
		HistoryTasks:  fromInternalTaskList(s.HistoryTasks),
		RetryingTasks: s.RetryingTasks,
		Loading:       s.Loading,
	}
}

func fromInternalBatchResult(r batch.Result) BatchResult {
	return BatchResult{
		Success:        r.Success,
		TaskIDs:        r.TaskIDs,
		ExtractedCount: r.ExtractedCount,
		Error:          r.Error,
	}
}

func fromInternalOperationList(ops []model.Operation) []Operation {
	result := make([]Operation, len(ops))
	for i, op := range ops {
		result[i] = Operation{
			ID:        op.ID,
			Kind:      OperationKind(op.Kind),
			TaskID:    op.TaskID,
			URL:       op.URL,
			TaskIDs:   op.TaskIDs,
			Error:     op.Error,
			CreatedAt: op.CreatedAt,
		}
	}
	return result
}

// mapError maps internal sentinel errors to the public SDK ones.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
