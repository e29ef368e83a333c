package fake

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
)

const (
	itemsQueryParam = "items"
	filesQueryParam = "files"
)

// BackendConfig is the configuration for the fake backend.
type BackendConfig struct {
	// DefaultFiles is the number of files of each task when the URL doesn't set them.
	DefaultFiles int
	// MaxRetries is the retry limit of each task.
	MaxRetries int
	// TimeNow is used to set the task timestamps.
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *BackendConfig) defaults() error {
	if c.DefaultFiles <= 0 {
		c.DefaultFiles = 10
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.Fake"})

	return nil
}

// Backend is a fake implementation of the backend.Backend interface.
// It simulates download tasks without downloading anything, progress only moves
// when Advance or Fail are called.
type Backend struct {
	tasks      map[string]*model.Task
	order      []string
	mu         sync.Mutex
	files      int
	maxRetries int
	timeNow    func() time.Time
	logger     log.Logger
}

// NewBackend returns a new fake backend.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Backend{
		tasks:      map[string]*model.Task{},
		files:      cfg.DefaultFiles,
		maxRetries: cfg.MaxRetries,
		timeNow:    cfg.TimeNow,
		logger:     cfg.Logger,
	}, nil
}

func (b *Backend) now() string { return b.timeNow().UTC().Format(time.RFC3339) }

func isActive(s model.TaskStatus) bool {
	switch s {
	case model.TaskStatusPending, model.TaskStatusParsing, model.TaskStatusDownloading:
		return true
	}
	return false
}

// ListActiveTasks satisfies backend.Backend interface.
func (b *Backend) ListActiveTasks(ctx context.Context) ([]model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := []model.Task{}
	for _, id := range b.order {
		if t := b.tasks[id]; isActive(t.Status) {
			tasks = append(tasks, *t)
		}
	}

	return tasks, nil
}

// ListHistoryTasks satisfies backend.Backend interface.
// Tasks are returned from the most recently completed to the oldest.
func (b *Backend) ListHistoryTasks(ctx context.Context) ([]model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := []model.Task{}
	for _, id := range b.order {
		if t := b.tasks[id]; !isActive(t.Status) {
			tasks = append(tasks, *t)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CompleteTime > tasks[j].CompleteTime })

	return tasks, nil
}

// ClearHistory satisfies backend.Backend interface.
func (b *Backend) ClearHistory(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := make([]string, 0, len(b.order))
	for _, id := range b.order {
		if isActive(b.tasks[id].Status) {
			order = append(order, id)
			continue
		}
		delete(b.tasks, id)
	}
	b.order = order

	return nil
}

// GetTask satisfies backend.Backend interface.
func (b *Backend) GetTask(ctx context.Context, id string) (*model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	task := *t
	return &task, nil
}

// CancelTask satisfies backend.Backend interface.
// Cancelling an already finished task is not an error, returns false.
func (b *Backend) CancelTask(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return false, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	if !isActive(t.Status) {
		b.logger.Debugf("Task %s already finished, ignoring cancel", id)
		return false, nil
	}

	t.Status = model.TaskStatusCancelled
	t.CompleteTime = b.now()
	t.UpdatedAt = t.CompleteTime
	b.logger.Infof("Cancelled fake task: %s", id)

	return true, nil
}

// RetryTask satisfies backend.Backend interface.
func (b *Backend) RetryTask(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.retryableTask(id)
	if err != nil {
		return err
	}

	t.Progress.Current = 0
	t.FailedCount = 0
	b.restart(t)
	b.logger.Infof("Retrying fake task: %s", id)

	return nil
}

// RetryFailedFiles satisfies backend.Backend interface.
func (b *Backend) RetryFailedFiles(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.retryableTask(id)
	if err != nil {
		return err
	}

	if t.FailedCount == 0 {
		return fmt.Errorf("task %s has no failed files: %w", id, model.ErrNotValid)
	}

	t.Progress.Current -= t.FailedCount
	if t.Progress.Current < 0 {
		t.Progress.Current = 0
	}
	t.FailedCount = 0
	b.restart(t)
	b.logger.Infof("Retrying failed files of fake task: %s", id)

	return nil
}

func (b *Backend) retryableTask(id string) (*model.Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	if isActive(t.Status) {
		return nil, fmt.Errorf("task %s is still running (status: %s): %w", id, t.Status, model.ErrNotValid)
	}

	if !t.Retryable || t.RetryCount >= t.MaxRetries {
		return nil, fmt.Errorf("task %s can't be retried (retries: %d/%d): %w", id, t.RetryCount, t.MaxRetries, model.ErrNotValid)
	}

	return t, nil
}

func (b *Backend) restart(t *model.Task) {
	t.RetryCount++
	t.Status = model.TaskStatusDownloading
	t.Error = ""
	t.CompleteTime = ""
	t.UpdatedAt = b.now()
}

// StartBatch satisfies backend.Backend interface.
// The URL `items` query parameter sets the number of tasks to create (default 1,
// 0 simulates a page without download links) and `files` the files per task.
func (b *Backend) StartBatch(ctx context.Context, rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", model.ErrNotValid)
	}

	items, err := queryInt(u, itemsQueryParam, 1)
	if err != nil {
		return nil, err
	}
	files, err := queryInt(u, filesQueryParam, b.files)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, items)
	now := b.now()
	for i := 0; i < items; i++ {
		id := ulid.Make().String()
		name := strings.Trim(u.Path, "/")
		if items > 1 {
			name = fmt.Sprintf("%s-%d", name, i+1)
		}

		b.tasks[id] = &model.Task{
			ID:         id,
			URL:        rawURL,
			Status:     model.TaskStatusDownloading,
			Name:       name,
			SavePath:   "/downloads/" + id,
			Progress:   model.Progress{Current: 0, Total: files},
			StartTime:  now,
			UpdatedAt:  now,
			Retryable:  true,
			MaxRetries: b.maxRetries,
		}
		b.order = append(b.order, id)
		ids = append(ids, id)
	}

	b.logger.Infof("Created %d fake tasks from %s", len(ids), rawURL)
	return ids, nil
}

// Advance downloads successfully the next n files of every active task.
func (b *Backend) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.order {
		t := b.tasks[id]
		if isActive(t.Status) {
			b.progress(t, n, false)
		}
	}
}

// Fail makes the next n files of an active task fail.
func (b *Backend) Fail(id string, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if !isActive(t.Status) {
		return fmt.Errorf("task %s is not active: %w", id, model.ErrNotValid)
	}

	b.progress(t, n, true)
	return nil
}

func (b *Backend) progress(t *model.Task, n int, failed bool) {
	left := t.Progress.Total - t.Progress.Current
	if n > left {
		n = left
	}

	t.Progress.Current += n
	if failed && n > 0 {
		t.FailedCount += n
		if t.Error == "" {
			t.Error = "simulated download error"
		}
	}
	t.UpdatedAt = b.now()

	if t.Progress.Current < t.Progress.Total {
		return
	}

	switch {
	case t.FailedCount == 0:
		t.Status = model.TaskStatusCompleted
	case t.FailedCount == t.Progress.Total:
		t.Status = model.TaskStatusFailed
	default:
		t.Status = model.TaskStatusPartialFailed
	}
	t.CompleteTime = t.UpdatedAt
}

func queryInt(u *url.URL, key string, def int) (int, error) {
	v := u.Query().Get(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %q query parameter %q: %w", key, v, model.ErrNotValid)
	}

	return n, nil
}
