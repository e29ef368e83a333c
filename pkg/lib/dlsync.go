package lib

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/slok/dlsync/internal/backend"
	"github.com/slok/dlsync/internal/backend/fake"
	"github.com/slok/dlsync/internal/backend/rest"
	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/conventions"
	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/storage"
	"github.com/slok/dlsync/internal/storage/memory"
	"github.com/slok/dlsync/internal/storage/sqlite"
	"github.com/slok/dlsync/internal/store"
	"github.com/slok/dlsync/internal/wsapi"
)

// Config configures the SDK client.
//
// Only BackendURL is required when using the [BackendHTTP] backend, everything
// else has sensible defaults.
type Config struct {
	// Backend selects the backend implementation.
	// Default: [BackendHTTP].
	Backend BackendType

	// BackendURL is the download backend API address (e.g. http://127.0.0.1:8080/api).
	// Only used with [BackendHTTP].
	BackendURL string

	// BackendTimeout is the timeout of each backend request.
	// Default: 10s.
	BackendTimeout time.Duration

	// BackendRetries is the number of times a failed backend request is retried.
	// Default: 0.
	BackendRetries int

	// BackendRetryWait is the wait between backend request retries.
	BackendRetryWait time.Duration

	// PollInterval is the interval between active task refreshes.
	// Default: 1s.
	PollInterval time.Duration

	// DataDir is the base directory for dlsync data.
	// Default: ~/.dlsync.
	DataDir string

	// JournalPath is the SQLite operation journal path.
	// Default: ~/.dlsync/journal.db.
	JournalPath string

	// InMemoryJournal keeps the operation journal in memory instead of SQLite.
	InMemoryJournal bool

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Backend == "" {
		c.Backend = BackendHTTP
	}

	if c.Backend == BackendHTTP && c.BackendURL == "" {
		return fmt.Errorf("backend url is required: %w", ErrNotValid)
	}

	if c.DataDir == "" {
		c.DataDir = conventions.DataDir()
	}

	if c.JournalPath == "" {
		c.JournalPath = conventions.JournalPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point to keep a synced view of the download
// backend tasks and control them.
//
// Create a Client with [New], start syncing with [Client.Start] and release its
// resources with [Client.Close]. A Client is safe for concurrent use.
type Client struct {
	store   *store.Store
	backend backend.Backend
	fake    *fake.Backend
	batch   *batch.Service
	journal storage.OperationRepository
	logger  log.Logger

	closeOnce sync.Once
	closeFn   func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{BackendURL: "http://127.0.0.1:8080/api"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		logger:  cfg.Logger,
		closeFn: func() error { return nil },
	}

	switch cfg.Backend {
	case BackendHTTP:
		b, err := rest.NewBackend(rest.BackendConfig{
			BaseURL: cfg.BackendURL,
			Timeout: cfg.BackendTimeout,
			Retry: rest.RetryConfig{
				Count: cfg.BackendRetries,
				Wait:  cfg.BackendRetryWait,
			},
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create backend: %w", err))
		}
		c.backend = b
	case BackendFake:
		b, err := fake.NewBackend(fake.BackendConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create backend: %w", err)
		}
		c.backend = b
		c.fake = b
	default:
		return nil, fmt.Errorf("unsupported backend type: %s: %w", cfg.Backend, ErrNotValid)
	}

	if cfg.InMemoryJournal {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create journal: %w", err)
		}
		c.journal = repo
	} else {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.JournalPath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create journal: %w", err)
		}
		c.journal = repo
		c.closeFn = repo.Close
	}

	st, err := store.New(store.Config{
		Backend:      c.backend,
		PollInterval: cfg.PollInterval,
		Journal:      c.journal,
		Logger:       cfg.Logger,
	})
	if err != nil {
		_ = c.closeFn()
		return nil, fmt.Errorf("could not create store: %w", err)
	}
	c.store = st

	svc, err := batch.NewService(batch.ServiceConfig{
		Backend: c.backend,
		Journal: c.journal,
		Logger:  cfg.Logger,
	})
	if err != nil {
		_ = c.closeFn()
		return nil, fmt.Errorf("could not create batch service: %w", err)
	}
	c.batch = svc

	return c, nil
}

// Start starts polling the active tasks. The first poll happens after one poll
// interval, use [Client.Refresh] to get the active tasks right away.
func (c *Client) Start() {
	c.store.Init()
}

// Close stops the polling, closes the subscriptions and releases the client
// resources. After Close returns, the client must not be used.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.store.Close()
		err = c.closeFn()
	})
	return err
}

// Refresh fetches the active tasks right now.
func (c *Client) Refresh(ctx context.Context) error {
	return mapError(c.store.Poll(ctx))
}

// Snapshot returns the current synced view of the tasks.
func (c *Client) Snapshot() Snapshot {
	return fromInternalSnapshot(c.store.Snapshot())
}

// ActiveTasks returns the current active tasks.
func (c *Client) ActiveTasks() []Task {
	return fromInternalTaskList(c.store.ActiveTasks())
}

// ActiveTasksCount returns the number of active tasks.
func (c *Client) ActiveTasksCount() int {
	return c.store.ActiveTasksCount()
}

// HistoryTasks returns the last loaded history tasks, see [Client.LoadHistory].
func (c *Client) HistoryTasks() []Task {
	return fromInternalTaskList(c.store.HistoryTasks())
}

// IsRetrying returns true when the task has a retry in flight from this client.
func (c *Client) IsRetrying(id string) bool {
	return c.store.IsRetrying(id)
}

// Subscribe returns a channel that receives a [Snapshot] every time it changes,
// starting with the current one. Slow subscribers skip intermediate snapshots.
// The channel is closed when the returned cancel func is called or the client is closed.
func (c *Client) Subscribe(buffer int) (<-chan Snapshot, func()) {
	in, cancelIn := c.store.Subscribe(buffer)

	if buffer <= 0 {
		buffer = 1
	}
	out := make(chan Snapshot, buffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for snap := range in {
			select {
			case out <- fromInternalSnapshot(snap):
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			cancelIn()
		})
	}
}

// CancelTask cancels a task. The active tasks are refreshed right after.
//
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) CancelTask(ctx context.Context, id string) error {
	return mapError(c.store.CancelTask(ctx, id))
}

// RetryTask retries a finished task. If a retry for the same task is already in
// flight the call is ignored.
//
// Returns [ErrNotFound] if the task does not exist, or [ErrNotValid] if the task
// can't be retried.
func (c *Client) RetryTask(ctx context.Context, id string) error {
	return mapError(c.store.RetryTask(ctx, id))
}

// RetryFailedFilesOnly retries only the failed files of a task. If a retry for the
// same task is already in flight the call is ignored.
func (c *Client) RetryFailedFilesOnly(ctx context.Context, id string) error {
	return mapError(c.store.RetryFailedFilesOnly(ctx, id))
}

// LoadHistory loads the finished tasks from the backend.
func (c *Client) LoadHistory(ctx context.Context) error {
	return mapError(c.store.LoadHistory(ctx))
}

// ClearHistory removes the finished tasks from the backend.
func (c *Client) ClearHistory(ctx context.Context) error {
	return mapError(c.store.ClearHistory(ctx))
}

// GetTask gets a task directly from the backend.
//
// Returns [ErrNotFound] if the task does not exist.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := c.backend.GetTask(ctx, id)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not get task: %w", err))
	}

	task := fromInternalTask(*t)
	return &task, nil
}

// ExecuteBatchDownload expands a URL into backend download tasks.
func (c *Client) ExecuteBatchDownload(ctx context.Context, opts BatchOpts) BatchResult {
	res := c.batch.Execute(ctx, batch.Options{
		URL:       opts.URL,
		OnStart:   opts.OnStart,
		OnError:   opts.OnError,
		OnSuccess: opts.OnSuccess,
	})
	return fromInternalBatchResult(res)
}

// NewBatchHandler returns a batch download handler wired with the callbacks.
func (c *Client) NewBatchHandler(cb BatchCallbacks) BatchHandler {
	h := c.batch.NewHandler(batch.Callbacks{
		OnStart:   cb.OnStart,
		OnSuccess: cb.OnSuccess,
		OnError:   cb.OnError,
		OnFinally: cb.OnFinally,
	})

	return func(ctx context.Context, url string) BatchResult {
		return fromInternalBatchResult(h(ctx, url))
	}
}

// Operations returns the latest control operations issued by this client, limit <= 0
// returns all of them.
func (c *Client) Operations(ctx context.Context, limit int) ([]Operation, error) {
	ops, err := c.journal.ListOperations(ctx, limit)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not list operations: %w", err))
	}

	return fromInternalOperationList(ops), nil
}

// SnapshotHandler returns an HTTP handler that serves the snapshots on
// `/api/snapshot` (JSON) and `/api/ws` (websocket push).
func (c *Client) SnapshotHandler(allowedOrigins []string) (http.Handler, error) {
	h, err := wsapi.NewHandler(wsapi.HandlerConfig{
		Source:         c.store,
		AllowedOrigins: allowedOrigins,
		Logger:         c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create snapshot handler: %w", err)
	}

	return h.Routes(), nil
}

// SimulateProgress downloads the next n files of every active task. Only
// available with the [BackendFake] backend.
func (c *Client) SimulateProgress(n int) error {
	if c.fake == nil {
		return fmt.Errorf("simulation requires the fake backend: %w", ErrNotValid)
	}

	c.fake.Advance(n)
	return nil
}

// SimulateFailure makes the next n files of an active task fail. Only available
// with the [BackendFake] backend.
func (c *Client) SimulateFailure(id string, n int) error {
	if c.fake == nil {
		return fmt.Errorf("simulation requires the fake backend: %w", ErrNotValid)
	}

	return mapError(c.fake.Fail(id, n))
}
