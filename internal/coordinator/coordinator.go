package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/storage"
)

// ControlBackend is the part of the backend used to control tasks.
type ControlBackend interface {
	CancelTask(ctx context.Context, id string) (bool, error)
	RetryTask(ctx context.Context, id string) error
	RetryFailedFiles(ctx context.Context, id string) error
}

// Refresher forces an immediate refresh of the task state.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Config is the coordinator configuration.
type Config struct {
	Backend   ControlBackend
	Refresher Refresher
	// Registry is the in-flight registry, if nil a new one is created.
	Registry *Registry
	// Journal is optional, when set every control operation is recorded.
	Journal storage.OperationRepository
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *Config) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}

	if c.Refresher == nil {
		return fmt.Errorf("refresher is required")
	}

	if c.Registry == nil {
		c.Registry = NewRegistry(nil)
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "coordinator.Coordinator"})

	return nil
}

// Coordinator executes the task control operations. Retry operations are
// deduplicated per task, cancel is not.
type Coordinator struct {
	backend   ControlBackend
	refresher Refresher
	registry  *Registry
	journal   storage.OperationRepository
	timeNow   func() time.Time
	logger    log.Logger
}

// New returns a new coordinator.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Coordinator{
		backend:   cfg.Backend,
		refresher: cfg.Refresher,
		registry:  cfg.Registry,
		journal:   cfg.Journal,
		timeNow:   cfg.TimeNow,
		logger:    cfg.Logger,
	}, nil
}

// Registry returns the in-flight registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Cancel cancels a task and refreshes the task state right away, without waiting
// for the next poll.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	logger := c.logger.WithValues(log.Kv{"task-id": id})

	cancelled, err := c.backend.CancelTask(ctx, id)
	c.record(ctx, model.OperationKindCancel, id, err)
	if err != nil {
		logger.Errorf("Could not cancel task: %s", err)
		return fmt.Errorf("could not cancel task %s: %w", id, err)
	}
	logger.Debugf("Task cancel sent (cancelled: %t)", cancelled)

	// Refresh errors are already logged by the refresher and the next poll will fix the state.
	_ = c.refresher.Refresh(ctx)

	return nil
}

// Retry retries a task. If the task already has a retry in flight the call is
// ignored and returns no error, so repeated user actions don't end in duplicated
// backend calls or errors.
func (c *Coordinator) Retry(ctx context.Context, id string) error {
	return c.guarded(ctx, model.OperationKindRetry, id, c.backend.RetryTask)
}

// RetryFailedFiles retries only the failed files of a task with the same in-flight
// deduplication as Retry.
func (c *Coordinator) RetryFailedFiles(ctx context.Context, id string) error {
	return c.guarded(ctx, model.OperationKindRetryFailed, id, c.backend.RetryFailedFiles)
}

func (c *Coordinator) guarded(ctx context.Context, kind model.OperationKind, id string, op func(ctx context.Context, id string) error) error {
	logger := c.logger.WithValues(log.Kv{"task-id": id, "op": kind})

	release, ok := c.registry.Acquire(id)
	if !ok {
		logger.Debugf("Operation already in flight, ignoring")
		return nil
	}
	defer release()

	err := op(ctx, id)
	c.record(ctx, kind, id, err)
	if err != nil {
		logger.Errorf("Could not execute operation: %s", err)
		return fmt.Errorf("could not execute %s operation on task %s: %w", kind, id, err)
	}
	logger.Debugf("Operation executed")

	return nil
}

func (c *Coordinator) record(ctx context.Context, kind model.OperationKind, id string, opErr error) {
	if c.journal == nil {
		return
	}

	op := model.Operation{
		Kind:      kind,
		TaskID:    id,
		CreatedAt: c.timeNow().UTC(),
	}
	if opErr != nil {
		op.Error = opErr.Error()
	}

	if err := c.journal.AppendOperation(ctx, op); err != nil {
		c.logger.Warningf("Could not record %s operation on journal: %s", kind, err)
	}
}
