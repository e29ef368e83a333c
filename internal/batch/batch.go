package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/storage"
)

// User facing messages.
const (
	MsgInvalidURL = "please enter a valid URL"
	MsgNoLinks    = "batch download failed, no download links found"
	msgErrPrefix  = "batch download error: "
	msgUnknownErr = "unknown error"
)

// Starter knows how to expand a URL into backend tasks.
type Starter interface {
	StartBatch(ctx context.Context, url string) ([]string, error)
}

// ServiceConfig is the configuration for the batch service.
type ServiceConfig struct {
	Backend Starter
	// Validator validates the user URL, by default only http(s) URLs are valid.
	Validator URLValidator
	// Journal is optional, when set every started batch is recorded.
	Journal storage.OperationRepository
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}

	if c.Validator == nil {
		c.Validator = NewHTTPURLValidator()
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "batch.Service"})

	return nil
}

// Service turns a user URL into backend download tasks.
type Service struct {
	backend   Starter
	validator URLValidator
	journal   storage.OperationRepository
	timeNow   func() time.Time
	logger    log.Logger
}

// NewService returns a new batch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		backend:   cfg.Backend,
		validator: cfg.Validator,
		journal:   cfg.Journal,
		timeNow:   cfg.TimeNow,
		logger:    cfg.Logger,
	}, nil
}

// Options are the options of a batch execution. All the callbacks are optional.
type Options struct {
	URL string
	// OnStart is called once the URL is valid, before calling the backend.
	OnStart func()
	// OnError is called with the user facing error message.
	OnError func(msg string)
	// OnSuccess is called with the created task IDs and their count.
	OnSuccess func(taskIDs []string, extractedCount int)
}

// Result is the outcome of a batch execution.
type Result struct {
	Success        bool     `json:"success"`
	TaskIDs        []string `json:"taskIds,omitempty"`
	ExtractedCount int      `json:"extractedCount,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Execute expands the URL into backend tasks. It never returns backend errors, every
// failure is reported with OnError and a failed Result. Getting zero tasks from the
// backend is a failure.
func (s *Service) Execute(ctx context.Context, opts Options) Result {
	if !s.validator.ValidURL(opts.URL) {
		return s.fail(opts, MsgInvalidURL)
	}

	if opts.OnStart != nil {
		opts.OnStart()
	}

	url := strings.TrimSpace(opts.URL)
	logger := s.logger.WithValues(log.Kv{"url": url})

	ids, err := s.backend.StartBatch(ctx, url)
	s.record(ctx, url, ids, err)
	if err != nil {
		logger.Errorf("Could not start batch: %s", err)
		msg := err.Error()
		if msg == "" {
			msg = msgUnknownErr
		}
		return s.fail(opts, msgErrPrefix+msg)
	}

	if len(ids) == 0 {
		logger.Warningf("Batch didn't create any task")
		return s.fail(opts, MsgNoLinks)
	}

	logger.Infof("Batch started with %d tasks", len(ids))
	if opts.OnSuccess != nil {
		opts.OnSuccess(ids, len(ids))
	}

	return Result{
		Success:        true,
		TaskIDs:        ids,
		ExtractedCount: len(ids),
	}
}

func (s *Service) fail(opts Options, msg string) Result {
	if opts.OnError != nil {
		opts.OnError(msg)
	}
	return Result{Success: false, Error: msg}
}

func (s *Service) record(ctx context.Context, url string, ids []string, opErr error) {
	if s.journal == nil {
		return
	}

	op := model.Operation{
		Kind:      model.OperationKindBatch,
		URL:       url,
		TaskIDs:   ids,
		CreatedAt: s.timeNow().UTC(),
	}
	if opErr != nil {
		op.Error = opErr.Error()
	}

	if err := s.journal.AppendOperation(ctx, op); err != nil {
		s.logger.Warningf("Could not record batch operation on journal: %s", err)
	}
}

// Callbacks are the UI hooks of a batch handler. All are optional.
type Callbacks struct {
	OnStart   func()
	OnSuccess func(taskIDs []string, url string, extractedCount int)
	OnError   func(msg string)
	// OnFinally is always called once when the handler ends, whatever the outcome.
	OnFinally func()
}

// Handler executes a batch for a URL.
type Handler func(ctx context.Context, url string) Result

// NewHandler returns a handler that wraps Execute with the callbacks.
func (s *Service) NewHandler(cb Callbacks) Handler {
	return func(ctx context.Context, url string) Result {
		if cb.OnFinally != nil {
			defer cb.OnFinally()
		}

		if cb.OnStart != nil {
			cb.OnStart()
		}

		var onSuccess func([]string, int)
		if cb.OnSuccess != nil {
			onSuccess = func(ids []string, count int) { cb.OnSuccess(ids, url, count) }
		}

		return s.Execute(ctx, Options{
			URL:       url,
			OnError:   cb.OnError,
			OnSuccess: onSuccess,
		})
	}
}
