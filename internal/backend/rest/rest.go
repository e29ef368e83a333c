package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
)

const requestIDHeader = "X-Request-ID"

// RetryConfig is the transport level retry configuration. Disabled by default so a
// slow backend doesn't change the polling cadence.
type RetryConfig struct {
	Count   int
	Wait    time.Duration
	MaxWait time.Duration
}

// BackendConfig is the configuration for the REST backend.
type BackendConfig struct {
	// BaseURL is the download backend API address (e.g: http://127.0.0.1:8080/api).
	BaseURL   string
	Timeout   time.Duration
	Retry     RetryConfig
	UserAgent string
	Logger    log.Logger
}

func (c *BackendConfig) defaults() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}

	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	if c.Retry.Count < 0 {
		return fmt.Errorf("retry count can't be negative")
	}

	if c.Retry.Wait <= 0 {
		c.Retry.Wait = 100 * time.Millisecond
	}

	if c.Retry.MaxWait < c.Retry.Wait {
		c.Retry.MaxWait = c.Retry.Wait
	}

	if c.UserAgent == "" {
		c.UserAgent = "dlsync"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.REST"})

	return nil
}

// Backend is a backend.Backend implementation that talks to the download backend REST API.
type Backend struct {
	client *resty.Client
	logger log.Logger
}

// NewBackend returns a new REST backend.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retry.Count).
		SetRetryWaitTime(cfg.Retry.Wait).
		SetRetryMaxWaitTime(cfg.Retry.MaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			if r == nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	logger := cfg.Logger
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(requestIDHeader) == "" {
			req.SetHeader(requestIDHeader, uuid.NewString())
		}
		logger.Debugf("http request %s %s (request-id: %s)", req.Method, req.URL, req.Header.Get(requestIDHeader))
		return nil
	})

	return &Backend{
		client: client,
		logger: cfg.Logger,
	}, nil
}

type apiError struct {
	Error string `json:"error"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type batchRequest struct {
	URL string `json:"url"`
}

type batchResponse struct {
	TaskIDs []string `json:"taskIds"`
}

// ListActiveTasks satisfies backend.Backend interface.
func (b *Backend) ListActiveTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&tasks).
		SetError(&apiError{}).
		Get("/tasks/active")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("could not list active tasks: %w", err)
	}

	return tasks, nil
}

// ListHistoryTasks satisfies backend.Backend interface.
func (b *Backend) ListHistoryTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&tasks).
		SetError(&apiError{}).
		Get("/tasks/history")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("could not list history tasks: %w", err)
	}

	return tasks, nil
}

// ClearHistory satisfies backend.Backend interface.
func (b *Backend) ClearHistory(ctx context.Context) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetError(&apiError{}).
		Delete("/tasks/history")
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("could not clear history: %w", err)
	}

	return nil
}

// GetTask satisfies backend.Backend interface.
func (b *Backend) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task := &model.Task{}
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(task).
		SetError(&apiError{}).
		Get("/tasks/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("could not get task %s: %w", id, err)
	}

	return task, nil
}

// CancelTask satisfies backend.Backend interface.
func (b *Backend) CancelTask(ctx context.Context, id string) (bool, error) {
	res := &cancelResponse{}
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(res).
		SetError(&apiError{}).
		Post("/tasks/{id}/cancel")
	if err := checkResponse(resp, err); err != nil {
		return false, fmt.Errorf("could not cancel task %s: %w", id, err)
	}

	return res.Cancelled, nil
}

// RetryTask satisfies backend.Backend interface.
func (b *Backend) RetryTask(ctx context.Context, id string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Post("/tasks/{id}/retry")
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("could not retry task %s: %w", id, err)
	}

	return nil
}

// RetryFailedFiles satisfies backend.Backend interface.
func (b *Backend) RetryFailedFiles(ctx context.Context, id string) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetError(&apiError{}).
		Post("/tasks/{id}/retry-failed")
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("could not retry failed files of task %s: %w", id, err)
	}

	return nil
}

// StartBatch satisfies backend.Backend interface.
func (b *Backend) StartBatch(ctx context.Context, url string) ([]string, error) {
	res := &batchResponse{}
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(batchRequest{URL: url}).
		SetResult(res).
		SetError(&apiError{}).
		Post("/batches")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("could not start batch: %w", err)
	}

	return res.TaskIDs, nil
}

// checkResponse converts transport errors and non 2xx responses into errors.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp == nil {
		return errors.New("missing response")
	}
	if !resp.IsError() {
		return nil
	}

	msg := strings.TrimSpace(resp.String())
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error != "" {
		msg = apiErr.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, model.ErrNotFound)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, model.ErrNotValid)
	}

	return fmt.Errorf("backend responded with status %d: %s", resp.StatusCode(), msg)
}
