package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/dlsync/internal/backend/backendmock"
	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/storage/storagemock"
)

type callbackRecorder struct {
	starts    int
	errors    []string
	successes [][]string
	counts    []int
}

func (c *callbackRecorder) options(url string) batch.Options {
	return batch.Options{
		URL:     url,
		OnStart: func() { c.starts++ },
		OnError: func(msg string) { c.errors = append(c.errors, msg) },
		OnSuccess: func(ids []string, count int) {
			c.successes = append(c.successes, ids)
			c.counts = append(c.counts, count)
		},
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config batch.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: batch.ServiceConfig{Backend: &backendmock.MockBackend{}, Logger: log.Noop},
		},
		"missing backend should fail": {
			config: batch.ServiceConfig{Logger: log.Noop},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := batch.NewService(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestServiceExecute(t *testing.T) {
	tests := map[string]struct {
		url          string
		mock         func(m *backendmock.MockBackend)
		expResult    batch.Result
		expStarts    int
		expErrors    []string
		expSuccesses [][]string
		expCounts    []int
	}{
		"Tasks returned by the backend should be a success.": {
			url: "  https://example.com/list  ",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return([]string{"a", "b", "c"}, nil)
			},
			expResult:    batch.Result{Success: true, TaskIDs: []string{"a", "b", "c"}, ExtractedCount: 3},
			expStarts:    1,
			expSuccesses: [][]string{{"a", "b", "c"}},
			expCounts:    []int{3},
		},
		"No tasks returned by the backend should be a failure.": {
			url: "https://example.com/list",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return([]string{}, nil)
			},
			expResult: batch.Result{Success: false, Error: batch.MsgNoLinks},
			expStarts: 1,
			expErrors: []string{batch.MsgNoLinks},
		},
		"A backend error should be a failure with the error message.": {
			url: "https://example.com/list",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return(nil, errors.New("timeout"))
			},
			expResult: batch.Result{Success: false, Error: "batch download error: timeout"},
			expStarts: 1,
			expErrors: []string{"batch download error: timeout"},
		},
		"A backend error without message should be a failure with an unknown error.": {
			url: "https://example.com/list",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return(nil, errors.New(""))
			},
			expResult: batch.Result{Success: false, Error: "batch download error: unknown error"},
			expStarts: 1,
			expErrors: []string{"batch download error: unknown error"},
		},
		"An empty URL should fail without calling the backend.": {
			url:       "",
			mock:      func(m *backendmock.MockBackend) {},
			expResult: batch.Result{Success: false, Error: batch.MsgInvalidURL},
			expErrors: []string{batch.MsgInvalidURL},
		},
		"A whitespace URL should fail without calling the backend.": {
			url:       "   ",
			mock:      func(m *backendmock.MockBackend) {},
			expResult: batch.Result{Success: false, Error: batch.MsgInvalidURL},
			expErrors: []string{batch.MsgInvalidURL},
		},
		"A malformed URL should fail without calling the backend.": {
			url:       "not a url",
			mock:      func(m *backendmock.MockBackend) {},
			expResult: batch.Result{Success: false, Error: batch.MsgInvalidURL},
			expErrors: []string{batch.MsgInvalidURL},
		},
		"A non http URL should fail without calling the backend.": {
			url:       "ftp://example.com/list",
			mock:      func(m *backendmock.MockBackend) {},
			expResult: batch.Result{Success: false, Error: batch.MsgInvalidURL},
			expErrors: []string{batch.MsgInvalidURL},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mb := backendmock.NewMockBackend(t)
			test.mock(mb)

			svc, err := batch.NewService(batch.ServiceConfig{Backend: mb, Logger: log.Noop})
			require.NoError(err)

			rec := &callbackRecorder{}
			gotResult := svc.Execute(context.Background(), rec.options(test.url))

			assert.Equal(test.expResult, gotResult)
			assert.Equal(test.expStarts, rec.starts)
			assert.Equal(test.expErrors, rec.errors)
			assert.Equal(test.expSuccesses, rec.successes)
			assert.Equal(test.expCounts, rec.counts)
		})
	}
}

func TestServiceExecuteCustomValidator(t *testing.T) {
	mb := backendmock.NewMockBackend(t)
	mb.On("StartBatch", mock.Anything, "anything").Once().Return([]string{"a"}, nil)

	svc, err := batch.NewService(batch.ServiceConfig{
		Backend:   mb,
		Validator: batch.URLValidatorFunc(func(string) bool { return true }),
	})
	require.NoError(t, err)

	res := svc.Execute(context.Background(), batch.Options{URL: "anything"})
	assert.True(t, res.Success)
}

func TestServiceExecuteJournal(t *testing.T) {
	now := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

	mb := backendmock.NewMockBackend(t)
	mb.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return([]string{"a", "b"}, nil)
	mj := storagemock.NewMockOperationRepository(t)
	mj.On("AppendOperation", mock.Anything, model.Operation{
		Kind:      model.OperationKindBatch,
		URL:       "https://example.com/list",
		TaskIDs:   []string{"a", "b"},
		CreatedAt: now,
	}).Once().Return(errors.New("journal down"))

	svc, err := batch.NewService(batch.ServiceConfig{
		Backend: mb,
		Journal: mj,
		TimeNow: func() time.Time { return now },
	})
	require.NoError(t, err)

	// Journal errors don't change the result.
	res := svc.Execute(context.Background(), batch.Options{URL: "https://example.com/list"})
	assert.Equal(t, batch.Result{Success: true, TaskIDs: []string{"a", "b"}, ExtractedCount: 2}, res)
}

func TestServiceHandler(t *testing.T) {
	tests := map[string]struct {
		url           string
		mock          func(m *backendmock.MockBackend)
		expSuccess    bool
		expSuccessURL string
		expErrors     int
	}{
		"A successful batch should call start, success and finally.": {
			url: "https://example.com/list",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return([]string{"a"}, nil)
			},
			expSuccess:    true,
			expSuccessURL: "https://example.com/list",
		},
		"A failed batch should call start, error and finally.": {
			url: "https://example.com/list",
			mock: func(m *backendmock.MockBackend) {
				m.On("StartBatch", mock.Anything, "https://example.com/list").Once().Return(nil, errors.New("boom"))
			},
			expErrors: 1,
		},
		"An invalid URL should call start, error and finally.": {
			url:       "",
			mock:      func(m *backendmock.MockBackend) {},
			expErrors: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mb := backendmock.NewMockBackend(t)
			test.mock(mb)

			svc, err := batch.NewService(batch.ServiceConfig{Backend: mb})
			require.NoError(err)

			var starts, finals, errs int
			var successURL string
			h := svc.NewHandler(batch.Callbacks{
				OnStart:   func() { starts++ },
				OnSuccess: func(ids []string, url string, count int) { successURL = url },
				OnError:   func(string) { errs++ },
				OnFinally: func() { finals++ },
			})

			res := h(context.Background(), test.url)

			assert.Equal(test.expSuccess, res.Success)
			assert.Equal(1, starts)
			assert.Equal(1, finals)
			assert.Equal(test.expErrors, errs)
			assert.Equal(test.expSuccessURL, successURL)
		})
	}
}

func TestServiceHandlerFinallyOnPanic(t *testing.T) {
	mb := backendmock.NewMockBackend(t)
	mb.On("StartBatch", mock.Anything, mock.Anything).Once().Return([]string{"a"}, nil)

	svc, err := batch.NewService(batch.ServiceConfig{Backend: mb})
	require.NoError(t, err)

	finals := 0
	h := svc.NewHandler(batch.Callbacks{
		OnSuccess: func([]string, string, int) { panic("ui exploded") },
		OnFinally: func() { finals++ },
	})

	assert.Panics(t, func() { h(context.Background(), "https://example.com/list") })
	assert.Equal(t, 1, finals)
}

func TestHTTPURLValidator(t *testing.T) {
	v := batch.NewHTTPURLValidator()

	assert.True(t, v.ValidURL("https://example.com/a?b=c"))
	assert.True(t, v.ValidURL(" http://127.0.0.1:8080/x "))
	assert.False(t, v.ValidURL(""))
	assert.False(t, v.ValidURL("example.com"))
	assert.False(t, v.ValidURL("mailto:someone@example.com"))
}
