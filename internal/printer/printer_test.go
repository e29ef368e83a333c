package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/printer"
)

func taskFixture() model.Task {
	return model.Task{
		ID:          "01HX0000000000000000000000",
		URL:         "https://example.com/gallery",
		Status:      model.TaskStatusPartialFailed,
		SavePath:    "/downloads/gallery",
		Name:        "gallery",
		Error:       "2 files failed",
		Progress:    model.Progress{Current: 8, Total: 10},
		StartTime:   "2026-01-30T10:00:00Z",
		FailedCount: 2,
		Retryable:   true,
		RetryCount:  1,
		MaxRetries:  3,
	}
}

func TestTablePrinterPrintTasks(t *testing.T) {
	tests := map[string]struct {
		tasks       []model.Task
		expContains []string
		expEmpty    bool
	}{
		"No tasks should print nothing.": {
			tasks:    []model.Task{},
			expEmpty: true,
		},

		"Tasks should be printed with progress.": {
			tasks: []model.Task{
				taskFixture(),
				{ID: "t2", Status: model.TaskStatusPending},
			},
			expContains: []string{
				"ID", "PROGRESS",
				"gallery", "partial_failed", "8/10 (80%)", "1/3",
				"t2", "pending", "0/0 (?)",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var buf bytes.Buffer
			p := printer.NewTablePrinter(&buf)
			require.NoError(p.PrintTasks(test.tasks))

			out := buf.String()
			if test.expEmpty {
				assert.Empty(out)
				return
			}
			for _, exp := range test.expContains {
				assert.Contains(out, exp)
			}
		})
	}
}

func TestTablePrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintTask(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Status:     partial_failed")
	assert.Contains(t, out, "Progress:   8/10 (80%)")
	assert.Contains(t, out, "Retries:    1/3 (retryable: true)")
	assert.Contains(t, out, "Error:      2 files failed")
	assert.NotContains(t, out, "Completed:")
}

func TestTablePrinterPrintBatchResult(t *testing.T) {
	tests := map[string]struct {
		res    batch.Result
		expOut string
	}{
		"Success should print the created tasks.": {
			res:    batch.Result{Success: true, TaskIDs: []string{"t1", "t2"}, ExtractedCount: 2},
			expOut: "Batch download started, 2 tasks created\nt1\nt2\n",
		},

		"Failure should print the error.": {
			res:    batch.Result{Error: batch.MsgNoLinks},
			expOut: batch.MsgNoLinks + "\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			p := printer.NewTablePrinter(&buf)
			require.NoError(t, p.PrintBatchResult(test.res))
			assert.Equal(t, test.expOut, buf.String())
		})
	}
}

func TestTablePrinterPrintOperations(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	now := time.Now()
	err := p.PrintOperations([]model.Operation{
		{ID: "op2", Kind: model.OperationKindBatch, URL: "https://example.com", TaskIDs: []string{"t1", "t2"}, CreatedAt: now},
		{ID: "op1", Kind: model.OperationKindRetry, TaskID: "t1", Error: "not valid", CreatedAt: now.Add(-time.Minute)},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "https://example.com (2 tasks)")
	assert.Contains(t, out, "error: not valid")
	assert.Contains(t, out, "1 minute ago (UTC)")
}

func TestJSONPrinterPrintTasks(t *testing.T) {
	tests := map[string]struct {
		tasks  []model.Task
		expLen int
	}{
		"Nil tasks should print an empty list.": {
			tasks:  nil,
			expLen: 0,
		},

		"Tasks should be printed with the backend fields.": {
			tasks:  []model.Task{taskFixture()},
			expLen: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var buf bytes.Buffer
			p := printer.NewJSONPrinter(&buf)
			require.NoError(p.PrintTasks(test.tasks))

			var got []model.Task
			require.NoError(json.Unmarshal(buf.Bytes(), &got))
			assert.Len(got, test.expLen)
			assert.NotNil(got)
		})
	}
}

func TestJSONPrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintTask(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"status": "partial_failed"`)
	assert.Contains(t, out, `"failedCount": 2`)
	assert.Contains(t, out, `"savePath": "/downloads/gallery"`)
}

func TestJSONPrinterPrintBatchResult(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintBatchResult(batch.Result{Success: true, TaskIDs: []string{"t1"}, ExtractedCount: 1})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, `"extractedCount": 1`)
}

func TestJSONPrinterPrintOperations(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	err := p.PrintOperations([]model.Operation{{ID: "op1", Kind: model.OperationKindCancel, TaskID: "t1", CreatedAt: createdAt}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"kind": "cancel"`)
	assert.Contains(t, out, `"task_id": "t1"`)
	assert.Contains(t, out, `"created_at": "2026-01-30T10:00:00Z"`)
	assert.NotContains(t, out, `"url"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
