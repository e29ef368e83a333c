package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/model"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// operationOutput represents a journal operation output.
type operationOutput struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	TaskIDs   []string  `json:"task_ids,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintTasks prints tasks in JSON format, with the same fields the backend uses.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return j.encode(tasks)
}

// PrintTask prints a task in JSON format.
func (j *JSONPrinter) PrintTask(task model.Task) error {
	return j.encode(task)
}

// PrintBatchResult prints the result of a batch download in JSON format.
func (j *JSONPrinter) PrintBatchResult(res batch.Result) error {
	return j.encode(res)
}

// PrintOperations prints the journal operations in JSON format.
func (j *JSONPrinter) PrintOperations(ops []model.Operation) error {
	items := make([]operationOutput, len(ops))
	for i, op := range ops {
		items[i] = operationOutput{
			ID:        op.ID,
			Kind:      string(op.Kind),
			TaskID:    op.TaskID,
			URL:       op.URL,
			TaskIDs:   op.TaskIDs,
			Error:     op.Error,
			CreatedAt: op.CreatedAt.UTC(),
		}
	}

	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
