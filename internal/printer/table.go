package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/model"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS\tFAILED\tRETRIES")

	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d/%d\n",
			task.ID,
			orDash(task.Name),
			task.Status,
			FormatProgress(task.Progress),
			task.FailedCount,
			task.RetryCount,
			task.MaxRetries,
		)
	}

	return nil
}

// PrintTask prints detailed task information.
func (t *TablePrinter) PrintTask(task model.Task) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", task.ID)
	fmt.Fprintf(t.writer, "Name:       %s\n", orDash(task.Name))
	fmt.Fprintf(t.writer, "URL:        %s\n", task.URL)
	fmt.Fprintf(t.writer, "Status:     %s\n", task.Status)
	fmt.Fprintf(t.writer, "Progress:   %s\n", FormatProgress(task.Progress))
	fmt.Fprintf(t.writer, "Save path:  %s\n", orDash(task.SavePath))
	fmt.Fprintf(t.writer, "Failed:     %d\n", task.FailedCount)
	fmt.Fprintf(t.writer, "Retries:    %d/%d (retryable: %t)\n", task.RetryCount, task.MaxRetries, task.Retryable)
	fmt.Fprintf(t.writer, "Started:    %s\n", orDash(task.StartTime))

	if task.CompleteTime != "" {
		fmt.Fprintf(t.writer, "Completed:  %s\n", task.CompleteTime)
	}

	if task.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", task.Error)
	}

	return nil
}

// PrintBatchResult prints the result of a batch download.
func (t *TablePrinter) PrintBatchResult(res batch.Result) error {
	if !res.Success {
		fmt.Fprintln(t.writer, res.Error)
		return nil
	}

	fmt.Fprintf(t.writer, "Batch download started, %d tasks created\n", res.ExtractedCount)
	for _, id := range res.TaskIDs {
		fmt.Fprintln(t.writer, id)
	}

	return nil
}

// PrintOperations prints the journal operations in a table format.
func (t *TablePrinter) PrintOperations(ops []model.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "KIND\tTARGET\tRESULT\tCREATED")

	for _, op := range ops {
		target := op.TaskID
		if op.Kind == model.OperationKindBatch {
			target = op.URL
			if len(op.TaskIDs) > 0 {
				target = fmt.Sprintf("%s (%d tasks)", op.URL, len(op.TaskIDs))
			}
		}

		result := "ok"
		if op.Error != "" {
			result = "error: " + strings.ReplaceAll(op.Error, "\t", " ")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Kind, orDash(target), result, TimeAgo(op.CreatedAt))
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
