// Package lib provides a Go SDK to keep a synced view of a download backend tasks
// and control them programmatically.
//
// The client polls the backend active tasks on an interval, cancels and retries
// tasks, starts batch downloads from a URL and records every control operation
// it issues in a local journal.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    BackendURL: "http://127.0.0.1:8080/api",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Start polling the active tasks.
//	client.Start()
//
//	// Start a batch download.
//	res := client.ExecuteBatchDownload(ctx, lib.BatchOpts{URL: "https://example.com/gallery"})
//	if !res.Success {
//	    log.Fatal(res.Error)
//	}
//
// # Watching Changes
//
// Subscribe to receive the task snapshot every time it changes:
//
//	snaps, cancel := client.Subscribe(10)
//	defer cancel()
//	for snap := range snaps {
//	    fmt.Printf("%d active tasks\n", snap.ActiveTasksCount())
//	}
//
// The snapshots can also be served to other processes with [Client.SnapshotHandler].
//
// # Task Control
//
// Cancel refreshes the active tasks right after succeeding. Retries of the same
// task are deduplicated while in flight, the retrying tasks are part of the
// [Snapshot]:
//
//	client.CancelTask(ctx, id)
//	client.RetryTask(ctx, id)
//	client.RetryFailedFilesOnly(ctx, id)
//
// # History
//
// Finished tasks are loaded on demand:
//
//	client.LoadHistory(ctx)
//	history := client.HistoryTasks()
//	client.ClearHistory(ctx)
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Task does not exist.
//   - [ErrAlreadyExists]: Resource already exists.
//   - [ErrNotValid]: Invalid input or operation (e.g. retrying a running task).
//
// Batch downloads never return errors, failures are reported in [BatchResult].
//
// # Testing
//
// Use [BackendFake] and an in-memory journal to write tests without a real
// backend, [Client.SimulateProgress] and [Client.SimulateFailure] move the
// simulated tasks:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    Backend:         lib.BackendFake,
//	    InMemoryJournal: true,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
