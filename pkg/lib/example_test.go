package lib_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/dlsync/pkg/lib"
)

// This example shows how to create a client using the fake backend for testing.
func Example_testing() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		Backend:         lib.BackendFake,
		InMemoryJournal: true,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	res := client.ExecuteBatchDownload(ctx, lib.BatchOpts{URL: "https://example.com/gallery?items=2&files=4"})
	fmt.Printf("Batch: success=%t tasks=%d\n", res.Success, res.ExtractedCount)

	if err := client.Refresh(ctx); err != nil {
		panic(err)
	}
	fmt.Printf("Active: %d\n", client.ActiveTasksCount())

	// Download all the files.
	if err := client.SimulateProgress(4); err != nil {
		panic(err)
	}
	if err := client.Refresh(ctx); err != nil {
		panic(err)
	}
	fmt.Printf("Active: %d\n", client.ActiveTasksCount())

	// Output:
	// Batch: success=true tasks=2
	// Active: 2
	// Active: 0
}

// This example shows how a failed batch download is reported.
func Example_batchFailure() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		Backend:         lib.BackendFake,
		InMemoryJournal: true,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	res := client.ExecuteBatchDownload(ctx, lib.BatchOpts{URL: "not a url"})
	fmt.Println(res.Error)

	res = client.ExecuteBatchDownload(ctx, lib.BatchOpts{URL: "https://example.com/empty?items=0"})
	fmt.Println(res.Error)

	// Output:
	// please enter a valid URL
	// batch download failed, no download links found
}

// This example shows how to handle errors with errors.Is.
func Example_errorHandling() {
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		Backend:         lib.BackendFake,
		InMemoryJournal: true,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	_, err = client.GetTask(ctx, "does-not-exist")
	if errors.Is(err, lib.ErrNotFound) {
		fmt.Println("task not found (expected)")
	}

	// Output:
	// task not found (expected)
}
