package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/slok/dlsync/internal/backend"
	"github.com/slok/dlsync/internal/backend/fake"
	"github.com/slok/dlsync/internal/backend/rest"
	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/printer"
	"github.com/slok/dlsync/internal/storage"
	"github.com/slok/dlsync/internal/storage/memory"
	"github.com/slok/dlsync/internal/storage/sqlite"
	"github.com/slok/dlsync/internal/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// deps are the instances shared by the commands.
type deps struct {
	Backend backend.Backend
	// Fake is only set with the fake backend.
	Fake    *fake.Backend
	Journal storage.OperationRepository
	Store   *store.Store
	Batch   *batch.Service

	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (c *RootCommand) newDeps(ctx context.Context) (*deps, error) {
	d := &deps{}
	logger := c.Logger

	switch c.Backend {
	case BackendTypeFake:
		b, err := fake.NewBackend(fake.BackendConfig{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create backend: %w", err)
		}
		d.Backend = b
		d.Fake = b
	default:
		b, err := rest.NewBackend(rest.BackendConfig{
			BaseURL: c.BackendURL,
			Timeout: c.BackendTimeout,
			Retry: rest.RetryConfig{
				Count: c.BackendRetries,
				Wait:  c.BackendRetryWait,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create backend: %w", err)
		}
		d.Backend = b
	}

	if c.NoJournal {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("could not create journal: %w", err)
		}
		d.Journal = repo
	} else {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.JournalPath,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create journal: %w", err)
		}
		d.Journal = repo
		d.closers = append(d.closers, func() { _ = repo.Close() })
	}

	st, err := store.New(store.Config{
		Backend:      d.Backend,
		PollInterval: c.PollInterval,
		Journal:      d.Journal,
		Logger:       logger,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create store: %w", err)
	}
	d.Store = st
	d.closers = append(d.closers, st.Close)

	svc, err := batch.NewService(batch.ServiceConfig{
		Backend: d.Backend,
		Journal: d.Journal,
		Logger:  logger,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create batch service: %w", err)
	}
	d.Batch = svc

	return d, nil
}

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(w)
	default:
		return printer.NewTablePrinter(w)
	}
}
