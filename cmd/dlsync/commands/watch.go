package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/dlsync/internal/batch"
	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/store"
	"github.com/slok/dlsync/internal/wsapi"
)

type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listen         string
	allowedOrigins []string
	urls           []string
	simulateEvery  time.Duration
	format         string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Keep the active tasks synced and print them on every change.")
	c.Cmd.Flag("listen", "Serve the snapshots over HTTP and websocket on this address (e.g. 127.0.0.1:8081).").StringVar(&c.listen)
	c.Cmd.Flag("allowed-origin", "Allowed websocket origin, can be repeated, `*` allows any.").StringsVar(&c.allowedOrigins)
	c.Cmd.Flag("add", "Start a batch download from this URL before watching, can be repeated.").StringsVar(&c.urls)
	c.Cmd.Flag("simulate-every", "With the fake backend, download one file of every active task on this interval.").Default("1s").DurationVar(&c.simulateEvery)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	listen := c.listen
	if listen == "" {
		listen = c.rootCmd.Listen
	}
	origins := c.allowedOrigins
	if len(origins) == 0 {
		origins = c.rootCmd.AllowedOrigins
	}

	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	for _, u := range c.urls {
		res := d.Batch.Execute(ctx, batch.Options{URL: u})
		if !res.Success {
			logger.Warningf("Could not start batch for %s: %s", u, res.Error)
		}
	}

	d.Store.Init()
	if err := d.Store.Poll(ctx); err != nil {
		logger.Warningf("Initial poll failed: %s", err)
	}

	var g run.Group

	// Snapshot printer.
	{
		snaps, cancel := d.Store.Subscribe(1)
		g.Add(
			func() error {
				return c.printSnapshots(snaps)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Snapshot server.
	if listen != "" {
		h, err := wsapi.NewHandler(wsapi.HandlerConfig{
			Source:         d.Store,
			AllowedOrigins: origins,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("could not create snapshot handler: %w", err)
		}

		server := &http.Server{
			Addr:              listen,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Add(
			func() error {
				logger.WithValues(log.Kv{"addr": listen}).Infof("Snapshot server listening")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(ctx)
			},
		)
	}

	// Fake backend progress simulation.
	if d.Fake != nil && c.simulateEvery > 0 {
		stopC := make(chan struct{})
		g.Add(
			func() error {
				t := time.NewTicker(c.simulateEvery)
				defer t.Stop()
				for {
					select {
					case <-stopC:
						return nil
					case <-t.C:
						d.Fake.Advance(1)
					}
				}
			},
			func(_ error) {
				close(stopC)
			},
		)
	}

	// Context cancellation (from parent signal handling).
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func (c WatchCommand) printSnapshots(snaps <-chan store.Snapshot) error {
	p := newPrinter(c.format, c.rootCmd.Stdout)

	var last []string
	for snap := range snaps {
		// Only print when the tasks changed, the retrying set also triggers snapshots.
		key := snapshotKey(snap)
		if last != nil && slices.Equal(key, last) {
			continue
		}
		last = key

		if c.format == formatTable {
			if err := p.PrintMessage(fmt.Sprintf("--- %s: %d active tasks", time.Now().Format(time.TimeOnly), snap.ActiveTasksCount())); err != nil {
				return fmt.Errorf("could not print message: %w", err)
			}
		}
		if err := p.PrintTasks(snap.ActiveTasks); err != nil {
			return fmt.Errorf("could not print tasks: %w", err)
		}
	}

	return nil
}

func snapshotKey(s store.Snapshot) []string {
	key := make([]string, 0, len(s.ActiveTasks))
	for _, t := range s.ActiveTasks {
		key = append(key, fmt.Sprintf("%s|%s|%d|%d|%d", t.ID, t.Status, t.Progress.Current, t.Progress.Total, t.FailedCount))
	}
	return key
}
