package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/dlsync/internal/batch"
)

// ErrBatchFailed is returned when a batch download doesn't start any task.
var ErrBatchFailed = errors.New("batch download failed")

type AddCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	url    string
	format string
}

// NewAddCommand returns the add command.
func NewAddCommand(rootCmd *RootCommand, app *kingpin.Application) *AddCommand {
	c := &AddCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("add", "Start a batch download from a page URL.")
	c.Cmd.Arg("url", "Page URL with the download links.").Required().StringVar(&c.url)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c AddCommand) Name() string { return c.Cmd.FullCommand() }

func (c AddCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	res := d.Batch.Execute(ctx, batch.Options{URL: c.url})

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintBatchResult(res); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}

	if !res.Success {
		return ErrBatchFailed
	}

	return nil
}
