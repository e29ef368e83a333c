package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/dlsync/internal/printer"
)

type RetryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id         string
	failedOnly bool
}

// NewRetryCommand returns the retry command.
func NewRetryCommand(rootCmd *RootCommand, app *kingpin.Application) *RetryCommand {
	c := &RetryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("retry", "Retry a finished task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("failed-only", "Only retry the failed files of the task.").BoolVar(&c.failedOnly)

	return c
}

func (c RetryCommand) Name() string { return c.Cmd.FullCommand() }

func (c RetryCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	msg := fmt.Sprintf("Retrying task: %s", c.id)
	if c.failedOnly {
		err = d.Store.RetryFailedFilesOnly(ctx, c.id)
		msg = fmt.Sprintf("Retrying failed files of task: %s", c.id)
	} else {
		err = d.Store.RetryTask(ctx, c.id)
	}
	if err != nil {
		return err
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
