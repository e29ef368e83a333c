package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type OpsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit  int
	format string
}

// NewOpsCommand returns the ops command.
func NewOpsCommand(rootCmd *RootCommand, app *kingpin.Application) *OpsCommand {
	c := &OpsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("ops", "List the control operations issued by this client.")
	c.Cmd.Flag("limit", "Maximum number of operations, 0 lists all.").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c OpsCommand) Name() string { return c.Cmd.FullCommand() }

func (c OpsCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	ops, err := d.Journal.ListOperations(ctx, c.limit)
	if err != nil {
		return fmt.Errorf("could not list operations: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintOperations(ops); err != nil {
		return fmt.Errorf("could not print operations: %w", err)
	}

	return nil
}
