package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	clear  bool
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the finished tasks.")
	c.Cmd.Flag("clear", "Clear the finished tasks instead of listing them.").BoolVar(&c.clear)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	d, err := c.rootCmd.newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	p := newPrinter(c.format, c.rootCmd.Stdout)

	if c.clear {
		if err := d.Store.ClearHistory(ctx); err != nil {
			return err
		}
		return p.PrintMessage("History cleared")
	}

	if err := d.Store.LoadHistory(ctx); err != nil {
		return err
	}

	if err := p.PrintTasks(d.Store.HistoryTasks()); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}
