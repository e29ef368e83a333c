package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/slok/dlsync/cmd/dlsync/commands"
	"github.com/slok/dlsync/internal/log"
	loglogrus "github.com/slok/dlsync/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("dlsync", "Download backend task sync client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	watchCmd := commands.NewWatchCommand(rootCmd, app)
	listCmd := commands.NewListCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	getCmd := commands.NewGetCommand(rootCmd, app)
	cancelCmd := commands.NewCancelCommand(rootCmd, app)
	retryCmd := commands.NewRetryCommand(rootCmd, app)
	addCmd := commands.NewAddCommand(rootCmd, app)
	opsCmd := commands.NewOpsCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		watchCmd.Name():   watchCmd,
		listCmd.Name():    listCmd,
		historyCmd.Name(): historyCmd,
		getCmd.Name():     getCmd,
		cancelCmd.Name():  cancelCmd,
		retryCmd.Name():   retryCmd,
		addCmd.Name():     addCmd,
		opsCmd.Name():     opsCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	if err := rootCmd.LoadConfigFile(ctx); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that produce structured output (table/JSON)
	// to prevent log noise from mixing with printer output in the terminal.
	// Users can still enable logging with --debug.
	printerCommands := map[string]bool{
		"list":    true,
		"history": true,
		"get":     true,
		"ops":     true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug && rootCmd.LogFile == "" {
		rootCmd.NoLog = true
	}

	// Set logger.
	logger, closeLogger := getLogger(ctx, *rootCmd)
	defer closeLogger()
	rootCmd.Logger = logger

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger and a func to release its resources.
func getLogger(ctx context.Context, config commands.RootCommand) (log.Logger, func()) {
	if config.NoLog {
		return log.Noop, func() {}
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	closeFn := func() {}
	noColor := config.NoColor
	if config.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    10, // MB.
			MaxBackups: 3,
			MaxAge:     28, // Days.
			Compress:   true,
		}
		logrusLog.Out = io.MultiWriter(config.Stderr, rotator)
		noColor = true
		closeFn = func() { _ = rotator.Close() }
	}

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			DisableColors: noColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger, closeFn
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
