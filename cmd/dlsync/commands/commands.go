package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/dlsync/internal/conventions"
	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	storageio "github.com/slok/dlsync/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	// BackendTypeHTTP is the REST download backend.
	BackendTypeHTTP = "http"
	// BackendTypeFake is the in-process simulated backend.
	BackendTypeFake = "fake"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug            bool
	NoLog            bool
	NoColor          bool
	LoggerType       string
	LogFile          string
	ConfigPath       string
	Backend          string
	BackendURL       string
	BackendTimeout   time.Duration
	BackendRetries   int
	BackendRetryWait time.Duration
	PollInterval     time.Duration
	JournalPath      string
	NoJournal        bool

	// Set when the user sets the flag explicitly, these win over the config file.
	setBy map[string]*bool

	// Loaded from the config file, only used by the watch command.
	Listen         string
	AllowedOrigins []string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{setBy: map[string]*bool{}}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("log-file", "Also write logs to this file, rotated by size.").StringVar(&c.LogFile)
	app.Flag("config", "Path to the YAML configuration file.").StringVar(&c.ConfigPath)

	c.flag(app, "backend", "Download backend type.").Default(BackendTypeHTTP).EnumVar(&c.Backend, BackendTypeHTTP, BackendTypeFake)
	c.flag(app, "backend-url", "Download backend API address.").Default("http://127.0.0.1:8080/api").StringVar(&c.BackendURL)
	c.flag(app, "backend-timeout", "Timeout of each backend request.").Default("10s").DurationVar(&c.BackendTimeout)
	c.flag(app, "backend-retries", "Number of retries of a failed backend request.").Default("0").IntVar(&c.BackendRetries)
	c.flag(app, "backend-retry-wait", "Wait between backend request retries.").Default("100ms").DurationVar(&c.BackendRetryWait)
	c.flag(app, "poll-interval", "Interval between active task refreshes.").Default("1s").DurationVar(&c.PollInterval)

	defaultJournalPath := conventions.JournalPath(conventions.DataDir())
	c.flag(app, "journal-path", "Path to the SQLite operation journal.").Default(defaultJournalPath).StringVar(&c.JournalPath)
	c.flag(app, "no-journal", "Keep the operation journal in memory only.").BoolVar(&c.NoJournal)

	return c
}

func (c *RootCommand) flag(app *kingpin.Application, name, help string) *kingpin.FlagClause {
	set := new(bool)
	c.setBy[name] = set
	return app.Flag(name, help).IsSetByUser(set)
}

func (c *RootCommand) isSetByUser(name string) bool {
	set, ok := c.setBy[name]
	return ok && *set
}

// LoadConfigFile loads the YAML configuration file, if any. Flags explicitly set
// by the user take precedence over the file values.
func (c *RootCommand) LoadConfigFile(ctx context.Context) error {
	if c.ConfigPath == "" {
		return nil
	}

	path, err := filepath.Abs(c.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not resolve config path: %w", err)
	}

	repo := storageio.NewConfigYAMLRepository(os.DirFS(filepath.Dir(path)))
	cfg, err := repo.GetConfig(ctx, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	c.applyConfig(cfg)
	return nil
}

func (c *RootCommand) applyConfig(cfg model.ClientConfig) {
	if cfg.BackendURL != "" && !c.isSetByUser("backend-url") {
		c.BackendURL = cfg.BackendURL
	}
	if cfg.BackendTimeout > 0 && !c.isSetByUser("backend-timeout") {
		c.BackendTimeout = cfg.BackendTimeout
	}
	if cfg.BackendRetries > 0 && !c.isSetByUser("backend-retries") {
		c.BackendRetries = cfg.BackendRetries
	}
	if cfg.BackendRetryWait > 0 && !c.isSetByUser("backend-retry-wait") {
		c.BackendRetryWait = cfg.BackendRetryWait
	}
	if cfg.PollInterval > 0 && !c.isSetByUser("poll-interval") {
		c.PollInterval = cfg.PollInterval
	}
	if cfg.JournalPath != "" && !c.isSetByUser("journal-path") {
		c.JournalPath = cfg.JournalPath
	}
	if cfg.JournalDisabled && !c.isSetByUser("no-journal") {
		c.NoJournal = true
	}

	c.Listen = cfg.Listen
	c.AllowedOrigins = cfg.AllowedOrigins
}
