package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
)

// TaskLister knows how to get the active tasks from the backend.
type TaskLister interface {
	ListActiveTasks(ctx context.Context) ([]model.Task, error)
}

// Sink receives the results of the successful polls. seq increases on every fetch
// started by the poller, so a sink can discard results of older fetches that arrive
// late.
type Sink interface {
	ApplyActiveTasks(seq uint64, tasks []model.Task)
}

// Config is the configuration of the poller.
type Config struct {
	Lister TaskLister
	Sink   Sink
	// Interval is the constant time between polls.
	Interval time.Duration
	// FetchTimeout is the max time a single fetch can take.
	FetchTimeout time.Duration
	Logger       log.Logger
}

func (c *Config) defaults() error {
	if c.Lister == nil {
		return fmt.Errorf("lister is required")
	}

	if c.Sink == nil {
		return fmt.Errorf("sink is required")
	}

	if c.Interval <= 0 {
		c.Interval = time.Second
	}

	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "poller.Poller"})

	return nil
}

// Poller refreshes the active tasks periodically. It owns a single timer, starting
// the poller again replaces the previous timer.
type Poller struct {
	lister       TaskLister
	sink         Sink
	interval     time.Duration
	fetchTimeout time.Duration
	logger       log.Logger
	seq          atomic.Uint64

	mu    sync.Mutex
	stopC chan struct{}
}

// New returns a new poller, it's not started.
func New(cfg Config) (*Poller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Poller{
		lister:       cfg.Lister,
		sink:         cfg.Sink,
		interval:     cfg.Interval,
		fetchTimeout: cfg.FetchTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Start arms the poll timer, stopping the previous one if any. The first poll
// happens after one interval.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stop()

	stopC := make(chan struct{})
	p.stopC = stopC
	go p.run(stopC)

	p.logger.Debugf("Poller started with %s interval", p.interval)
}

// Stop disarms the poll timer. A fetch already in flight is not cancelled and
// its result will still be applied.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop() {
		p.logger.Debugf("Poller stopped")
	}
}

// Running returns true if the poll timer is armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stopC != nil
}

func (p *Poller) stop() bool {
	if p.stopC == nil {
		return false
	}

	close(p.stopC)
	p.stopC = nil
	return true
}

func (p *Poller) run(stopC chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopC:
			return
		case <-ticker.C:
		}

		// Stop could have raced with the tick.
		select {
		case <-stopC:
			return
		default:
		}

		p.Tick()
	}
}

// Tick executes a single poll. Errors are logged and the last good state is kept.
func (p *Poller) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.fetchTimeout)
	defer cancel()

	_ = p.Refresh(ctx)
}

// Refresh polls the backend right now, outside the timer. On error the sink is not
// called.
func (p *Poller) Refresh(ctx context.Context) error {
	seq := p.seq.Add(1)

	tasks, err := p.lister.ListActiveTasks(ctx)
	if err != nil {
		p.logger.Errorf("Could not poll active tasks: %s", err)
		return fmt.Errorf("could not list active tasks: %w", err)
	}

	if tasks == nil {
		tasks = []model.Task{}
	}

	p.sink.ApplyActiveTasks(seq, tasks)
	return nil
}
