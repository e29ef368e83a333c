package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/dlsync/internal/backend"
	"github.com/slok/dlsync/internal/coordinator"
	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/poller"
	"github.com/slok/dlsync/internal/storage"
)

// Snapshot is the client view of the backend tasks.
type Snapshot struct {
	// ActiveTasks are replaced on every successful poll.
	ActiveTasks []model.Task `json:"activeTasks"`
	// HistoryTasks are only loaded on demand.
	HistoryTasks []model.Task `json:"historyTasks"`
	// RetryingTasks are the task IDs with a retry in flight from this client.
	RetryingTasks []string `json:"retryingTasks"`
	// Loading is a coarse busy flag for history loading.
	Loading bool `json:"loading"`
}

// ActiveTasksCount returns the number of active tasks.
func (s Snapshot) ActiveTasksCount() int { return len(s.ActiveTasks) }

// Config is the store configuration.
type Config struct {
	Backend      backend.Backend
	PollInterval time.Duration
	// Journal is optional, records the control operations.
	Journal storage.OperationRepository
	Logger  log.Logger
}

func (c *Config) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}

	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Store keeps the task snapshot in sync with the backend and exposes the task
// control operations.
type Store struct {
	poller      *poller.Poller
	coordinator *coordinator.Coordinator
	registry    *coordinator.Registry
	backend     backend.Backend
	logger      log.Logger

	mu        sync.RWMutex
	active    []model.Task
	history   []model.Task
	loading   bool
	lastSeq   uint64
	subsMu    sync.Mutex
	subs      map[chan Snapshot]struct{}
	closeOnce sync.Once
}

// New returns a new store with an empty snapshot. Polling doesn't start until Init.
func New(cfg Config) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Store{
		backend: cfg.Backend,
		logger:  cfg.Logger.WithValues(log.Kv{"svc": "store.Store"}),
		active:  []model.Task{},
		history: []model.Task{},
		subs:    map[chan Snapshot]struct{}{},
	}

	p, err := poller.New(poller.Config{
		Lister:   cfg.Backend,
		Sink:     s,
		Interval: cfg.PollInterval,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create poller: %w", err)
	}

	s.registry = coordinator.NewRegistry(s.publish)
	c, err := coordinator.New(coordinator.Config{
		Backend:   cfg.Backend,
		Refresher: p,
		Registry:  s.registry,
		Journal:   cfg.Journal,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create coordinator: %w", err)
	}

	s.poller = p
	s.coordinator = c

	return s, nil
}

// Init starts polling the backend. The first poll happens after one poll interval.
func (s *Store) Init() {
	s.poller.Start()
}

// Close stops the polling and closes all the subscriptions.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.poller.Stop()

		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for ch := range s.subs {
			close(ch)
		}
		s.subs = nil
	})
}

// Poll refreshes the active tasks right now.
func (s *Store) Poll(ctx context.Context) error {
	return s.poller.Refresh(ctx)
}

// ApplyActiveTasks satisfies poller.Sink interface. Results of fetches older than the
// last applied one are discarded, so a slow response can't override a newer state.
func (s *Store) ApplyActiveTasks(seq uint64, tasks []model.Task) {
	s.mu.Lock()
	if seq <= s.lastSeq {
		s.mu.Unlock()
		s.logger.Debugf("Discarding stale poll result (seq: %d, last: %d)", seq, s.lastSeq)
		return
	}
	s.lastSeq = seq
	s.active = tasks
	s.mu.Unlock()

	s.publish()
}

// CancelTask cancels a task and refreshes the active tasks right after.
func (s *Store) CancelTask(ctx context.Context, id string) error {
	return s.coordinator.Cancel(ctx, id)
}

// RetryTask retries a task, ignored if a retry is already in flight for the task.
func (s *Store) RetryTask(ctx context.Context, id string) error {
	return s.coordinator.Retry(ctx, id)
}

// RetryFailedFilesOnly retries only the failed files of a task, ignored if a retry
// is already in flight for the task.
func (s *Store) RetryFailedFilesOnly(ctx context.Context, id string) error {
	return s.coordinator.RetryFailedFiles(ctx, id)
}

// LoadHistory loads the finished tasks from the backend.
func (s *Store) LoadHistory(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	tasks, err := s.backend.ListHistoryTasks(ctx)
	if err != nil {
		s.logger.Errorf("Could not load history: %s", err)
		return fmt.Errorf("could not load history: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	s.mu.Lock()
	s.history = tasks
	s.mu.Unlock()

	return nil
}

// ClearHistory clears the finished tasks on the backend and locally.
func (s *Store) ClearHistory(ctx context.Context) error {
	if err := s.backend.ClearHistory(ctx); err != nil {
		s.logger.Errorf("Could not clear history: %s", err)
		return fmt.Errorf("could not clear history: %w", err)
	}

	s.mu.Lock()
	s.history = []model.Task{}
	s.mu.Unlock()
	s.publish()

	return nil
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.publish()
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		ActiveTasks:   append([]model.Task{}, s.active...),
		HistoryTasks:  append([]model.Task{}, s.history...),
		RetryingTasks: s.registry.IDs(),
		Loading:       s.loading,
	}
}

// ActiveTasks returns a copy of the active tasks.
func (s *Store) ActiveTasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Task{}, s.active...)
}

// HistoryTasks returns a copy of the history tasks.
func (s *Store) HistoryTasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Task{}, s.history...)
}

// RetryingTasks returns the task IDs with a retry in flight.
func (s *Store) RetryingTasks() []string { return s.registry.IDs() }

// IsRetrying returns true if the task has a retry in flight.
func (s *Store) IsRetrying(id string) bool { return s.registry.Has(id) }

// Loading returns the busy flag.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// ActiveTasksCount returns the number of active tasks of the current snapshot.
func (s *Store) ActiveTasksCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.active)
}

// Subscribe returns a channel that receives the snapshot every time it changes,
// starting with the current one. Slow subscribers only get the latest snapshot.
// The returned func cancels the subscription.
func (s *Store) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if s.subs == nil {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- s.Snapshot()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Store) publish() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if len(s.subs) == 0 {
		return
	}

	snap := s.Snapshot()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Full, drop the oldest snapshot in favor of the latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
