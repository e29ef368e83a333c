package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.OperationRepository.
type Repository struct {
	operations map[string]model.Operation
	mu         sync.RWMutex
	logger     log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		operations: make(map[string]model.Operation),
		logger:     cfg.Logger,
	}, nil
}

// AppendOperation stores a new operation, an ID is assigned when missing.
func (r *Repository) AppendOperation(ctx context.Context, op model.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if op.ID == "" {
		op.ID = ulid.Make().String()
	}

	if _, ok := r.operations[op.ID]; ok {
		return fmt.Errorf("operation with id %s: %w", op.ID, model.ErrAlreadyExists)
	}

	op.TaskIDs = append([]string(nil), op.TaskIDs...)
	r.operations[op.ID] = op
	r.logger.Debugf("Appended %s operation in repository: %s", op.Kind, op.ID)

	return nil
}

// ListOperations returns the latest operations first, limit <= 0 returns all of them.
func (r *Repository) ListOperations(ctx context.Context, limit int) ([]model.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]model.Operation, 0, len(r.operations))
	for _, op := range r.operations {
		op.TaskIDs = append([]string(nil), op.TaskIDs...)
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool {
		if !ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].CreatedAt.After(ops[j].CreatedAt)
		}
		return ops[i].ID > ops[j].ID
	})

	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}

	return ops, nil
}
