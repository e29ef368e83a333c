package storage

import (
	"context"

	"github.com/slok/dlsync/internal/model"
)

// OperationRepository is the journal of control operations sent by this client.
// It's an audit of what the client did, the task state is always owned by the backend.
type OperationRepository interface {
	// AppendOperation stores an operation, if the operation has no ID one is assigned.
	AppendOperation(ctx context.Context, op model.Operation) error
	// ListOperations returns the latest operations first. limit <= 0 means no limit.
	ListOperations(ctx context.Context, limit int) ([]model.Operation, error)
}
