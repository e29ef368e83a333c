package model

import "time"

// OperationKind is the kind of control operation issued by the client.
type OperationKind string

const (
	OperationKindCancel      OperationKind = "cancel"
	OperationKindRetry       OperationKind = "retry"
	OperationKindRetryFailed OperationKind = "retry_failed"
	OperationKindBatch       OperationKind = "batch"
)

// Operation is a journal entry of a control operation this client sent to the backend.
type Operation struct {
	ID   string
	Kind OperationKind
	// TaskID is set for task control operations.
	TaskID string
	// URL and TaskIDs are set for batch operations.
	URL     string
	TaskIDs []string
	// Error is empty when the operation succeeded.
	Error     string
	CreatedAt time.Time
}
