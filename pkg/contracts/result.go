package contracts

import "time"

// ExecutionStatus is the terminal (or in-flight) state of one action.
type ExecutionStatus string

// Execution status constants.
const (
	StatusPending   ExecutionStatus = "PENDING"
	StatusDenied    ExecutionStatus = "DENIED"
	StatusExecuting ExecutionStatus = "EXECUTING"
	StatusSuccess   ExecutionStatus = "SUCCESS"
	StatusFailed    ExecutionStatus = "FAILED"
	StatusTimeout   ExecutionStatus = "TIMEOUT"
	StatusCancelled ExecutionStatus = "CANCELLED"
	StatusDryRun    ExecutionStatus = "DRY_RUN"
)

// ExecutionResult records the outcome of dispatching one action.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type ExecutionResult struct {
	Action      Action          `json:"action"`
	Status      ExecutionStatus `json:"status"`
	Output      string          `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Succeeded reports whether the action completed without being denied,
// failing, or being skipped. Dry runs count as successful previews.
func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusDryRun
}
