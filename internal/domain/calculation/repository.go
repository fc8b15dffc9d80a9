package calculation

import "context"

// RunRepository stores runs and their per-record logs.
type RunRepository interface {
	Create(ctx context.Context, run Run) (Run, error)

	// GetByID returns ErrRunNotFound when the run does not exist.
	GetByID(ctx context.Context, id string) (Run, error)

	UpdateStatus(ctx context.Context, id string, status RunStatus, message string) error
	UpdateProgress(ctx context.Context, id string, processed, total int) error
	UpdateFlags(ctx context.Context, id string, hasSuccess, hasFailure bool) error

	RequestCancel(ctx context.Context, id string) error
	IsCancelRequested(ctx context.Context, id string) (bool, error)

	// DeleteLogs clears the log of a previous execution of the run, together
	// with its cancel request.
	DeleteLogs(ctx context.Context, id string) error
	AppendLog(ctx context.Context, entry LogEntry) error
	ListLogs(ctx context.Context, runID string) ([]LogEntry, error)
}
