package calculation

import "context"

// CalculationService drives attendance calculation runs.
type CalculationService interface {
	// CreateRun registers a Pending run.
	CreateRun(ctx context.Context, req CreateRunRequest) (RunResponse, error)

	GetRun(ctx context.Context, id string) (RunResponse, error)
	ListLogs(ctx context.Context, id string) ([]LogEntryResponse, error)

	// DispatchRun enqueues the run for background execution. It returns false
	// without error when the run is already queued or running.
	DispatchRun(ctx context.Context, id string) (bool, error)

	// StartRun executes the run synchronously. It is invoked by the queue worker.
	StartRun(ctx context.Context, id string) error

	// CancelRun asks a running calculation to stop before its next employee.
	CancelRun(ctx context.Context, id string) error
}
