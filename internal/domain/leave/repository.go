package leave

import (
	"context"
	"time"
)

type LeaveRepository interface {
	// GetApproved returns the approved leave and overtime for the employee on
	// date, or nil when there is neither.
	GetApproved(ctx context.Context, employeeID string, date time.Time) (*ApprovedLeave, error)
}
