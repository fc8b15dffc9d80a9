package checkin

import (
	"context"
	"time"
)

type CheckinRepository interface {
	// ListByEmployeeBetween returns the employee's check-ins with from <= time <= to,
	// ordered by time ascending.
	ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]Event, error)
}
