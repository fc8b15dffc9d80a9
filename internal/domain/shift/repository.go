package shift

import (
	"context"
	"time"
)

type ShiftRepository interface {
	// GetForEmployeeOnDate returns the shift effective for the employee on the
	// given date, or nil when none is assigned.
	GetForEmployeeOnDate(ctx context.Context, employeeID string, date time.Time) (*ShiftConfig, error)
}
