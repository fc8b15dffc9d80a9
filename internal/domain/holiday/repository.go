package holiday

import (
	"context"
	"time"
)

type HolidayRepository interface {
	// ListCategories returns the categories of every holiday that applies to the
	// employee on date, through the employee's holiday list.
	ListCategories(ctx context.Context, employeeID string, date time.Time) ([]Category, error)
}
