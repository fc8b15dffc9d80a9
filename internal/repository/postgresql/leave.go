package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRepository(db *database.DB) leave.LeaveRepository {
	return &leaveRepositoryImpl{db: db}
}

// GetApproved implements leave.LeaveRepository.
func (l *leaveRepositoryImpl) GetApproved(ctx context.Context, employeeID string, date time.Time) (*leave.ApprovedLeave, error) {
	q := GetQuerier(ctx, l.db)

	result := leave.ApprovedLeave{EmployeeID: employeeID, Date: date}
	found := false

	leaveQuery := `
		SELECT leave_type,
			   half_day AND (half_day_date IS NULL OR half_day_date = $2),
			   hours, is_paid
		FROM leave_applications
		WHERE employee_id = $1
		  AND status = 'Approved'
		  AND $2 BETWEEN from_date AND to_date
		ORDER BY from_date DESC, id DESC
		LIMIT 1
	`

	var leaveType string
	err := q.QueryRow(ctx, leaveQuery, employeeID, date).Scan(&leaveType, &result.HalfDay, &result.Hours, &result.Paid)
	switch {
	case err == nil:
		result.LeaveType = &leaveType
		found = true
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("failed to get approved leave for employee %s: %w", employeeID, err)
	}

	overtimeQuery := `
		SELECT SUM(hours)
		FROM approved_overtimes
		WHERE employee_id = $1
		  AND date = $2
		  AND status = 'Approved'
	`

	var overtime *float64
	if err := q.QueryRow(ctx, overtimeQuery, employeeID, date).Scan(&overtime); err != nil {
		return nil, fmt.Errorf("failed to get approved overtime for employee %s: %w", employeeID, err)
	}
	if overtime != nil {
		result.ApprovedOvertimeHours = overtime
		found = true
	}

	if !found {
		return nil, nil
	}
	return &result, nil
}
