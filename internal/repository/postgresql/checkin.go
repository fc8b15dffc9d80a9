package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/checkin"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
)

type checkinRepositoryImpl struct {
	db *database.DB
}

func NewCheckinRepository(db *database.DB) checkin.CheckinRepository {
	return &checkinRepositoryImpl{db: db}
}

// ListByEmployeeBetween implements checkin.CheckinRepository.
func (c *checkinRepositoryImpl) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]checkin.Event, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		SELECT id::text, employee_id, time, log_type, device_id
		FROM employee_checkins
		WHERE employee_id = $1
		  AND time BETWEEN $2 AND $3
		ORDER BY time ASC, id ASC
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkins for employee %s: %w", employeeID, err)
	}
	defer rows.Close()

	var events []checkin.Event
	for rows.Next() {
		var (
			event   checkin.Event
			logType string
		)
		if err := rows.Scan(&event.ID, &event.EmployeeID, &event.Time, &logType, &event.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		event.LogType = checkin.LogType(logType)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkins: %w", err)
	}

	return events, nil
}
