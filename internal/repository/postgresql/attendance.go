package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, newAttendance attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendances (
			employee_id, company_id, attendance_date, source, attendance_calculation_id, shift_type_id, status,
			working_hours, expected_hours, overtime_hours, undertime_hours, leave_hours, paid_leave_hours,
			night_differential_hours, night_differential_overtime_hours, late_in_hours,
			late_entry, early_exit, legal_holiday, special_holiday, rest_day
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		) RETURNING id::text, created_at, updated_at
	`

	m := newAttendance.Metrics
	err := q.QueryRow(ctx, query,
		newAttendance.EmployeeID,
		newAttendance.CompanyID,
		newAttendance.Date,
		string(newAttendance.Source),
		newAttendance.CalculationRunID,
		m.ShiftID,
		m.Status.String(),
		m.WorkingHours,
		m.ExpectedHours,
		m.OvertimeHours,
		m.UndertimeHours,
		m.LeaveHours,
		m.PaidLeaveHours,
		m.NightDifferentialHours,
		m.NightDifferentialOvertimeHours,
		m.LateInHours,
		m.LateEntry,
		m.EarlyExit,
		m.LegalHoliday,
		m.SpecialHoliday,
		m.RestDay,
	).Scan(&newAttendance.ID, &newAttendance.CreatedAt, &newAttendance.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return attendance.Attendance{}, fmt.Errorf("employee %s on %s: %w",
				newAttendance.EmployeeID, newAttendance.Date.Format("2006-01-02"), attendance.ErrAttendanceAlreadyExists)
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return newAttendance, nil
}
